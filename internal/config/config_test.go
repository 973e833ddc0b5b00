package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgData := `
weaviate_url = "localhost:8080"

[source]
path = "rows.csv"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(cfgData), 0644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.WeaviateURL)
	assert.Equal(t, DefaultChunkClass, cfg.ChunkClass)
	assert.Equal(t, 4, cfg.Enhancement.Workers)
	assert.Equal(t, 200, cfg.Enhancement.Chunking.MinSize)
	assert.Equal(t, 1500, cfg.Enhancement.Chunking.MaxSize)
	assert.InDelta(t, 0.3, cfg.Enhancement.TypeDetection.ConfidenceThreshold, 1e-9)
	assert.NotNil(t, cfg.Enhancement.BusinessUnitKeywords)
}

func TestLoadFrom_BusinessUnitKeywords(t *testing.T) {
	dir := t.TempDir()
	cfgData := `
weaviate_url = "localhost:8080"

[enhancement.business_unit_keywords]
finance = ["invoice", "budget"]
legal = ["contract"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(cfgData), 0644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"invoice", "budget"}, cfg.Enhancement.BusinessUnitKeywords["finance"])
	assert.Equal(t, []string{"contract"}, cfg.Enhancement.BusinessUnitKeywords["legal"])
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		WeaviateURL: "weaviate:8080",
		ChunkClass:  "KnowledgeChunk",
		Source:      SourceConfig{Path: "rows.csv", KeyColumn: "id"},
		Enhancement: DefaultEnhancement(),
		path:        dir,
	}
	require.NoError(t, cfg.Save())

	loaded, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.WeaviateURL, loaded.WeaviateURL)
	assert.Equal(t, "id", loaded.Source.KeyColumn)
	assert.Equal(t, dir, loaded.Path())
	assert.Equal(t, filepath.Join(dir, DatabaseFile), loaded.DatabasePath())
}

func TestSupportsNativeUpsert(t *testing.T) {
	cases := []struct {
		version string
		want    bool
	}{
		{"", true},
		{"1.25.0", true},
		{"1.14.0", true},
		{"1.13.2", false},
		{"2.0.0", true},
		{"garbage", true},
	}

	for _, tc := range cases {
		cfg := &Config{ServerVersion: tc.version}
		assert.Equal(t, tc.want, cfg.SupportsNativeUpsert(), "version %q", tc.version)
	}
}
