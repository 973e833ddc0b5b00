// Package config manages kbsync configuration and the .kbsync directory
// structure. It handles loading, saving, and initializing the deployment
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	KBSyncDir    = ".kbsync"
	ConfigFile   = "config"
	DatabaseFile = "kbsync.db"
)

// DefaultChunkClass is the Weaviate class vector chunks are written to.
const DefaultChunkClass = "KnowledgeChunk"

// Config represents the kbsync configuration.
type Config struct {
	WeaviateURL   string `toml:"weaviate_url"`
	ServerVersion string `toml:"server_version"` // Detected Weaviate server version on init
	ChunkClass    string `toml:"chunk_class"`

	Source      SourceConfig      `toml:"source"`
	Enhancement EnhancementConfig `toml:"enhancement"`

	path string // path to .kbsync directory
}

// SourceConfig locates the tabular source and the uploads directory.
type SourceConfig struct {
	Path          string `toml:"path"`           // CSV file with curated rows
	KeyColumn     string `toml:"key_column"`     // identity column; row position when empty
	ContentColumn string `toml:"content_column"` // raw content column; all columns when empty
	UploadsDir    string `toml:"uploads_dir"`    // externally uploaded documents
}

// EnhancementConfig controls the document enhancement pipeline.
type EnhancementConfig struct {
	Enabled              bool                `toml:"enabled"`
	Workers              int                 `toml:"workers"`
	TypeDetection        TypeDetectionConfig `toml:"type_detection"`
	EntityExtraction     EntityConfig        `toml:"entity_extraction"`
	Chunking             ChunkingConfig      `toml:"chunking"`
	Metadata             MetadataConfig      `toml:"metadata"`
	BusinessUnitKeywords map[string][]string `toml:"business_unit_keywords"`
	BusinessUnitOrder    []string            `toml:"business_unit_order"` // tie-break order; map order is undefined in TOML
}

// TypeDetectionConfig controls document type detection.
type TypeDetectionConfig struct {
	UseFilename         bool    `toml:"use_filename"`
	UseContent          bool    `toml:"use_content"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

// EntityConfig controls entity extraction.
type EntityConfig struct {
	Enabled              bool `toml:"enabled"`
	ExtractDates         bool `toml:"extract_dates"`
	ExtractAmounts       bool `toml:"extract_amounts"`
	ExtractNames         bool `toml:"extract_names"`
	ExtractOrganizations bool `toml:"extract_organizations"`
}

// ChunkingConfig controls semantic chunking.
type ChunkingConfig struct {
	Method         string `toml:"method"` // "semantic" or "fixed"
	MinSize        int    `toml:"min_size"`
	MaxSize        int    `toml:"max_size"`
	Overlap        int    `toml:"overlap"`
	PreserveTables bool   `toml:"preserve_tables"`
}

// MetadataConfig controls metadata enrichment.
type MetadataConfig struct {
	AutoCategorize     bool `toml:"auto_categorize"`
	AutoTag            bool `toml:"auto_tag"`
	DetectBusinessUnit bool `toml:"detect_business_unit"`
}

// DefaultEnhancement returns the default enhancement configuration.
func DefaultEnhancement() EnhancementConfig {
	return EnhancementConfig{
		Enabled: true,
		Workers: 4,
		TypeDetection: TypeDetectionConfig{
			UseFilename:         true,
			UseContent:          true,
			ConfidenceThreshold: 0.3,
		},
		EntityExtraction: EntityConfig{
			Enabled:              true,
			ExtractDates:         true,
			ExtractAmounts:       true,
			ExtractNames:         true,
			ExtractOrganizations: true,
		},
		Chunking: ChunkingConfig{
			Method:         "semantic",
			MinSize:        200,
			MaxSize:        1500,
			Overlap:        100,
			PreserveTables: true,
		},
		Metadata: MetadataConfig{
			AutoCategorize:     true,
			AutoTag:            true,
			DetectBusinessUnit: true,
		},
		BusinessUnitKeywords: map[string][]string{},
	}
}

// FindRoot finds the .kbsync directory by walking up from the current
// directory.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		kbPath := filepath.Join(dir, KBSyncDir)
		if info, err := os.Stat(kbPath); err == nil && info.IsDir() {
			return kbPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a kbsync deployment (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .kbsync directory.
func Load() (*Config, error) {
	kbPath, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(kbPath)
}

// LoadFrom loads the configuration from an explicit .kbsync directory.
func LoadFrom(kbPath string) (*Config, error) {
	configPath := filepath.Join(kbPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = kbPath
	cfg.applyDefaults()
	return &cfg, nil
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Path returns the path to the .kbsync directory.
func (c *Config) Path() string {
	return c.path
}

// DatabasePath returns the path to the SQLite content store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// Initialize creates a new .kbsync directory with initial configuration.
func Initialize(weaviateURL, sourcePath string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	kbPath := filepath.Join(cwd, KBSyncDir)

	if _, err := os.Stat(kbPath); err == nil {
		return nil, fmt.Errorf("kbsync deployment already exists")
	}

	if err := os.MkdirAll(kbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .kbsync directory: %w", err)
	}

	cfg := &Config{
		WeaviateURL: weaviateURL,
		ChunkClass:  DefaultChunkClass,
		Source: SourceConfig{
			Path:       sourcePath,
			UploadsDir: filepath.Join(cwd, "uploads"),
		},
		Enhancement: DefaultEnhancement(),
		path:        kbPath,
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(kbPath)
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills zero values with usable defaults after load.
func (c *Config) applyDefaults() {
	if c.ChunkClass == "" {
		c.ChunkClass = DefaultChunkClass
	}
	def := DefaultEnhancement()
	if c.Enhancement.Workers <= 0 {
		c.Enhancement.Workers = def.Workers
	}
	if c.Enhancement.TypeDetection.ConfidenceThreshold <= 0 {
		c.Enhancement.TypeDetection.ConfidenceThreshold = def.TypeDetection.ConfidenceThreshold
	}
	if c.Enhancement.Chunking.MinSize <= 0 {
		c.Enhancement.Chunking.MinSize = def.Chunking.MinSize
	}
	if c.Enhancement.Chunking.MaxSize <= 0 {
		c.Enhancement.Chunking.MaxSize = def.Chunking.MaxSize
	}
	if c.Enhancement.Chunking.Overlap < 0 {
		c.Enhancement.Chunking.Overlap = def.Chunking.Overlap
	}
	if c.Enhancement.Chunking.Method == "" {
		c.Enhancement.Chunking.Method = def.Chunking.Method
	}
	if c.Enhancement.BusinessUnitKeywords == nil {
		c.Enhancement.BusinessUnitKeywords = map[string][]string{}
	}
}

// SupportsNativeUpsert reports whether the recorded server version
// supports PUT-style object replacement. Unknown versions default to
// native upsert; the method-selection order is fixed at client
// construction and never probed per call.
func (c *Config) SupportsNativeUpsert() bool {
	if c.ServerVersion == "" {
		return true
	}

	var major, minor int
	_, err := fmt.Sscanf(c.ServerVersion, "%d.%d", &major, &minor)
	if err != nil {
		return true
	}

	return major > 1 || (major == 1 && minor >= 14)
}
