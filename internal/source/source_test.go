package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCSVReader_ReadAll(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rows.csv",
		"id,name,description\nA,Alpha,first row\nB,Beta,second row\n")

	r := NewCSVReader(path, "id", "description")
	records, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "A", records[0].Identity)
	assert.Equal(t, "first row", records[0].RawContent)
	assert.Equal(t, "Alpha", records[0].Columns["name"])
	assert.Equal(t, models.ProvenanceCurated, records[0].Provenance)
	assert.Equal(t, "B", records[1].Identity)
}

func TestCSVReader_RowPositionIdentity(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rows.csv", "name,value\nfoo,1\nbar,2\n")

	r := NewCSVReader(path, "", "")
	records, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "row-1", records[0].Identity)
	assert.Equal(t, "row-2", records[1].Identity)
	// Without a content column, all columns are joined in header order.
	assert.Equal(t, "name: foo\nvalue: 1", records[0].RawContent)
}

func TestCSVReader_MissingFile(t *testing.T) {
	r := NewCSVReader(filepath.Join(t.TempDir(), "nope.csv"), "", "")
	_, err := r.ReadAll(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestCSVReader_MissingKeyColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rows.csv", "name\nfoo\n")

	r := NewCSVReader(path, "id", "")
	_, err := r.ReadAll(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestCSVReader_ReadOne(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rows.csv", "id,name\nA,Alpha\nB,Beta\n")

	r := NewCSVReader(path, "id", "")
	rec, err := r.ReadOne(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, "Beta", rec.Columns["name"])

	_, err = r.ReadOne(context.Background(), "Z")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDirReader_ReadAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "second")
	writeFile(t, dir, "a.txt", "first")

	r := NewDirReader(dir)
	records, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Sorted by name for a restartable, stable order.
	assert.Equal(t, "a.txt", records[0].Identity)
	assert.Equal(t, "first", records[0].RawContent)
	assert.Equal(t, models.ProvenanceUploaded, records[0].Provenance)
	assert.Equal(t, "b.txt", records[1].Identity)
}

func TestDirReader_MissingDirIsEmpty(t *testing.T) {
	r := NewDirReader(filepath.Join(t.TempDir(), "uploads"))
	records, err := r.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDirReader_ReadOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.txt", "hello")

	r := NewDirReader(dir)
	rec, err := r.ReadOne(context.Background(), "doc.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", rec.RawContent)

	_, err = r.ReadOne(context.Background(), "missing.txt")
	assert.True(t, errors.Is(err, ErrRecordNotFound))

	_, err = r.ReadOne(context.Background(), "../escape.txt")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
