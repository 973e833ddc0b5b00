package fingerprint

import (
	"testing"

	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Deterministic(t *testing.T) {
	rec := &models.SourceRecord{
		Identity:   "row-1",
		RawContent: "quarterly expenses",
		Columns:    map[string]string{"name": "Expenses", "unit": "finance"},
	}

	first, err := Record(rec)
	require.NoError(t, err)
	second, err := Record(rec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestRecord_ColumnOrderIndependent(t *testing.T) {
	a := &models.SourceRecord{
		Identity:   "row-1",
		RawContent: "same",
		Columns:    map[string]string{"a": "1", "b": "2", "c": "3"},
	}
	b := &models.SourceRecord{
		Identity:   "row-1",
		RawContent: "same",
		Columns:    map[string]string{"c": "3", "a": "1", "b": "2"},
	}

	ha, err := Record(a)
	require.NoError(t, err)
	hb, err := Record(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
}

func TestRecord_ContentChangesHash(t *testing.T) {
	base := &models.SourceRecord{Identity: "row-1", RawContent: "old"}
	changed := &models.SourceRecord{Identity: "row-1", RawContent: "new"}

	hBase, err := Record(base)
	require.NoError(t, err)
	hChanged, err := Record(changed)
	require.NoError(t, err)

	assert.NotEqual(t, hBase, hChanged)
}

func TestRecord_ColumnChangesHash(t *testing.T) {
	base := &models.SourceRecord{
		Identity:   "row-1",
		RawContent: "same",
		Columns:    map[string]string{"status": "draft"},
	}
	changed := &models.SourceRecord{
		Identity:   "row-1",
		RawContent: "same",
		Columns:    map[string]string{"status": "final"},
	}

	hBase, err := Record(base)
	require.NoError(t, err)
	hChanged, err := Record(changed)
	require.NoError(t, err)

	assert.NotEqual(t, hBase, hChanged)
}

func TestRecord_EmptyColumns(t *testing.T) {
	withNil := &models.SourceRecord{Identity: "row-1", RawContent: "x"}
	withEmpty := &models.SourceRecord{Identity: "row-1", RawContent: "x", Columns: map[string]string{}}

	hNil, err := Record(withNil)
	require.NoError(t, err)
	hEmpty, err := Record(withEmpty)
	require.NoError(t, err)

	assert.Equal(t, hNil, hEmpty)
}

func TestContent(t *testing.T) {
	assert.Equal(t, Content([]byte("abc")), Content([]byte("abc")))
	assert.NotEqual(t, Content([]byte("abc")), Content([]byte("abd")))
}
