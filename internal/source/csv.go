package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/kilupskalvis/kbsync/internal/models"
)

// CSVReader reads the curated tabular source from a CSV file. Each row
// becomes a SourceRecord with curated provenance; the enhancement
// pipeline never runs over these records.
type CSVReader struct {
	path          string
	keyColumn     string // identity column; row position used when empty
	contentColumn string // raw content column; all columns joined when empty
}

// Verify CSVReader implements Reader at compile time.
var _ Reader = (*CSVReader)(nil)

// NewCSVReader creates a reader for the CSV file at path. keyColumn and
// contentColumn may be empty.
func NewCSVReader(path, keyColumn, contentColumn string) *CSVReader {
	return &CSVReader{path: path, keyColumn: keyColumn, contentColumn: contentColumn}
}

// Name returns the source name.
func (r *CSVReader) Name() string {
	return "csv:" + r.path
}

// ReadAll reads the entire CSV file into records.
func (r *CSVReader) ReadAll(ctx context.Context) ([]*models.SourceRecord, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: malformed csv: %v", ErrSourceUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty file (missing header)", ErrSourceUnavailable)
	}

	header := rows[0]
	keyIdx := indexOf(header, r.keyColumn)
	if r.keyColumn != "" && keyIdx < 0 {
		return nil, fmt.Errorf("%w: key column %q not in header", ErrSourceUnavailable, r.keyColumn)
	}
	contentIdx := indexOf(header, r.contentColumn)
	if r.contentColumn != "" && contentIdx < 0 {
		return nil, fmt.Errorf("%w: content column %q not in header", ErrSourceUnavailable, r.contentColumn)
	}

	records := make([]*models.SourceRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records = append(records, r.buildRecord(header, row, i, keyIdx, contentIdx))
	}

	return records, nil
}

// ReadOne re-reads the file and returns the record with the given identity.
func (r *CSVReader) ReadOne(ctx context.Context, identity string) (*models.SourceRecord, error) {
	records, err := r.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Identity == identity {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, identity)
}

func (r *CSVReader) buildRecord(header, row []string, rowIdx, keyIdx, contentIdx int) *models.SourceRecord {
	columns := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			columns[name] = row[i]
		}
	}

	identity := fmt.Sprintf("row-%d", rowIdx+1)
	if keyIdx >= 0 && keyIdx < len(row) && row[keyIdx] != "" {
		identity = row[keyIdx]
	}

	var content string
	if contentIdx >= 0 && contentIdx < len(row) {
		content = row[contentIdx]
	} else {
		// Join columns in header order so the content is stable.
		parts := make([]string, 0, len(header))
		for i, name := range header {
			if i < len(row) {
				parts = append(parts, name+": "+row[i])
			}
		}
		content = strings.Join(parts, "\n")
	}

	return &models.SourceRecord{
		Identity:   identity,
		RawContent: content,
		Columns:    columns,
		Provenance: models.ProvenanceCurated,
	}
}

func indexOf(header []string, name string) int {
	if name == "" {
		return -1
	}
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
