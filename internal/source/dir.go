package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kilupskalvis/kbsync/internal/models"
)

// DirReader reads the uploaded-document source from a directory. Each
// regular file becomes a SourceRecord with uploaded provenance, so the
// enhancement pipeline always runs over them. Identity is the file name,
// which is stable across runs.
type DirReader struct {
	dir string
}

var _ Reader = (*DirReader)(nil)

// NewDirReader creates a reader over the uploads directory at dir.
func NewDirReader(dir string) *DirReader {
	return &DirReader{dir: dir}
}

// Name returns the source name.
func (r *DirReader) Name() string {
	return "dir:" + r.dir
}

// ReadAll reads every regular file in the directory, sorted by name.
// A missing directory is an empty source, not an error: uploads are
// optional and their absence must not abort a sync pass.
func (r *DirReader) ReadAll(ctx context.Context) ([]*models.SourceRecord, error) {
	entries, err := os.ReadDir(r.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	records := make([]*models.SourceRecord, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.readFile(name)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// ReadOne reads a single uploaded document by file name.
func (r *DirReader) ReadOne(ctx context.Context, identity string) (*models.SourceRecord, error) {
	if filepath.Base(identity) != identity {
		return nil, fmt.Errorf("%w: invalid identity %q", ErrRecordNotFound, identity)
	}
	if _, err := os.Stat(filepath.Join(r.dir, identity)); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, identity)
	}
	return r.readFile(identity)
}

func (r *DirReader) readFile(name string) (*models.SourceRecord, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return &models.SourceRecord{
		Identity:   name,
		RawContent: string(data),
		Filename:   name,
		Provenance: models.ProvenanceUploaded,
	}, nil
}
