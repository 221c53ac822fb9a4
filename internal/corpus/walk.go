package corpus

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/searchcore/searchcore/pkg/models"
)

// Record pairs a corpus file's path with its decoded contents, for error
// reporting that names the offending file.
type Record struct {
	Path    string
	Content models.CorpusRecord
}

// ParseError describes a corpus file that failed to parse or was missing a
// required field. The walker logs and skips these; it never aborts a build.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Walk enumerates every regular file under dir in deterministic,
// lexicographic order by full path, calling visit for each file that
// successfully decodes into a CorpusRecord with both url and content set.
// Files that fail to parse or are missing required fields are reported via
// onError instead of aborting the walk.
func Walk(dir string, visit func(Record) error, onError func(*ParseError)) error {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking corpus directory %s: %w", dir, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		rec, perr := readRecord(path)
		if perr != nil {
			if onError != nil {
				onError(perr)
			}
			continue
		}
		if err := visit(Record{Path: path, Content: rec}); err != nil {
			return err
		}
	}
	return nil
}

func readRecord(path string) (models.CorpusRecord, *ParseError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.CorpusRecord{}, &ParseError{Path: path, Err: err}
	}

	var rec models.CorpusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.CorpusRecord{}, &ParseError{Path: path, Err: fmt.Errorf("malformed corpus file: %w", err)}
	}
	if rec.URL == "" || rec.Content == "" {
		return models.CorpusRecord{}, &ParseError{Path: path, Err: fmt.Errorf("missing url or content field")}
	}
	return rec, nil
}
