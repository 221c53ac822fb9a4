package stage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/searchcore/searchcore/pkg/models"
)

// MemoryStore flushes batches straight to the staging files without an
// intermediate database. It backs the "memory" stage setting, useful for
// small builds and tests where the sqlite transaction overhead buys
// nothing.
type MemoryStore struct{}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// FlushBatch writes the batch's postings as a JSON-lines file (one
// {term: postings} record per line, in map iteration order, which is not
// defined) and the docID map as a single flat JSON object.
func (m *MemoryStore) FlushBatch(stagingDir string, batchNum int, inverted map[string]models.PostingsList, docIDs map[uint32]string) (string, string, error) {
	invertedPath := filepath.Join(stagingDir, fmt.Sprintf("inverted_index_%d.jsonl", batchNum))
	docIDsPath := filepath.Join(stagingDir, fmt.Sprintf("doc_id_mapping_%d.json", batchNum))

	f, err := os.Create(invertedPath)
	if err != nil {
		return "", "", fmt.Errorf("creating batch postings file: %w", err)
	}
	defer f.Close()

	for term, postings := range inverted {
		line, err := models.EncodeShardLine(term, postings)
		if err != nil {
			return "", "", err
		}
		if _, err := f.Write(line); err != nil {
			return "", "", fmt.Errorf("writing batch postings file: %w", err)
		}
	}

	strDocIDs := make(map[string]string, len(docIDs))
	for docID, url := range docIDs {
		strDocIDs[strconv.FormatUint(uint64(docID), 10)] = url
	}
	data, err := json.Marshal(strDocIDs)
	if err != nil {
		return "", "", fmt.Errorf("encoding batch docID map: %w", err)
	}
	if err := os.WriteFile(docIDsPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("writing batch docID map: %w", err)
	}

	return invertedPath, docIDsPath, nil
}

// Close is a no-op: MemoryStore holds no resources between flushes.
func (m *MemoryStore) Close() error { return nil }
