package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/searchcore/searchcore/pkg/models"
)

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "stage.db")

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, tmpDir
}

func TestFlushBatchWritesFiles(t *testing.T) {
	store, dir := setupTestStore(t)

	inverted := map[string]models.PostingsList{
		"cat": {{DocID: 0, TF: 3}, {DocID: 1, TF: 1}},
		"dog": {{DocID: 1, TF: 2}},
	}
	docIDs := map[uint32]string{0: "http://a", 1: "http://b"}

	invertedPath, docIDsPath, err := store.FlushBatch(dir, 0, inverted, docIDs)
	if err != nil {
		t.Fatalf("FlushBatch: %v", err)
	}

	data, err := os.ReadFile(invertedPath)
	if err != nil {
		t.Fatalf("reading inverted file: %v", err)
	}
	lines := splitNonEmptyLines(string(data))
	if len(lines) != 2 {
		t.Fatalf("inverted file has %d lines, want 2", len(lines))
	}
	seen := map[string]models.PostingsList{}
	for _, line := range lines {
		rec, err := models.DecodeShardLine([]byte(line))
		if err != nil {
			t.Fatalf("DecodeShardLine: %v", err)
		}
		seen[rec.Term] = rec.Postings
	}
	if len(seen["cat"]) != 2 || len(seen["dog"]) != 1 {
		t.Fatalf("seen = %+v, want cat:2 dog:1 postings", seen)
	}

	docData, err := os.ReadFile(docIDsPath)
	if err != nil {
		t.Fatalf("reading docIDs file: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(docData, &got); err != nil {
		t.Fatalf("unmarshal docIDs: %v", err)
	}
	if got["0"] != "http://a" || got["1"] != "http://b" {
		t.Fatalf("docIDs = %v, want {0:http://a, 1:http://b}", got)
	}
}

func TestFlushBatchClearsStagingRows(t *testing.T) {
	store, dir := setupTestStore(t)

	if _, _, err := store.FlushBatch(dir, 0, map[string]models.PostingsList{"x": {{DocID: 0, TF: 1}}}, map[uint32]string{0: "u"}); err != nil {
		t.Fatalf("first flush: %v", err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM stage_postings WHERE batch_id = 0`).Scan(&count); err != nil {
		t.Fatalf("querying leftover rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("stage_postings has %d leftover rows after flush, want 0", count)
	}
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
