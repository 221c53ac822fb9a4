package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/searchcore/searchcore/pkg/models"
)

func TestStatsSumsShardAndDocIDSizes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "merged_docIDs.json"), []byte(`{"0":"http://a"}`), 0o644); err != nil {
		t.Fatalf("writing docID fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "c_inverted_index.jsonl"), []byte(`{"cat":[[0,1]]}`+"\n"), 0o644); err != nil {
		t.Fatalf("writing shard fixture: %v", err)
	}

	r, err := Stats(dir, 1, 1)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if r.DocsIndexed != 1 || r.UniqueTokens != 1 {
		t.Fatalf("unexpected counts: %+v", r)
	}
	if r.TotalSizeKB <= 0 {
		t.Fatalf("TotalSizeKB = %f, want > 0", r.TotalSizeKB)
	}
}

func TestWriteBuildReportFormat(t *testing.T) {
	dir := t.TempDir()
	r := models.BuildReport{DocsIndexed: 3, UniqueTokens: 42, TotalSizeKB: 12.5}
	if err := WriteBuildReport(dir, r); err != nil {
		t.Fatalf("WriteBuildReport: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, BuildReportFileName))
	if err != nil {
		t.Fatalf("reading report.txt: %v", err)
	}
	want := "DOCUMENTS INDEXED: 3\nUNIQUE TOKENS: 42\nTOTAL SIZE (IN KB): 12.50 KB\n"
	if string(data) != want {
		t.Fatalf("report.txt = %q, want %q", data, want)
	}
}

func TestAppendSearchReportAppendsBlocks(t *testing.T) {
	dir := t.TempDir()
	if err := AppendSearchReport(dir, "cats", []string{"http://a", "http://b"}); err != nil {
		t.Fatalf("AppendSearchReport: %v", err)
	}
	if err := AppendSearchReport(dir, "dogs", nil); err != nil {
		t.Fatalf("AppendSearchReport: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, SearchReportFileName))
	if err != nil {
		t.Fatalf("reading search_report.txt: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "Query: cats\nhttp://a\nhttp://b\n\n") {
		t.Fatalf("missing first query block: %q", content)
	}
	if !strings.Contains(content, "Query: dogs\n\n") {
		t.Fatalf("missing second query block: %q", content)
	}
}
