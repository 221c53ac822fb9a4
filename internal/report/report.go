// Package report writes the build-time and query-time audit files:
// report.txt, produced once after an index build finishes, and
// search_report.txt, appended to after every interactive query.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/searchcore/searchcore/pkg/models"
)

// BuildReportFileName is the fixed report.txt name the indexer writes
// to the current working directory, matching the reference program.
const BuildReportFileName = "report.txt"

// SearchReportFileName is the fixed search_report.txt name the query
// REPL appends to.
const SearchReportFileName = "search_report.txt"

// Stats computes a BuildReport from a completed index: document and
// unique-term counts plus the combined on-disk size of every shard file
// and the docID mapping file.
func Stats(indexDir string, docsIndexed, uniqueTokens int) (models.BuildReport, error) {
	var totalBytes int64

	docIDPath := filepath.Join(indexDir, "merged_docIDs.json")
	if info, err := os.Stat(docIDPath); err == nil {
		totalBytes += info.Size()
	}

	for _, bucket := range models.AllShardBuckets() {
		path := filepath.Join(indexDir, models.ShardFileName(bucket))
		if info, err := os.Stat(path); err == nil {
			totalBytes += info.Size()
		}
	}

	return models.BuildReport{
		DocsIndexed:  docsIndexed,
		UniqueTokens: uniqueTokens,
		TotalSizeKB:  float64(totalBytes) / 1024,
	}, nil
}

// HumanSummary renders a one-line summary for interactive use. The
// report.txt file itself never uses this formatting; only the CLI's
// terminal output does, so automated consumers of report.txt see the
// exact plain format the original program writes.
func HumanSummary(r models.BuildReport) string {
	return fmt.Sprintf("indexed %s documents, %s unique tokens, %s on disk",
		humanize.Comma(int64(r.DocsIndexed)),
		humanize.Comma(int64(r.UniqueTokens)),
		humanize.Bytes(uint64(r.TotalSizeKB*1024)),
	)
}

// WriteBuildReport writes report.txt to dir in the fixed three-line
// format automated consumers of the original program already expect.
func WriteBuildReport(dir string, r models.BuildReport) error {
	path := filepath.Join(dir, BuildReportFileName)
	content := fmt.Sprintf(
		"DOCUMENTS INDEXED: %d\nUNIQUE TOKENS: %d\nTOTAL SIZE (IN KB): %.2f KB\n",
		r.DocsIndexed, r.UniqueTokens, r.TotalSizeKB,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// AppendSearchReport appends one query's results to search_report.txt
// under dir, in the same query/urls/blank-line block format as the
// reference program.
func AppendSearchReport(dir, query string, urls []string) error {
	path := filepath.Join(dir, SearchReportFileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "Query: %s\n", query); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for _, url := range urls {
		if _, err := fmt.Fprintf(f, "%s\n", url); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if _, err := fmt.Fprintln(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
