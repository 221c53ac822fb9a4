package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/searchcore/searchcore/pkg/models"
)

// buildFixtureIndex writes a three-shard index over three tiny documents and
// returns the engine plus the raw offsets for assertions.
func buildFixtureIndex(t *testing.T) (*Engine, map[string]uint64) {
	t.Helper()
	dir := t.TempDir()

	// doc 0: "cat cat dog", doc 1: "dog bird", doc 2: "cat bird bird"
	cShard := map[string]models.PostingsList{
		"cat": {{DocID: 0, TF: 2}, {DocID: 2, TF: 1}},
	}
	dShard := map[string]models.PostingsList{
		"dog": {{DocID: 0, TF: 1}, {DocID: 1, TF: 1}},
	}
	bShard := map[string]models.PostingsList{
		"bird": {{DocID: 1, TF: 1}, {DocID: 2, TF: 2}},
	}

	offsets := make(map[string]uint64)
	writeShard(t, dir, "c", []shardEntry{{"cat", cShard["cat"]}}, offsets)
	writeShard(t, dir, "d", []shardEntry{{"dog", dShard["dog"]}}, offsets)
	writeShard(t, dir, "b", []shardEntry{{"bird", bShard["bird"]}}, offsets)

	docIDs := map[uint32]string{0: "http://a", 1: "http://b", 2: "http://c"}
	return New(dir, offsets, docIDs), offsets
}

type shardEntry struct {
	term     string
	postings models.PostingsList
}

func writeShard(t *testing.T, dir, bucket string, entries []shardEntry, offsets map[string]uint64) {
	t.Helper()
	path := filepath.Join(dir, models.ShardFileName(bucket))
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating shard: %v", err)
	}
	defer f.Close()

	var pos uint64
	for _, e := range entries {
		line, err := models.EncodeShardLine(e.term, e.postings)
		if err != nil {
			t.Fatalf("encoding line: %v", err)
		}
		offsets[e.term] = pos
		if _, err := f.Write(line); err != nil {
			t.Fatalf("writing line: %v", err)
		}
		pos += uint64(len(line))
	}
}

func TestSearchRanksByScoreDescending(t *testing.T) {
	engine, _ := buildFixtureIndex(t)
	results, err := engine.Search(context.Background(), "cat", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].DocID != 0 {
		t.Fatalf("top result docID = %d, want 0 (single-term query scores both docs 1, lower docID first)", results[0].DocID)
	}
}

func TestSearchRespectsK(t *testing.T) {
	engine, _ := buildFixtureIndex(t)
	results, err := engine.Search(context.Background(), "cat dog bird", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (k=2)", len(results))
	}
}

func TestSearchUnindexedTermReturnsEmpty(t *testing.T) {
	engine, _ := buildFixtureIndex(t)
	results, err := engine.Search(context.Background(), "giraffe", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results for unindexed term, want 0", len(results))
	}
}

func TestSearchPunctuationOnlyReturnsEmpty(t *testing.T) {
	engine, _ := buildFixtureIndex(t)
	results, err := engine.Search(context.Background(), "!!! ...", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results for punctuation-only query, want 0", len(results))
	}
}

func TestSearchSingleDocumentCorpusStillRanks(t *testing.T) {
	// N=1 means every matched term has idf = ln(N/df) = ln(1) = 0, so every
	// norm is zero. The single document must still come back with score 0,
	// not be dropped.
	dir := t.TempDir()
	offsets := make(map[string]uint64)
	writeShard(t, dir, "c", []shardEntry{{"cat", models.PostingsList{{DocID: 0, TF: 1}}}}, offsets)

	engine := New(dir, offsets, map[uint32]string{0: "http://solo"})
	results, err := engine.Search(context.Background(), "cat", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].DocID != 0 || results[0].URL != "http://solo" || results[0].Score != 0 {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}

func TestSearchContextCancellation(t *testing.T) {
	engine, _ := buildFixtureIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Search(ctx, "cat dog", 10)
	if err == nil {
		t.Fatalf("expected error from cancelled context")
	}
}
