// Package merge implements the Shard Merger: it consolidates the batch
// files the indexer staged into the 28 final per-first-letter shard files
// and a single merged docID map.
package merge

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/searchcore/searchcore/pkg/models"
)

// ErrIndexAlreadyBuilt is returned when any final shard or the committed
// offsets/docID map already exists under the target index directory. The
// spec's open question on merge idempotence is resolved this way (option
// b): refuse to start rather than risk double-counting postings by
// re-appending to an existing shard.
var ErrIndexAlreadyBuilt = errors.New("index already built in this directory")

// BatchFiles names a staged batch pair.
type BatchFiles struct {
	InvertedIndexPath string
	DocIDMappingPath  string
}

// Merger consolidates staged batches into final shards.
type Merger struct {
	logger *slog.Logger
}

// New creates a Merger.
func New(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{logger: logger}
}

// Run merges batches (in the given order, which must be ascending batch
// index) into indexDir, deleting each batch file once merged, and returns
// the total number of distinct terms written across all shards.
func (m *Merger) Run(batches []BatchFiles, indexDir string) (int, error) {
	if err := guardNotAlreadyBuilt(indexDir); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating index directory: %w", err)
	}

	mergedDocIDs := make(map[string]string)

	for _, batch := range batches {
		accumulator, err := loadBatchPostings(batch.InvertedIndexPath)
		if err != nil {
			return 0, err
		}

		bucketed := bucketByShard(accumulator)
		for bucket, terms := range bucketed {
			if err := mergeIntoShard(indexDir, bucket, terms); err != nil {
				return 0, err
			}
		}

		docIDs, err := loadBatchDocIDs(batch.DocIDMappingPath)
		if err != nil {
			return 0, err
		}
		for docID, url := range docIDs {
			mergedDocIDs[docID] = url
		}

		if err := os.Remove(batch.InvertedIndexPath); err != nil {
			m.logger.Warn("failed to remove merged batch postings file", "path", batch.InvertedIndexPath, "cause", err)
		}
		if err := os.Remove(batch.DocIDMappingPath); err != nil {
			m.logger.Warn("failed to remove merged batch docID file", "path", batch.DocIDMappingPath, "cause", err)
		}
	}

	if err := writeDocIDMap(filepath.Join(indexDir, "merged_docIDs.json"), mergedDocIDs); err != nil {
		return 0, err
	}

	return countShardTerms(indexDir)
}

func guardNotAlreadyBuilt(indexDir string) error {
	candidates := append([]string{
		filepath.Join(indexDir, "index_offsets.json"),
		filepath.Join(indexDir, "merged_docIDs.json"),
	}, shardPaths(indexDir)...)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s already exists", ErrIndexAlreadyBuilt, path)
		}
	}
	return nil
}

func shardPaths(indexDir string) []string {
	paths := make([]string, 0, 28)
	for _, bucket := range models.AllShardBuckets() {
		paths = append(paths, filepath.Join(indexDir, models.ShardFileName(bucket)))
	}
	return paths
}

func loadBatchPostings(path string) (map[string]models.PostingsList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening batch file %s: %w", path, err)
	}
	defer f.Close()

	result := make(map[string]models.PostingsList)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := models.DecodeShardLine(line)
		if err != nil {
			return nil, fmt.Errorf("decoding batch line in %s: %w", path, err)
		}
		result[rec.Term] = append(result[rec.Term], rec.Postings...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading batch file %s: %w", path, err)
	}
	return result, nil
}

func loadBatchDocIDs(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch docID file %s: %w", path, err)
	}
	var docIDs map[string]string
	if err := json.Unmarshal(data, &docIDs); err != nil {
		return nil, fmt.Errorf("decoding batch docID file %s: %w", path, err)
	}
	return docIDs, nil
}

// bucketByShard classifies terms by first-character bucket. The accumulator
// and the result are maps, so the order of terms within a bucket is not
// defined.
func bucketByShard(accumulator map[string]models.PostingsList) map[string]map[string]models.PostingsList {
	out := make(map[string]map[string]models.PostingsList)
	for term, postings := range accumulator {
		bucket := models.ShardBucket(term)
		if out[bucket] == nil {
			out[bucket] = make(map[string]models.PostingsList)
		}
		out[bucket][term] = postings
	}
	return out
}

// mergeIntoShard appends terms into the bucket's on-disk shard, extending
// any existing postings for a term already present (list concatenation),
// then rewrites the shard as a fresh line-delimited file.
func mergeIntoShard(indexDir, bucket string, terms map[string]models.PostingsList) error {
	path := filepath.Join(indexDir, models.ShardFileName(bucket))

	existingOrder, existing, err := loadExistingShard(path)
	if err != nil {
		return err
	}

	for term, postings := range terms {
		if _, ok := existing[term]; !ok {
			existingOrder = append(existingOrder, term)
		}
		existing[term] = append(existing[term], postings...)
	}

	return writeShard(path, existingOrder, existing)
}

func loadExistingShard(path string) ([]string, map[string]models.PostingsList, error) {
	existing := make(map[string]models.PostingsList)
	var order []string

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return order, existing, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening shard %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := models.DecodeShardLine(line)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding existing shard line in %s: %w", path, err)
		}
		if _, ok := existing[rec.Term]; !ok {
			order = append(order, rec.Term)
		}
		existing[rec.Term] = rec.Postings
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading shard %s: %w", path, err)
	}
	return order, existing, nil
}

func writeShard(path string, order []string, terms map[string]models.PostingsList) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating shard %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, term := range order {
		line, err := models.EncodeShardLine(term, terms[term])
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("writing shard %s: %w", path, err)
		}
	}
	return w.Flush()
}

func writeDocIDMap(path string, docIDs map[string]string) error {
	data, err := json.Marshal(docIDs)
	if err != nil {
		return fmt.Errorf("encoding docID map: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing docID map %s: %w", path, err)
	}
	return nil
}

func countShardTerms(indexDir string) (int, error) {
	total := 0
	for _, bucket := range models.AllShardBuckets() {
		path := filepath.Join(indexDir, models.ShardFileName(bucket))
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("opening shard %s: %w", path, err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		for scanner.Scan() {
			if len(scanner.Bytes()) > 0 {
				total++
			}
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return 0, fmt.Errorf("reading shard %s: %w", path, err)
		}
	}
	return total, nil
}
