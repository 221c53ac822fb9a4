package query

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/searchcore/searchcore/pkg/models"
)

// shardReader keeps one open *os.File per shard bucket touched so far,
// since a query typically revisits only a handful of the 28 buckets.
type shardReader struct {
	indexDir string

	mu    sync.Mutex
	files map[string]*os.File
}

func newShardReader(indexDir string) *shardReader {
	return &shardReader{indexDir: indexDir, files: make(map[string]*os.File)}
}

// readAt seeks to offset in bucket's shard file and decodes the single
// line found there.
func (r *shardReader) readAt(bucket string, offset uint64) (models.ShardRecord, error) {
	f, err := r.open(bucket)
	if err != nil {
		return models.ShardRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := f.Seek(int64(offset), 0); err != nil {
		return models.ShardRecord{}, fmt.Errorf("seeking shard %s at %d: %w", bucket, offset, err)
	}
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return models.ShardRecord{}, fmt.Errorf("reading shard %s at %d: %w", bucket, offset, err)
	}
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	return models.DecodeShardLine([]byte(line))
}

func (r *shardReader) open(bucket string) (*os.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.files[bucket]; ok {
		return f, nil
	}
	path := filepath.Join(r.indexDir, models.ShardFileName(bucket))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shard %s: %w", bucket, err)
	}
	r.files[bucket] = f
	return f, nil
}

// Close releases every shard file handle opened during queries.
func (r *shardReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for bucket, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing shard %s: %w", bucket, err)
		}
		delete(r.files, bucket)
	}
	return firstErr
}
