// Package offsets implements the Offset Index Builder: a single pass over
// every shard file recording the byte offset at which each term's record
// begins, so the query engine can seek directly to a term's posting list
// without scanning a shard.
package offsets

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/searchcore/searchcore/pkg/models"
)

// Build scans every shard file under indexDir and returns a term -> byte
// offset map. Malformed lines are skipped with a warning, never halting
// the build.
func Build(indexDir string, logger *slog.Logger) (map[string]uint64, error) {
	if logger == nil {
		logger = slog.Default()
	}

	offsets := make(map[string]uint64)
	for _, bucket := range models.AllShardBuckets() {
		path := filepath.Join(indexDir, models.ShardFileName(bucket))
		if err := scanShard(path, offsets, logger); err != nil {
			return nil, err
		}
	}
	return offsets, nil
}

func scanShard(path string, offsets map[string]uint64, logger *slog.Logger) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening shard %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var pos uint64
	for {
		lineStart := pos
		line, err := r.ReadString('\n')
		pos += uint64(len(line))
		if len(line) > 0 {
			trimmed := line
			if trimmed[len(trimmed)-1] == '\n' {
				trimmed = trimmed[:len(trimmed)-1]
			}
			if len(trimmed) > 0 {
				rec, decodeErr := models.DecodeShardLine([]byte(trimmed))
				if decodeErr != nil {
					logger.Warn("skipping corrupt shard line", "path", path, "offset", lineStart, "cause", decodeErr)
				} else {
					offsets[rec.Term] = lineStart
				}
			}
		}
		if err != nil {
			break
		}
	}
	return nil
}

// Write serializes the offset map as a single compact JSON object to
// index_offsets.json under indexDir.
func Write(indexDir string, offsetMap map[string]uint64) error {
	data, err := json.Marshal(offsetMap)
	if err != nil {
		return fmt.Errorf("encoding offsets: %w", err)
	}
	path := filepath.Join(indexDir, "index_offsets.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Load reads index_offsets.json from indexDir. A missing file is a fatal
// startup error per the spec.
func Load(indexDir string) (map[string]uint64, error) {
	path := filepath.Join(indexDir, "index_offsets.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading offsets (fatal startup error): %w", err)
	}
	var offsetMap map[string]uint64
	if err := json.Unmarshal(data, &offsetMap); err != nil {
		return nil, fmt.Errorf("parsing offsets file %s: %w", path, err)
	}
	return offsetMap, nil
}
