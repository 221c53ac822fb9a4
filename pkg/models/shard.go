package models

import (
	"encoding/json"
	"fmt"
)

// ShardRecord is one line of a shard file: a single-key mapping from term to
// its postings list.
type ShardRecord struct {
	Term     string
	Postings PostingsList
}

// EncodeShardLine renders a shard record as the minimal UTF-8 byte sequence
// encoding {term: postings} followed by a trailing newline. encoding/json
// does not insert interior whitespace by default, which is what the line
// record contract in the spec requires.
func EncodeShardLine(term string, postings PostingsList) ([]byte, error) {
	b, err := json.Marshal(map[string]PostingsList{term: postings})
	if err != nil {
		return nil, fmt.Errorf("encoding shard line for %q: %w", term, err)
	}
	return append(b, '\n'), nil
}

// DecodeShardLine parses a single line of a shard file into a ShardRecord.
// A well-formed line carries exactly one key.
func DecodeShardLine(line []byte) (ShardRecord, error) {
	var raw map[string]PostingsList
	if err := json.Unmarshal(line, &raw); err != nil {
		return ShardRecord{}, fmt.Errorf("decoding shard line: %w", err)
	}
	if len(raw) != 1 {
		return ShardRecord{}, fmt.Errorf("shard line has %d keys, want 1", len(raw))
	}
	for term, postings := range raw {
		return ShardRecord{Term: term, Postings: postings}, nil
	}
	panic("unreachable")
}

// ShardBucket returns the shard name a term belongs to: a single lowercase
// letter, "numbers", or "special". Both the merger and the query engine
// must classify a term identically.
func ShardBucket(term string) string {
	if term == "" {
		return "special"
	}
	c := term[0]
	switch {
	case c >= 'a' && c <= 'z':
		return string(c)
	case c >= 'A' && c <= 'Z':
		return string(c + ('a' - 'A'))
	case c >= '0' && c <= '9':
		return "numbers"
	default:
		return "special"
	}
}

// ShardFileName returns the on-disk file name for a shard bucket.
func ShardFileName(bucket string) string {
	return bucket + "_inverted_index.jsonl"
}

// AllShardBuckets returns the 28 shard bucket names in a stable order:
// a..z, numbers, special.
func AllShardBuckets() []string {
	buckets := make([]string, 0, 28)
	for c := byte('a'); c <= 'z'; c++ {
		buckets = append(buckets, string(c))
	}
	return append(buckets, "numbers", "special")
}
