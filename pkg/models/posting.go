// Package models holds the on-disk record shapes shared between the
// indexer and the query engine. Both sides must agree on exactly how a
// posting and a shard line are encoded, so the encoding lives here instead
// of being duplicated in each package.
package models

import (
	"encoding/json"
	"fmt"
)

// Posting is a single (docID, tf) pair. On disk it is encoded as the
// two-element array [docID, tf], never as an object, to keep shard files
// compact.
type Posting struct {
	DocID uint32
	TF    uint32
}

// MarshalJSON encodes the posting as [docID, tf].
func (p Posting) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint32{p.DocID, p.TF})
}

// UnmarshalJSON decodes a posting from [docID, tf].
func (p *Posting) UnmarshalJSON(data []byte) error {
	var pair [2]uint32
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decoding posting: %w", err)
	}
	p.DocID, p.TF = pair[0], pair[1]
	return nil
}

// PostingsList is a term's postings in insertion order. Because docIDs are
// assigned monotonically and a document contributes at most one posting per
// term, a list built by simple concatenation across batches stays
// docID-ascending.
type PostingsList []Posting
