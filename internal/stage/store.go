// Package stage defines the Batch Indexer's staging backend: the mechanism
// by which one batch's in-memory postings and docID maps become the two
// on-disk files (inverted_index_<k>.jsonl, doc_id_mapping_<k>.json) the
// Shard Merger consumes. This is purely an internal representation of data
// the spec already treats as ephemeral — it has no bearing on the
// committed shard/offset/docID files in the external interface.
package stage

import "github.com/searchcore/searchcore/pkg/models"

// Store flushes one completed batch to the staging directory and returns
// the paths of the two files it wrote.
type Store interface {
	FlushBatch(stagingDir string, batchNum int, inverted map[string]models.PostingsList, docIDs map[uint32]string) (invertedPath, docIDsPath string, err error)
	Close() error
}
