// Package query implements the Query Engine: tokenize a query string,
// seek directly into the shard files that carry its terms using the
// offset index, score every candidate document by TF-IDF cosine
// similarity, and return the top-K URLs.
package query

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/searchcore/searchcore/internal/tokenizer"
	"github.com/searchcore/searchcore/pkg/models"
)

// Engine answers searches against a built index. The offset and docID maps
// are read-only after construction, and the shard reader serializes each
// seek-and-read on its cached *os.File under a mutex, so an Engine is safe
// to share across goroutines.
type Engine struct {
	indexDir   string
	offsets    map[string]uint64
	docIDs     map[uint32]string
	totalDocs  int
	shardCache *shardReader
}

// New builds a query engine from a loaded offset index and docID mapping.
// The corpus size N used in the TF-IDF idf term is always len(docIDs);
// New takes no separate document count, so a docID map that lacks some
// indexed documents also lowers N.
func New(indexDir string, offsets map[string]uint64, docIDs map[uint32]string) *Engine {
	return &Engine{
		indexDir:   indexDir,
		offsets:    offsets,
		docIDs:     docIDs,
		totalDocs:  len(docIDs),
		shardCache: newShardReader(indexDir),
	}
}

// Close releases every shard file handle the engine opened while
// answering queries.
func (e *Engine) Close() error {
	return e.shardCache.Close()
}

// Result is one ranked hit.
type Result struct {
	DocID uint32
	URL   string
	Score float64
}

// Search tokenizes query, scores every document containing at least one
// query term, and returns the top k by score descending then docID
// ascending. A zero cosine score (either vector's norm is zero, e.g. a
// matched term appears in every indexed document) still ranks; it is not
// a reason to drop the candidate. It never returns an error for a query
// that matches nothing; an empty slice is a normal result. ctx is checked
// between per-term shard seeks so a host can bound a slow query without a
// new cancellation primitive inside the scoring loop itself.
func (e *Engine) Search(ctx context.Context, query string, k int) ([]Result, error) {
	tokens := tokenizer.Tokenize(query)
	if len(tokens) == 0 || k <= 0 {
		return nil, nil
	}
	queryTF := tokenizer.TermFrequencies(tokens)

	docVecs := make(map[uint32]map[string]float64)
	queryWeight := make(map[string]float64, len(queryTF))

	for term, tf := range queryTF {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		offset, ok := e.offsets[term]
		if !ok {
			continue
		}
		rec, err := e.shardCache.readAt(models.ShardBucket(term), offset)
		if err != nil {
			slog.Warn("skipping unreadable shard record", "term", term, "cause", err)
			continue
		}
		df := len(rec.Postings)
		if df == 0 {
			continue
		}
		idf := math.Log(float64(e.totalDocs) / float64(df))
		queryWeight[term] = (1 + math.Log(float64(tf))) * idf

		for _, p := range rec.Postings {
			vec, ok := docVecs[p.DocID]
			if !ok {
				vec = make(map[string]float64)
				docVecs[p.DocID] = vec
			}
			vec[term] = (1 + math.Log(float64(p.TF))) * idf
		}
	}

	qNorm := vectorNorm(queryWeight)

	results := make([]Result, 0, len(docVecs))
	for docID, vec := range docVecs {
		score := cosineSimilarity(queryWeight, vec, qNorm)
		// A docID present in doc_vecs always comes from a posting this
		// engine just read, so a missing mapping shouldn't occur; when it
		// does, keep the docID with an empty URL rather than dropping it,
		// matching docID_mapping.get(...)'s None entry.
		url := e.docIDs[docID]
		results = append(results, Result{DocID: docID, URL: url, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func vectorNorm(vec map[string]float64) float64 {
	var sumSq float64
	for _, w := range vec {
		sumSq += w * w
	}
	return math.Sqrt(sumSq)
}

func cosineSimilarity(query, doc map[string]float64, qNorm float64) float64 {
	dNorm := vectorNorm(doc)
	if qNorm == 0 || dNorm == 0 {
		return 0
	}
	var dot float64
	for term, qw := range query {
		if dw, ok := doc[term]; ok {
			dot += qw * dw
		}
	}
	return dot / (qNorm * dNorm)
}
