// Package indexer implements the Batch Indexer: it walks a corpus,
// tokenizes each document, filters near-duplicates, and flushes
// bounded-size batches of postings and docID mappings to the staging
// directory for the Shard Merger.
package indexer

import (
	"log/slog"

	"github.com/searchcore/searchcore/internal/corpus"
	"github.com/searchcore/searchcore/internal/simhash"
	"github.com/searchcore/searchcore/internal/stage"
	"github.com/searchcore/searchcore/internal/tokenizer"
	"github.com/searchcore/searchcore/pkg/models"
)

// Config controls batching and near-duplicate sensitivity.
type Config struct {
	BatchSize         int
	HammingThreshold  int
}

// Stats summarizes a completed build, feeding the report generator.
type Stats struct {
	DocsIndexed int
	BatchFiles  []BatchFiles
}

// BatchFiles names one flushed batch's staging files.
type BatchFiles struct {
	InvertedIndexPath string
	DocIDMappingPath  string
}

// Builder holds all mutable build state explicitly, as a value passed
// through the pipeline rather than hidden package globals — including the
// near-duplicate detector's fingerprint set.
type Builder struct {
	cfg      Config
	store    stage.Store
	detector *simhash.Detector
	logger   *slog.Logger

	nextDocID uint32
	batchNum  int
	inverted  map[string]models.PostingsList
	docIDs    map[uint32]string

	stats Stats
}

// New creates a Builder that stages batches through store.
func New(cfg Config, store stage.Store, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		cfg:      cfg,
		store:    store,
		detector: simhash.NewDetector(cfg.HammingThreshold),
		logger:   logger,
		inverted: make(map[string]models.PostingsList),
		docIDs:   make(map[uint32]string),
	}
}

// Index walks corpusDir, staging batches under stagingDir, and returns
// summary statistics for the completed build.
func (b *Builder) Index(corpusDir, stagingDir string) (Stats, error) {
	err := corpus.Walk(corpusDir, func(rec corpus.Record) error {
		b.ingest(rec)
		return b.maybeFlush(stagingDir)
	}, func(pe *corpus.ParseError) {
		b.logger.Warn("skipping corpus file", "path", pe.Path, "cause", pe.Err)
	})
	if err != nil {
		return Stats{}, err
	}

	if len(b.docIDs) > 0 {
		if err := b.flush(stagingDir); err != nil {
			return Stats{}, err
		}
	}

	return b.stats, nil
}

func (b *Builder) ingest(rec corpus.Record) {
	text := corpus.ExtractText(rec.Content.Content)
	tokens := tokenizer.Tokenize(text)

	if b.detector.IsDuplicate(tokens) {
		b.logger.Debug("skipping near-duplicate document", "url", rec.Content.URL)
		return
	}

	docID := b.nextDocID
	b.nextDocID++
	b.docIDs[docID] = rec.Content.URL
	b.stats.DocsIndexed++

	for term, tf := range tokenizer.TermFrequencies(tokens) {
		b.inverted[term] = append(b.inverted[term], models.Posting{DocID: docID, TF: uint32(tf)})
	}
}

func (b *Builder) flush(stagingDir string) error {
	invertedPath, docIDsPath, err := b.store.FlushBatch(stagingDir, b.batchNum, b.inverted, b.docIDs)
	if err != nil {
		return err
	}
	b.stats.BatchFiles = append(b.stats.BatchFiles, BatchFiles{
		InvertedIndexPath: invertedPath,
		DocIDMappingPath:  docIDsPath,
	})

	b.batchNum++
	b.inverted = make(map[string]models.PostingsList)
	b.docIDs = make(map[uint32]string)
	return nil
}

// maybeFlush flushes the current batch once it reaches the configured
// batch size. It is called after every record the corpus walk visits,
// including ones dropped as near-duplicates.
func (b *Builder) maybeFlush(stagingDir string) error {
	if len(b.docIDs) >= b.cfg.BatchSize {
		return b.flush(stagingDir)
	}
	return nil
}
