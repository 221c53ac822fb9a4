// Command searchcore builds and queries a local textual search index.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/searchcore/searchcore/internal/config"
	"github.com/searchcore/searchcore/internal/indexer"
	"github.com/searchcore/searchcore/internal/merge"
	"github.com/searchcore/searchcore/internal/offsets"
	"github.com/searchcore/searchcore/internal/persist/clickhouse"
	"github.com/searchcore/searchcore/internal/persist/jsonl"
	"github.com/searchcore/searchcore/internal/query"
	"github.com/searchcore/searchcore/internal/queryapi"
	"github.com/searchcore/searchcore/internal/report"
	"github.com/searchcore/searchcore/internal/stage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "index":
		err = runIndex(logger, os.Args[2:])
	case "query":
		err = runQuery(logger, os.Args[2:])
	case "serve":
		err = runServe(logger, os.Args[2:])
	case "persist-to-clickhouse":
		err = runPersistToClickHouse(logger, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "cause", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: searchcore <index|query|serve|persist-to-clickhouse> [flags]")
}

func runIndex(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	corpusDir := fs.String("corpus", "", "corpus directory (required)")
	indexDir := fs.String("index", "", "index output directory (required)")
	configPath := fs.String("config", "", "optional YAML config path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *corpusDir == "" || *indexDir == "" {
		return fmt.Errorf("-corpus and -index are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	stagingDir := filepath.Join(*indexDir, "staging")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}

	store, err := stage.New(cfg.Stage, stagingDir)
	if err != nil {
		return fmt.Errorf("creating staging backend: %w", err)
	}
	defer store.Close()

	builder := indexer.New(indexer.Config{
		BatchSize:        cfg.BatchSize,
		HammingThreshold: cfg.SimHashHammingThreshold,
	}, store, logger)

	logger.Info("starting index build", "corpus", *corpusDir, "index", *indexDir)
	stats, err := builder.Index(*corpusDir, stagingDir)
	if err != nil {
		return fmt.Errorf("indexing corpus: %w", err)
	}

	batches := make([]merge.BatchFiles, 0, len(stats.BatchFiles))
	for _, b := range stats.BatchFiles {
		batches = append(batches, merge.BatchFiles{
			InvertedIndexPath: b.InvertedIndexPath,
			DocIDMappingPath:  b.DocIDMappingPath,
		})
	}

	merger := merge.New(logger)
	uniqueTerms, err := merger.Run(batches, *indexDir)
	if err != nil {
		return fmt.Errorf("merging shards: %w", err)
	}

	offsetMap, err := offsets.Build(*indexDir, logger)
	if err != nil {
		return fmt.Errorf("building offset index: %w", err)
	}
	if err := offsets.Write(*indexDir, offsetMap); err != nil {
		return fmt.Errorf("writing offset index: %w", err)
	}

	r, err := report.Stats(*indexDir, stats.DocsIndexed, uniqueTerms)
	if err != nil {
		return fmt.Errorf("computing report stats: %w", err)
	}
	if err := report.WriteBuildReport(".", r); err != nil {
		return fmt.Errorf("writing report.txt: %w", err)
	}

	logger.Info("index build complete", "summary", report.HumanSummary(r))
	return nil
}

func runQuery(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	indexDir := fs.String("index", "", "index directory (required)")
	configPath := fs.String("config", "", "optional YAML config path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *indexDir == "" {
		return fmt.Errorf("-index is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	engine, err := loadEngine(*indexDir, cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Enter your search query (or :quit to exit):")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == ":quit" {
			break
		}
		if line == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		results, err := engine.Search(ctx, line, cfg.DefaultK)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "search error: %v\n", err)
			continue
		}

		urls := make([]string, 0, len(results))
		for _, r := range results {
			fmt.Printf("%.4f\t%s\n", r.Score, r.URL)
			urls = append(urls, r.URL)
		}
		if len(results) == 0 {
			fmt.Println("No matching documents found.")
		}

		if err := report.AppendSearchReport(".", line, urls); err != nil {
			logger.Warn("failed to append search report", "cause", err)
		}
	}
	return scanner.Err()
}

func runServe(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	indexDir := fs.String("index", "", "index directory (required)")
	addr := fs.String("addr", "127.0.0.1:8080", "listen address")
	configPath := fs.String("config", "", "optional YAML config path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *indexDir == "" {
		return fmt.Errorf("-index is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	engine, err := loadEngine(*indexDir, cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	srv := queryapi.New(*addr, engine, logger)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting query API", "addr", *addr)
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("query API error: %w", err)
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runPersistToClickHouse is the explicit, optional export step: it reads
// the jsonl artifacts build_index always produces and copies them into
// ClickHouse, so a query engine can later be pointed at persist: clickhouse
// instead of re-parsing JSON on every process start.
func runPersistToClickHouse(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("persist-to-clickhouse", flag.ExitOnError)
	indexDir := fs.String("index", "", "index directory holding merged_docIDs.json and index_offsets.json (required)")
	configPath := fs.String("config", "", "optional YAML config path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *indexDir == "" {
		return fmt.Errorf("-index is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	docIDs, err := jsonl.New(*indexDir).Load()
	if err != nil {
		return fmt.Errorf("loading docID map: %w", err)
	}
	offsetMap, err := offsets.Load(*indexDir)
	if err != nil {
		return fmt.Errorf("loading offsets: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := clickhouse.New(ctx, cfg.ClickHouseAddr, logger)
	if err != nil {
		return fmt.Errorf("connecting to clickhouse: %w", err)
	}
	defer store.Close()

	if err := store.Save(docIDs); err != nil {
		return fmt.Errorf("exporting docID map: %w", err)
	}
	if err := store.SaveOffsets(offsetMap); err != nil {
		return fmt.Errorf("exporting offsets: %w", err)
	}

	logger.Info("exported index to clickhouse", "addr", cfg.ClickHouseAddr, "docs", len(docIDs), "terms", len(offsetMap))
	return nil
}

func loadEngine(indexDir string, cfg config.Config, logger *slog.Logger) (*query.Engine, error) {
	if cfg.Persist == "clickhouse" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		store, err := clickhouse.New(ctx, cfg.ClickHouseAddr, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to clickhouse: %w", err)
		}
		docIDs, err := store.Load()
		if err != nil {
			return nil, err
		}
		offsetMap, err := store.LoadOffsets()
		if err != nil {
			return nil, err
		}
		return query.New(indexDir, offsetMap, docIDs), nil
	}

	offsetMap, err := offsets.Load(indexDir)
	if err != nil {
		return nil, err
	}
	docIDs, err := jsonl.New(indexDir).Load()
	if err != nil {
		return nil, err
	}
	return query.New(indexDir, offsetMap, docIDs), nil
}
