package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/searchcore/searchcore/pkg/models"
)

const (
	connectRetries = 3
	connectBackoff = 1 * time.Second
	insertRetries  = 3
)

// Store is a ClickHouse-backed implementation of persist.DocIDStore that
// additionally carries the offset index, so both artifacts a query engine
// needs at startup live in one place.
type Store struct {
	conn   driver.Conn
	logger *slog.Logger
}

// New dials addr, retrying with backoff on connection failure, and
// ensures the doc_ids and term_offsets tables exist before returning.
func New(ctx context.Context, addr string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := &clickhouse.Options{
		Addr:        []string{addr},
		Auth:        clickhouse.Auth{Database: "default", Username: "default"},
		Settings:    clickhouse.Settings{"max_execution_time": 60},
		DialTimeout: 10 * time.Second,
	}

	var conn driver.Conn
	var err error
	delay := connectBackoff
	for attempt := 1; attempt <= connectRetries; attempt++ {
		conn, err = clickhouse.Open(opts)
		if err == nil {
			if err = conn.Ping(ctx); err == nil {
				break
			}
		}
		if attempt == connectRetries {
			return nil, fmt.Errorf("connecting to ClickHouse at %s after %d attempts: %w", addr, connectRetries, err)
		}
		logger.Warn("clickhouse connect failed, retrying", "attempt", attempt, "cause", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}

	if err := InitializeSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{conn: conn, logger: logger}, nil
}

// Load implements persist.DocIDStore by reading every row of doc_ids.
func (s *Store) Load() (map[uint32]string, error) {
	ctx := context.Background()
	rows, err := s.conn.Query(ctx, "SELECT doc_id, url FROM doc_ids FINAL")
	if err != nil {
		return nil, fmt.Errorf("querying doc_ids: %w", err)
	}
	defer rows.Close()

	out := make(map[uint32]string)
	for rows.Next() {
		var docID uint32
		var url string
		if err := rows.Scan(&docID, &url); err != nil {
			return nil, fmt.Errorf("scanning doc_ids row: %w", err)
		}
		out[docID] = url
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("loading docID map (fatal startup error): doc_ids table is empty")
	}
	return out, rows.Err()
}

// Save implements persist.DocIDStore by bulk-inserting every docID -> URL
// pair. ReplacingMergeTree lets a re-export overwrite a prior export once
// ClickHouse merges parts; callers that need read-your-write consistency
// should query with FINAL, as Load does.
func (s *Store) Save(docIDs map[uint32]string) error {
	return s.retryInsert(func(ctx context.Context) error {
		batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO doc_ids")
		if err != nil {
			return err
		}
		for docID, url := range docIDs {
			if err := batch.Append(docID, url); err != nil {
				return err
			}
		}
		return batch.Send()
	})
}

// SaveOffsets bulk-inserts the term -> byte offset map, computing each
// term's shard bucket with the same rule the merger and query engine use.
func (s *Store) SaveOffsets(offsets map[string]uint64) error {
	return s.retryInsert(func(ctx context.Context) error {
		batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO term_offsets")
		if err != nil {
			return err
		}
		for term, offset := range offsets {
			if err := batch.Append(term, models.ShardBucket(term), offset); err != nil {
				return err
			}
		}
		return batch.Send()
	})
}

// LoadOffsets reads the term -> byte offset map back out.
func (s *Store) LoadOffsets() (map[string]uint64, error) {
	ctx := context.Background()
	rows, err := s.conn.Query(ctx, "SELECT term, byte_offset FROM term_offsets FINAL")
	if err != nil {
		return nil, fmt.Errorf("querying term_offsets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var term string
		var offset uint64
		if err := rows.Scan(&term, &offset); err != nil {
			return nil, fmt.Errorf("scanning term_offsets row: %w", err)
		}
		out[term] = offset
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("loading offsets (fatal startup error): term_offsets table is empty")
	}
	return out, rows.Err()
}

func (s *Store) retryInsert(fn func(context.Context) error) error {
	var err error
	delay := 100 * time.Millisecond

	for attempt := 1; attempt <= insertRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = fn(ctx)
		cancel()

		if err == nil {
			return nil
		}
		if attempt < insertRetries {
			s.logger.Warn("clickhouse insert failed, retrying", "attempt", attempt, "cause", err)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("insert failed after %d attempts: %w", insertRetries, err)
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
