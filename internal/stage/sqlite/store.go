// Package sqlite implements the default batch-staging backend for the
// Batch Indexer using a pure-Go SQLite database as the transactional
// scratch space for one batch's postings and docID rows. The transaction
// gives the flush its atomicity; the indexer's single-threaded scheduling
// model means no background batch writer is needed the way the teacher
// store's high-throughput telemetry ingest uses one.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/searchcore/searchcore/pkg/models"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.up.sql
var migration001SQL string

// Store is a SQLite-backed staging store.
type Store struct {
	db *sql.DB
}

// New opens (creating if absent) a SQLite database at dbPath and applies
// the staging schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening staging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(migration001SQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running staging schema migration: %w", err)
	}

	return &Store{db: db}, nil
}

// FlushBatch writes the batch's rows in a single transaction, reads them
// back grouped by term (and by docID for the docID map), serializes the two
// staging files, and clears the batch's rows from the database.
func (s *Store) FlushBatch(stagingDir string, batchNum int, inverted map[string]models.PostingsList, docIDs map[uint32]string) (string, string, error) {
	if err := s.writeBatch(batchNum, inverted, docIDs); err != nil {
		return "", "", err
	}

	invertedPath := filepath.Join(stagingDir, fmt.Sprintf("inverted_index_%d.jsonl", batchNum))
	docIDsPath := filepath.Join(stagingDir, fmt.Sprintf("doc_id_mapping_%d.json", batchNum))

	if err := s.writePostingsFile(batchNum, invertedPath); err != nil {
		return "", "", err
	}
	if err := s.writeDocIDsFile(batchNum, docIDsPath); err != nil {
		return "", "", err
	}

	if _, err := s.db.Exec(`DELETE FROM stage_postings WHERE batch_id = ?`, batchNum); err != nil {
		return "", "", fmt.Errorf("clearing staged postings: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM stage_docids WHERE batch_id = ?`, batchNum); err != nil {
		return "", "", fmt.Errorf("clearing staged docIDs: %w", err)
	}

	return invertedPath, docIDsPath, nil
}

func (s *Store) writeBatch(batchNum int, inverted map[string]models.PostingsList, docIDs map[uint32]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin staging transaction: %w", err)
	}
	defer tx.Rollback()

	postingsStmt, err := tx.Prepare(`INSERT INTO stage_postings (batch_id, term, doc_id, tf) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing postings insert: %w", err)
	}
	defer postingsStmt.Close()

	for term, postings := range inverted {
		for _, p := range postings {
			if _, err := postingsStmt.Exec(batchNum, term, p.DocID, p.TF); err != nil {
				return fmt.Errorf("inserting posting for %q: %w", term, err)
			}
		}
	}

	docIDStmt, err := tx.Prepare(`INSERT INTO stage_docids (batch_id, doc_id, url) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing docID insert: %w", err)
	}
	defer docIDStmt.Close()

	for docID, url := range docIDs {
		if _, err := docIDStmt.Exec(batchNum, docID, url); err != nil {
			return fmt.Errorf("inserting docID %d: %w", docID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing staging transaction: %w", err)
	}
	return nil
}

func (s *Store) writePostingsFile(batchNum int, path string) error {
	rows, err := s.db.Query(`SELECT term, doc_id, tf FROM stage_postings WHERE batch_id = ? ORDER BY term, doc_id`, batchNum)
	if err != nil {
		return fmt.Errorf("reading staged postings: %w", err)
	}
	defer rows.Close()

	order := make([]string, 0)
	byTerm := make(map[string]models.PostingsList)
	for rows.Next() {
		var term string
		var docID, tf uint32
		if err := rows.Scan(&term, &docID, &tf); err != nil {
			return fmt.Errorf("scanning staged posting: %w", err)
		}
		if _, ok := byTerm[term]; !ok {
			order = append(order, term)
		}
		byTerm[term] = append(byTerm[term], models.Posting{DocID: docID, TF: tf})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating staged postings: %w", err)
	}

	return writeJSONLines(path, order, byTerm)
}

func (s *Store) writeDocIDsFile(batchNum int, path string) error {
	rows, err := s.db.Query(`SELECT doc_id, url FROM stage_docids WHERE batch_id = ?`, batchNum)
	if err != nil {
		return fmt.Errorf("reading staged docIDs: %w", err)
	}
	defer rows.Close()

	docIDs := make(map[string]string)
	for rows.Next() {
		var docID uint32
		var url string
		if err := rows.Scan(&docID, &url); err != nil {
			return fmt.Errorf("scanning staged docID: %w", err)
		}
		docIDs[strconv.FormatUint(uint64(docID), 10)] = url
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating staged docIDs: %w", err)
	}

	return writeJSONFile(path, docIDs)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
