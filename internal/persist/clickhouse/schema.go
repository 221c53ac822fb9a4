package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const docIDsTableDDL = `
CREATE TABLE IF NOT EXISTS doc_ids (
    doc_id UInt32,
    url String
) ENGINE = ReplacingMergeTree()
ORDER BY doc_id
`

const termOffsetsTableDDL = `
CREATE TABLE IF NOT EXISTS term_offsets (
    term String,
    shard LowCardinality(String),
    byte_offset UInt64
) ENGINE = ReplacingMergeTree()
ORDER BY term
`

// InitializeSchema creates the doc_ids and term_offsets tables if they
// don't already exist.
func InitializeSchema(ctx context.Context, conn driver.Conn) error {
	if err := conn.Exec(ctx, docIDsTableDDL); err != nil {
		return fmt.Errorf("creating doc_ids table: %w", err)
	}
	if err := conn.Exec(ctx, termOffsetsTableDDL); err != nil {
		return fmt.Errorf("creating term_offsets table: %w", err)
	}
	return nil
}
