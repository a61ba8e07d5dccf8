package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceStore allocates per-prefix, per-day document numbers backed by a
// counter table. The upsert increments atomically, so concurrent callers
// never receive the same number.
type SequenceStore struct {
	pool *pgxpool.Pool
}

// NewSequenceStore constructs the store.
func NewSequenceStore(pool *pgxpool.Pool) *SequenceStore {
	return &SequenceStore{pool: pool}
}

// NextCode returns a human-readable document code {PREFIX}-{YYYYMMDD}-{seq}.
func (s *SequenceStore) NextCode(ctx context.Context, prefix string, day time.Time) (string, error) {
	if s == nil {
		return "", errors.New("sequence store not initialised")
	}
	if prefix == "" {
		return "", errors.New("sequence prefix required")
	}
	if day.IsZero() {
		day = time.Now()
	}
	seqDate := day.Format("2006-01-02")
	var seq int64
	err := s.pool.QueryRow(ctx, `INSERT INTO doc_sequences (prefix, seq_date, last_seq)
VALUES ($1, $2, 1)
ON CONFLICT (prefix, seq_date) DO UPDATE SET last_seq = doc_sequences.last_seq + 1
RETURNING last_seq`, prefix, seqDate).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("shared: next sequence: %w", err)
	}
	return FormatCode(prefix, day, seq), nil
}

// FormatCode renders the document code without touching storage.
func FormatCode(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), seq)
}
