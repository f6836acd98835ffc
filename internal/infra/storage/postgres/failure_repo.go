package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/genrelay/internal/core/domain"
)

// FailureRepo stores dispatch failure records in PostgreSQL.
type FailureRepo struct {
	db *DB
}

// NewFailureRepo creates a new PostgreSQL failure-record repository.
func NewFailureRepo(db *DB) *FailureRepo {
	return &FailureRepo{db: db}
}

// Save persists one failure record.
func (r *FailureRepo) Save(ctx context.Context, rec *domain.FailureRecord) error {
	query := `
		INSERT INTO dispatch_failures (id, label, summary, error, attempts, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Label,
		rec.Summary,
		rec.Error,
		rec.Attempts,
		string(rec.Status),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save failure record: %w", err)
	}
	return nil
}

type failureRow struct {
	ID        string    `db:"id"`
	Label     string    `db:"label"`
	Summary   string    `db:"summary"`
	Error     string    `db:"error"`
	Attempts  int       `db:"attempts"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
}

// Recent returns the newest failure records, for the CLI inspection
// command.
func (r *FailureRepo) Recent(ctx context.Context, limit int) ([]domain.FailureRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []failureRow
	query := `
		SELECT id, label, summary, error, attempts, status, created_at
		FROM dispatch_failures
		ORDER BY created_at DESC
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list failure records: %w", err)
	}

	recs := make([]domain.FailureRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, domain.FailureRecord{
			ID:        row.ID,
			Label:     row.Label,
			Summary:   row.Summary,
			Error:     row.Error,
			Attempts:  row.Attempts,
			Status:    domain.FailureStatus(row.Status),
			CreatedAt: row.CreatedAt,
		})
	}
	return recs, nil
}
