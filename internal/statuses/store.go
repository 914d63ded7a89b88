package statuses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stitchboard/stitchboard/pkg/models"
)

var (
	ErrNotFound       = errors.New("status not found")
	ErrDuplicateValue = errors.New("status value already exists")
)

const uniqueViolation = "23505"

// PostgresStore persists the workflow stage catalog. The catalog is
// effectively static reference data, seeded at deployment time.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// List returns stages sorted by position; equal positions keep
// insertion order.
func (s *PostgresStore) List(ctx context.Context) ([]models.Status, error) {
	query := `SELECT id, title, value, ord FROM statuses ORDER BY ord ASC, created_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	statuses := []models.Status{}
	for rows.Next() {
		var st models.Status
		if err := rows.Scan(&st.ID, &st.Title, &st.Value, &st.Ord); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// Create appends a stage at the right edge of the board. The position
// is max(ord)+1 rather than the row count so that deleted stages never
// cause position collisions.
func (s *PostgresStore) Create(ctx context.Context, title, value string) (*models.Status, error) {
	st := &models.Status{
		ID:    uuid.New().String(),
		Title: title,
		Value: value,
	}

	query := `
		INSERT INTO statuses (id, title, value, ord)
		VALUES ($1, $2, $3, (SELECT COALESCE(MAX(ord), -1) + 1 FROM statuses))
		RETURNING ord
	`
	err := s.db.QueryRowContext(ctx, query, st.ID, st.Title, st.Value).Scan(&st.Ord)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateValue, value)
		}
		return nil, fmt.Errorf("create status: %w", err)
	}
	return st, nil
}

// Delete removes a stage by slug. Orders referencing the slug keep it;
// they simply stop rendering in any column until re-staged.
func (s *PostgresStore) Delete(ctx context.Context, value string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM statuses WHERE value=$1`, value)
	if err != nil {
		return fmt.Errorf("delete status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Seed installs the default workflow when the catalog is empty.
func (s *PostgresStore) Seed(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM statuses`).Scan(&count); err != nil {
		return fmt.Errorf("count statuses: %w", err)
	}
	if count > 0 {
		return nil
	}

	defaults := []models.Status{
		{Title: "New", Value: "new", Ord: 0},
		{Title: "Stitching In Progress", Value: "stitching_in_progress", Ord: 1},
		{Title: "Completed", Value: "done", Ord: 2},
		{Title: "Fittings", Value: "fittings", Ord: 3},
		{Title: "Ready for Pickup", Value: "ready", Ord: 4},
	}
	for _, st := range defaults {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO statuses (id, title, value, ord) VALUES ($1,$2,$3,$4)`,
			uuid.New().String(), st.Title, st.Value, st.Ord)
		if err != nil {
			return fmt.Errorf("seed status %s: %w", st.Value, err)
		}
	}
	return nil
}
