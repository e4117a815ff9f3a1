package invite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByCode(ctx context.Context, code string) (Code, error) {
	var c Code
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, first_name, last_name, created_at, expires_at, max_calls, call_count
		FROM invitation_codes
		WHERE code = $1
	`, code).Scan(&c.ID, &c.Code, &c.FirstName, &c.LastName, &c.CreatedAt, &c.ExpiresAt, &c.MaxCalls, &c.CallCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Code{}, err
		}
		return Code{}, fmt.Errorf("query invitation code: %w", err)
	}

	c.IsValid = c.Valid(time.Now().UTC())
	return c, nil
}

func (r *Repository) List(ctx context.Context) ([]Code, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, first_name, last_name, created_at, expires_at, max_calls, call_count
		FROM invitation_codes
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query invitation codes: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	codes := make([]Code, 0)
	for rows.Next() {
		var c Code
		if err := rows.Scan(&c.ID, &c.Code, &c.FirstName, &c.LastName, &c.CreatedAt, &c.ExpiresAt, &c.MaxCalls, &c.CallCount); err != nil {
			return nil, fmt.Errorf("scan invitation code: %w", err)
		}
		c.IsValid = c.Valid(now)
		codes = append(codes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitation codes: %w", err)
	}

	return codes, nil
}

func (r *Repository) Create(ctx context.Context, input CodeInput) (Code, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Code{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	c := Code{
		ID:        id.String(),
		Code:      input.Code,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(input.ExpiresIn) * 24 * time.Hour),
		MaxCalls:  input.MaxCalls,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO invitation_codes (id, code, first_name, last_name, created_at, expires_at, max_calls, call_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
	`, c.ID, c.Code, c.FirstName, c.LastName, c.CreatedAt, c.ExpiresAt, c.MaxCalls)
	if err != nil {
		return Code{}, fmt.Errorf("insert invitation code: %w", err)
	}

	c.IsValid = c.Valid(now)
	return c, nil
}

// IncrementCallCount bumps a code's usage counter atomically and reports
// whether the code existed.
func (r *Repository) IncrementCallCount(ctx context.Context, code string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		UPDATE invitation_codes
		SET call_count = call_count + 1
		WHERE code = $1
		RETURNING id
	`, code).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("increment call count: %w", err)
	}

	return true, nil
}

// DeleteExpiredBefore removes codes whose expiry passed before the cutoff,
// at most batchSize per call.
func (r *Repository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT id
			FROM invitation_codes
			WHERE expires_at < $1
			ORDER BY expires_at ASC
			LIMIT $2
		)
		DELETE FROM invitation_codes t
		USING stale
		WHERE t.id = stale.id
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete expired invitation codes: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired invitation codes rows affected: %w", err)
	}

	return affected, nil
}
