package auth

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

func (r *Repository) GetByUsername(ctx context.Context, username string) (Admin, error) {
	var admin Admin
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM admins
		WHERE username = $1
	`, username).Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Admin{}, err
		}
		return Admin{}, fmt.Errorf("query admin by username: %w", err)
	}

	return admin, nil
}

func (r *Repository) Create(ctx context.Context, username, passwordHash string) (Admin, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Admin{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	admin := Admin{
		ID:           id.String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO admins (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, admin.ID, admin.Username, admin.PasswordHash, admin.CreatedAt)
	if err != nil {
		return Admin{}, fmt.Errorf("insert admin: %w", err)
	}

	return admin, nil
}
