package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	otpAuth "github.com/MrEthical07/otpAuth"
)

// ErrUserNotFound is returned when no row matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserStore implements otpAuth.UserProvider against the users table.
type UserStore struct {
	db *Postgres
}

func NewUserStore(db *Postgres) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (otpAuth.UserRecord, error) {
	query := `
		SELECT id, email, name, active, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return s.scanUser(s.db.Pool.QueryRow(ctx, query, email))
}

func (s *UserStore) FindByID(ctx context.Context, id int64) (otpAuth.UserRecord, error) {
	query := `
		SELECT id, email, name, active, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return s.scanUser(s.db.Pool.QueryRow(ctx, query, id))
}

func (s *UserStore) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user existence check: %w", err)
	}
	return exists, nil
}

func (s *UserStore) Create(ctx context.Context, email, name string) (otpAuth.UserRecord, error) {
	query := `
		INSERT INTO users (email, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, email, name, active, created_at, updated_at
	`
	return s.scanUser(s.db.Pool.QueryRow(ctx, query, email, name))
}

func (s *UserStore) UpdateName(ctx context.Context, id int64, name string) (otpAuth.UserRecord, error) {
	query := `
		UPDATE users
		SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, name, active, created_at, updated_at
	`
	return s.scanUser(s.db.Pool.QueryRow(ctx, query, id, name))
}

func (s *UserStore) Deactivate(ctx context.Context, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE users SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *UserStore) scanUser(row pgx.Row) (otpAuth.UserRecord, error) {
	var user otpAuth.UserRecord
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return otpAuth.UserRecord{}, ErrUserNotFound
	}
	if err != nil {
		return otpAuth.UserRecord{}, err
	}
	return user, nil
}
