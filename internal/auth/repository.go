package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatvault/backend/internal/models"
)

const userColumns = `id, organization_id, email, password_hash, full_name, role,
	COALESCE(api_key_hash,''), is_active, created_at, updated_at`

// Repository handles user persistence for authentication. It satisfies
// UserStore: lookups return (nil, nil) on a clean miss and retry once on
// transient errors so a momentary connection blip does not fail a request.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.Password, &u.FullName, &u.Role,
		&u.APIKeyHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// retryOnce runs fn and retries a single time on error. Misses are not
// errors here (scanUser maps ErrNoRows to nil), so any error is treated
// as transient.
func retryOnce(fn func() (*models.User, error)) (*models.User, error) {
	u, err := fn()
	if err == nil {
		return u, nil
	}
	return fn()
}

// GetByID returns a user by ID, or (nil, nil) when missing.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return retryOnce(func() (*models.User, error) {
		return scanUser(r.pool.QueryRow(ctx, q, id))
	})
}

// GetByEmail returns a user by email, or (nil, nil) when missing.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return retryOnce(func() (*models.User, error) {
		return scanUser(r.pool.QueryRow(ctx, q, email))
	})
}

// GetByAPIKeyHash returns a user by API key digest, or (nil, nil) when
// missing. The query is a single equality on the digest column; its shape
// does not depend on how much of the key matches.
func (r *Repository) GetByAPIKeyHash(ctx context.Context, hash string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE api_key_hash = $1`
	return retryOnce(func() (*models.User, error) {
		return scanUser(r.pool.QueryRow(ctx, q, hash))
	})
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (organization_id, email, password_hash, full_name, role, api_key_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, u.OrganizationID, u.Email, u.Password, u.FullName,
		string(u.Role), u.APIKeyHash, u.IsActive).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}
