package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/tenancy"
	"github.com/chatvault/backend/pkg/pagination"
)

const userColumns = `id, organization_id, email, password_hash, full_name, role, COALESCE(api_key_hash,''), is_active, created_at, updated_at`

// UserUpdate carries the mutable user fields. Nil pointers leave the
// column untouched.
type UserUpdate struct {
	FullName *string
	Role     *models.Role
	IsActive *bool
}

// Repository provides user management queries against Postgres.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.OrganizationID, &u.Email, &u.Password, &u.FullName,
		&u.Role, &u.APIKeyHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (organization_id, email, password_hash, full_name, role, api_key_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), $7)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		u.OrganizationID, u.Email, u.Password, u.FullName, u.Role, u.APIKeyHash, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// GetOne fetches the single user matching the filter, or nil if none does.
func (r *Repository) GetOne(ctx context.Context, f *tenancy.Filter) (*models.User, error) {
	where, args := f.SQL(1)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s`, userColumns, where)
	return scanUser(r.db.QueryRow(ctx, query, args...))
}

// GetByEmail looks up a user by email within the filter's scope.
func (r *Repository) GetByEmail(ctx context.Context, f *tenancy.Filter, email string) (*models.User, error) {
	f.Eq("email", email)
	return r.GetOne(ctx, f)
}

// List returns the page of users matching the filter plus the total count.
func (r *Repository) List(ctx context.Context, f *tenancy.Filter, p pagination.Params) ([]models.User, int64, error) {
	where, args := f.SQL(1)

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM users WHERE %s`, where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		userColumns, where, p.OrderBy(), len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]models.User, 0, p.Limit)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID, &u.OrganizationID, &u.Email, &u.Password, &u.FullName,
			&u.Role, &u.APIKeyHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Update applies the non-nil fields of upd to the user matching the filter.
// Returns nil when no row matched.
func (r *Repository) Update(ctx context.Context, f *tenancy.Filter, upd UserUpdate) (*models.User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.FullName != nil {
		set("full_name", *upd.FullName)
	}
	if upd.Role != nil {
		set("role", *upd.Role)
	}
	if upd.IsActive != nil {
		set("is_active", *upd.IsActive)
	}

	where, whereArgs := f.SQL(len(args) + 1)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), where, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, append(args, whereArgs...)...))
}

// UpdateAPIKeyHash replaces the user's API key hash within the filter's
// scope. Returns nil when no row matched.
func (r *Repository) UpdateAPIKeyHash(ctx context.Context, f *tenancy.Filter, hash string) (*models.User, error) {
	where, args := f.SQL(2)
	query := fmt.Sprintf(`UPDATE users SET api_key_hash = $1, updated_at = NOW() WHERE %s RETURNING %s`,
		where, userColumns)
	return scanUser(r.db.QueryRow(ctx, query, append([]interface{}{hash}, args...)...))
}

// Delete removes the user matching the filter. Returns false when no row
// matched.
func (r *Repository) Delete(ctx context.Context, f *tenancy.Filter) (bool, error) {
	where, args := f.SQL(1)
	query := fmt.Sprintf(`DELETE FROM users WHERE %s RETURNING id`, where)
	var id uuid.UUID
	err := r.db.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
