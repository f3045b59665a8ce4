package organizations

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

const orgColumns = `id, name, slug, api_key_hash, retention_days, is_active, created_at, updated_at`

// OrgUpdate holds the mutable organization fields; nil means unchanged.
type OrgUpdate struct {
	Name          *string
	RetentionDays *int
	IsActive      *bool
}

// Repository handles organization persistence. It also satisfies the auth
// package's OrganizationStore: misses are (nil, nil) and the API key
// lookup retries once on transient errors.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an organizations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOrg(row pgx.Row) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &o.APIKeyHash, &o.RetentionDays,
		&o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts an organization.
func (r *Repository) Create(ctx context.Context, org *models.Organization) error {
	const q = `INSERT INTO organizations (name, slug, api_key_hash, retention_days, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, org.Name, org.Slug, org.APIKeyHash,
		org.RetentionDays, org.IsActive).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

// GetByID returns an organization by ID, or (nil, nil).
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrg(r.pool.QueryRow(ctx, q, id))
}

// GetBySlug returns an organization by slug, or (nil, nil).
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations WHERE slug = $1`
	return scanOrg(r.pool.QueryRow(ctx, q, slug))
}

// GetByAPIKeyHash returns an organization by API key digest, or (nil, nil).
// Constant-shape equality query; retried once on transient errors.
func (r *Repository) GetByAPIKeyHash(ctx context.Context, hash string) (*models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations WHERE api_key_hash = $1`
	org, err := scanOrg(r.pool.QueryRow(ctx, q, hash))
	if err == nil {
		return org, nil
	}
	return scanOrg(r.pool.QueryRow(ctx, q, hash))
}

// List returns one page of organizations matching f plus the total.
func (r *Repository) List(ctx context.Context, f *tenancy.Filter, p pagination.Params) ([]models.Organization, int64, error) {
	where, args := f.SQL(1)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM organizations WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count organizations: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM organizations WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		orgColumns, where, p.OrderBy(), len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	items := make([]models.Organization, 0, p.Limit)
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.APIKeyHash, &o.RetentionDays,
			&o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

// Update mutates an organization by ID and returns it, or (nil, nil).
func (r *Repository) Update(ctx context.Context, id uuid.UUID, upd OrgUpdate) (*models.Organization, error) {
	sets := []string{"updated_at = NOW()"}
	var args []interface{}
	n := 1
	set := func(expr string, v interface{}) {
		sets = append(sets, fmt.Sprintf(expr, n))
		args = append(args, v)
		n++
	}
	if upd.Name != nil {
		set("name = $%d", *upd.Name)
	}
	if upd.RetentionDays != nil {
		set("retention_days = $%d", *upd.RetentionDays)
	}
	if upd.IsActive != nil {
		set("is_active = $%d", *upd.IsActive)
	}

	q := fmt.Sprintf(`UPDATE organizations SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), n, orgColumns)
	return scanOrg(r.pool.QueryRow(ctx, q, append(args, id)...))
}

// UpdateAPIKeyHash replaces the organization API key digest.
func (r *Repository) UpdateAPIKeyHash(ctx context.Context, id uuid.UUID, hash string) (*models.Organization, error) {
	const q = `UPDATE organizations SET api_key_hash = $1, updated_at = NOW()
		WHERE id = $2 RETURNING ` + orgColumns
	return scanOrg(r.pool.QueryRow(ctx, q, hash, id))
}

// Delete removes an organization. Dependent rows cascade in the schema.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete organization: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListActiveWithRetention returns active organizations with a positive
// retention window, for the periodic sweep.
func (r *Repository) ListActiveWithRetention(ctx context.Context) ([]models.Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orgColumns+` FROM organizations WHERE is_active AND retention_days > 0`)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var items []models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.APIKeyHash, &o.RetentionDays,
			&o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}
