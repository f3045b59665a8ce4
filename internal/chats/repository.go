package chats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/tenancy"
	"github.com/chatvault/backend/pkg/pagination"
)

const chatColumns = `id, organization_id, owner_id, title, COALESCE(source,''), tags, metadata,
	is_active, created_at, updated_at`

// ChatUpdate holds the mutable chat fields; nil means "leave unchanged".
type ChatUpdate struct {
	Title    *string
	Source   *string
	Tags     []string
	Metadata json.RawMessage
	IsActive *bool
}

// Store is the chat persistence interface. Every method takes an
// already-scoped filter; a miss on a scoped filter is indistinguishable
// from the resource not existing.
type Store interface {
	Create(ctx context.Context, chat *models.Chat) error
	GetOne(ctx context.Context, f *tenancy.Filter) (*models.Chat, error)
	List(ctx context.Context, f *tenancy.Filter, p pagination.Params) ([]models.Chat, int64, error)
	Update(ctx context.Context, f *tenancy.Filter, upd ChatUpdate) (*models.Chat, error)
	Delete(ctx context.Context, f *tenancy.Filter) (*models.Chat, error)
}

// Repository handles chat persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chats repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanChat(row pgx.Row) (*models.Chat, error) {
	var ch models.Chat
	err := row.Scan(&ch.ID, &ch.OrganizationID, &ch.OwnerID, &ch.Title, &ch.Source,
		&ch.Tags, &ch.Metadata, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// Create inserts a chat.
func (r *Repository) Create(ctx context.Context, ch *models.Chat) error {
	const q = `INSERT INTO chats (organization_id, owner_id, title, source, tags, metadata, is_active)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, $6, $7)
		RETURNING id, created_at, updated_at`
	tags := ch.Tags
	if tags == nil {
		tags = []string{}
	}
	return r.pool.QueryRow(ctx, q, ch.OrganizationID, ch.OwnerID, ch.Title, ch.Source,
		tags, ch.Metadata, ch.IsActive).
		Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt)
}

// GetOne returns the single chat matching f, or (nil, nil).
func (r *Repository) GetOne(ctx context.Context, f *tenancy.Filter) (*models.Chat, error) {
	where, args := f.SQL(1)
	q := `SELECT ` + chatColumns + ` FROM chats WHERE ` + where
	return scanChat(r.pool.QueryRow(ctx, q, args...))
}

// List returns one page of chats matching f plus the best-effort total.
// Count and fetch are two independent reads; see pkg/pagination.
func (r *Repository) List(ctx context.Context, f *tenancy.Filter, p pagination.Params) ([]models.Chat, int64, error) {
	where, args := f.SQL(1)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chats WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count chats: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM chats WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		chatColumns, where, p.OrderBy(), len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	items := make([]models.Chat, 0, p.Limit)
	for rows.Next() {
		var ch models.Chat
		if err := rows.Scan(&ch.ID, &ch.OrganizationID, &ch.OwnerID, &ch.Title, &ch.Source,
			&ch.Tags, &ch.Metadata, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, ch)
	}
	return items, total, rows.Err()
}

// Update mutates the single chat matching f and returns it, or (nil, nil)
// when nothing matched.
func (r *Repository) Update(ctx context.Context, f *tenancy.Filter, upd ChatUpdate) (*models.Chat, error) {
	sets := []string{"updated_at = NOW()"}
	var args []interface{}
	n := 1
	set := func(expr string, v interface{}) {
		sets = append(sets, fmt.Sprintf(expr, n))
		args = append(args, v)
		n++
	}
	if upd.Title != nil {
		set("title = $%d", *upd.Title)
	}
	if upd.Source != nil {
		set("source = NULLIF($%d,'')", *upd.Source)
	}
	if upd.Tags != nil {
		set("tags = $%d", upd.Tags)
	}
	if upd.Metadata != nil {
		set("metadata = $%d", upd.Metadata)
	}
	if upd.IsActive != nil {
		set("is_active = $%d", *upd.IsActive)
	}

	where, whereArgs := f.SQL(n)
	q := `UPDATE chats SET ` + strings.Join(sets, ", ") + ` WHERE ` + where +
		` RETURNING ` + chatColumns
	return scanChat(r.pool.QueryRow(ctx, q, append(args, whereArgs...)...))
}

// Delete removes the single chat matching f and returns it, or (nil, nil)
// when nothing matched. Messages and attachments are purged asynchronously
// by the worker.
func (r *Repository) Delete(ctx context.Context, f *tenancy.Filter) (*models.Chat, error) {
	where, args := f.SQL(1)
	q := `DELETE FROM chats WHERE ` + where + ` RETURNING ` + chatColumns
	return scanChat(r.pool.QueryRow(ctx, q, args...))
}
