package messages

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/tenancy"
	"github.com/chatvault/backend/pkg/pagination"
)

const messageColumns = `id, chat_id, organization_id, owner_id, role, content, tokens, created_at`

// Store is the message persistence interface. DeleteWhere exists for the
// background worker (chat purge, retention sweep) and accepts arbitrary
// filters; HTTP handlers only ever pass scoped ones.
type Store interface {
	Create(ctx context.Context, msg *models.Message) error
	GetOne(ctx context.Context, f *tenancy.Filter) (*models.Message, error)
	List(ctx context.Context, f *tenancy.Filter, p pagination.Params) ([]models.Message, int64, error)
	DeleteWhere(ctx context.Context, f *tenancy.Filter) (int64, error)
}

// Repository handles message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a messages repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.ChatID, &m.OrganizationID, &m.OwnerID, &m.Role,
		&m.Content, &m.Tokens, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a message.
func (r *Repository) Create(ctx context.Context, m *models.Message) error {
	const q = `INSERT INTO messages (chat_id, organization_id, owner_id, role, content, tokens)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.ChatID, m.OrganizationID, m.OwnerID,
		string(m.Role), m.Content, m.Tokens).
		Scan(&m.ID, &m.CreatedAt)
}

// GetOne returns the single message matching f, or (nil, nil).
func (r *Repository) GetOne(ctx context.Context, f *tenancy.Filter) (*models.Message, error) {
	where, args := f.SQL(1)
	q := `SELECT ` + messageColumns + ` FROM messages WHERE ` + where
	return scanMessage(r.pool.QueryRow(ctx, q, args...))
}

// List returns one page of messages matching f plus the best-effort total.
func (r *Repository) List(ctx context.Context, f *tenancy.Filter, p pagination.Params) ([]models.Message, int64, error) {
	where, args := f.SQL(1)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM messages WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		messageColumns, where, p.OrderBy(), len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	items := make([]models.Message, 0, p.Limit)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.OrganizationID, &m.OwnerID, &m.Role,
			&m.Content, &m.Tokens, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

// DeleteWhere removes all messages matching f and returns the count.
func (r *Repository) DeleteWhere(ctx context.Context, f *tenancy.Filter) (int64, error) {
	where, args := f.SQL(1)
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	return tag.RowsAffected(), nil
}
