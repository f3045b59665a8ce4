package attachments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatvault/backend/internal/models"
	"github.com/chatvault/backend/internal/tenancy"
)

const attachmentColumns = `id, message_id, chat_id, organization_id, owner_id, file_name, content_type, size_bytes, s3_key, created_at`

// Store is the attachment persistence surface consumed by the handler and
// the purge worker.
type Store interface {
	Create(ctx context.Context, a *models.Attachment) error
	GetOne(ctx context.Context, f *tenancy.Filter) (*models.Attachment, error)
	ListByMessage(ctx context.Context, f *tenancy.Filter) ([]models.Attachment, error)
	ListKeys(ctx context.Context, f *tenancy.Filter) ([]string, error)
	DeleteWhere(ctx context.Context, f *tenancy.Filter) (int64, error)
}

// Repository provides attachment queries against Postgres.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates an attachments repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanAttachment(row pgx.Row) (*models.Attachment, error) {
	var a models.Attachment
	err := row.Scan(
		&a.ID, &a.MessageID, &a.ChatID, &a.OrganizationID, &a.OwnerID,
		&a.FileName, &a.ContentType, &a.SizeBytes, &a.S3Key, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts an attachment row. The caller supplies the id so the S3
// key can embed it before the insert.
func (r *Repository) Create(ctx context.Context, a *models.Attachment) error {
	query := `
		INSERT INTO attachments (id, message_id, chat_id, organization_id, owner_id, file_name, content_type, size_bytes, s3_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`
	return r.db.QueryRow(ctx, query,
		a.ID, a.MessageID, a.ChatID, a.OrganizationID, a.OwnerID,
		a.FileName, a.ContentType, a.SizeBytes, a.S3Key,
	).Scan(&a.CreatedAt)
}

// GetOne fetches the single attachment matching the filter, or nil.
func (r *Repository) GetOne(ctx context.Context, f *tenancy.Filter) (*models.Attachment, error) {
	where, args := f.SQL(1)
	query := fmt.Sprintf(`SELECT %s FROM attachments WHERE %s`, attachmentColumns, where)
	return scanAttachment(r.db.QueryRow(ctx, query, args...))
}

// ListByMessage returns every attachment matching the filter, oldest first.
func (r *Repository) ListByMessage(ctx context.Context, f *tenancy.Filter) ([]models.Attachment, error) {
	where, args := f.SQL(1)
	query := fmt.Sprintf(`SELECT %s FROM attachments WHERE %s ORDER BY created_at ASC`, attachmentColumns, where)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(
			&a.ID, &a.MessageID, &a.ChatID, &a.OrganizationID, &a.OwnerID,
			&a.FileName, &a.ContentType, &a.SizeBytes, &a.S3Key, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListKeys returns the S3 keys of every attachment matching the filter.
// The retention sweep uses this to clear objects before dropping rows.
func (r *Repository) ListKeys(ctx context.Context, f *tenancy.Filter) ([]string, error) {
	where, args := f.SQL(1)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT s3_key FROM attachments WHERE %s`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// DeleteWhere removes every attachment matching the filter and reports how
// many rows went away.
func (r *Repository) DeleteWhere(ctx context.Context, f *tenancy.Filter) (int64, error) {
	where, args := f.SQL(1)
	tag, err := r.db.Exec(ctx, fmt.Sprintf(`DELETE FROM attachments WHERE %s`, where), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
