package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chatvault/backend/internal/attachments"
	"github.com/chatvault/backend/internal/messages"
	"github.com/chatvault/backend/internal/tenancy"
	"github.com/chatvault/backend/pkg/queue"
	"github.com/chatvault/backend/pkg/storage"
)

// MaintenanceProcessor drains the maintenance queue: purging the data of
// deleted chats and sweeping messages past an organization's retention
// window. Both jobs are idempotent so a retried job never double-fails.
type MaintenanceProcessor struct {
	messages    messages.Store
	attachments attachments.Store
	s3          *storage.S3
	queue       *queue.Queue
	logger      *zap.Logger
}

// NewMaintenanceProcessor creates a maintenance job processor.
func NewMaintenanceProcessor(msgs messages.Store, atts attachments.Store, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *MaintenanceProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaintenanceProcessor{messages: msgs, attachments: atts, s3: s3, queue: q, logger: logger}
}

// Process executes one maintenance job.
func (p *MaintenanceProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeChatPurge:
		var payload queue.ChatPurgePayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.purgeChat(ctx, payload)
	case queue.JobTypeRetentionSweep:
		var payload queue.RetentionSweepPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		return p.sweepRetention(ctx, payload)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// purgeChat removes everything a deleted chat left behind. The foreign key
// cascade drops the rows with the chat, so the row deletes here only catch
// strays; the S3 objects are the real work.
func (p *MaintenanceProcessor) purgeChat(ctx context.Context, payload queue.ChatPurgePayload) error {
	prefix := storage.ChatPrefix(payload.OrganizationID.String(), payload.ChatID.String())
	deleted, err := p.s3.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("delete chat objects: %w", err)
	}

	if _, err := p.attachments.DeleteWhere(ctx, tenancy.NewFilter().Eq("chat_id", payload.ChatID)); err != nil {
		return fmt.Errorf("delete attachment rows: %w", err)
	}
	msgCount, err := p.messages.DeleteWhere(ctx, tenancy.NewFilter().Eq("chat_id", payload.ChatID))
	if err != nil {
		return fmt.Errorf("delete message rows: %w", err)
	}

	p.logger.Info("chat purged",
		zap.String("chat_id", payload.ChatID.String()),
		zap.String("organization_id", payload.OrganizationID.String()),
		zap.Int("s3_objects_deleted", deleted),
		zap.Int64("stray_messages_deleted", msgCount))
	return nil
}

// sweepRetention drops messages and attachments older than the
// organization's retention cutoff.
func (p *MaintenanceProcessor) sweepRetention(ctx context.Context, payload queue.RetentionSweepPayload) error {
	keys, err := p.attachments.ListKeys(ctx, tenancy.NewFilter().
		Eq(tenancy.ColumnOrganizationID, payload.OrganizationID).
		Lt("created_at", payload.Before))
	if err != nil {
		return fmt.Errorf("list expired attachment keys: %w", err)
	}
	for _, key := range keys {
		if err := p.s3.DeleteObject(ctx, key); err != nil {
			return fmt.Errorf("delete expired object %s: %w", key, err)
		}
	}

	attCount, err := p.attachments.DeleteWhere(ctx, tenancy.NewFilter().
		Eq(tenancy.ColumnOrganizationID, payload.OrganizationID).
		Lt("created_at", payload.Before))
	if err != nil {
		return fmt.Errorf("delete expired attachments: %w", err)
	}
	msgCount, err := p.messages.DeleteWhere(ctx, tenancy.NewFilter().
		Eq(tenancy.ColumnOrganizationID, payload.OrganizationID).
		Lt("created_at", payload.Before))
	if err != nil {
		return fmt.Errorf("delete expired messages: %w", err)
	}

	if msgCount > 0 || attCount > 0 {
		p.logger.Info("retention sweep completed",
			zap.String("organization_id", payload.OrganizationID.String()),
			zap.Time("before", payload.Before),
			zap.Int64("messages_deleted", msgCount),
			zap.Int64("attachments_deleted", attCount))
	}
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *MaintenanceProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("maintenance worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
