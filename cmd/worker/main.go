// Package main runs the background maintenance worker: chat purges and
// retention sweeps.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chatvault/backend/config"
	"github.com/chatvault/backend/internal/attachments"
	"github.com/chatvault/backend/internal/messages"
	"github.com/chatvault/backend/internal/organizations"
	"github.com/chatvault/backend/internal/worker"
	"github.com/chatvault/backend/pkg/database"
	"github.com/chatvault/backend/pkg/queue"
	"github.com/chatvault/backend/pkg/redis"
	"github.com/chatvault/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Cfg := storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		AttachmentsBucket:    cfg.AWS.AttachmentsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}
	s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	messageRepo := messages.NewRepository(pool)
	attachmentRepo := attachments.NewRepository(pool)
	orgRepo := organizations.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewMaintenanceProcessor(messageRepo, attachmentRepo, s3Client, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	go runRetentionScheduler(workerCtx, orgRepo, jobQueue, cfg.Retention.SweepIntervalMinutes, logger)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

// runRetentionScheduler periodically enqueues one sweep job per active
// organization, with the cutoff computed from its retention window.
func runRetentionScheduler(ctx context.Context, orgs *organizations.Repository, q *queue.Queue, intervalMinutes int, logger *zap.Logger) {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		list, err := orgs.ListActiveWithRetention(ctx)
		if err != nil {
			logger.Warn("list organizations for sweep", zap.Error(err))
			continue
		}
		now := time.Now().UTC()
		for _, org := range list {
			payload := queue.RetentionSweepPayload{
				OrganizationID: org.ID,
				Before:         now.AddDate(0, 0, -org.RetentionDays),
			}
			if err := q.EnqueueRetentionSweep(ctx, payload); err != nil {
				logger.Warn("enqueue retention sweep", zap.Error(err),
					zap.String("organization_id", org.ID.String()))
			}
		}
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
