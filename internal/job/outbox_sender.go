package job

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"playportal/internal/config"
	"playportal/internal/model"
	"playportal/internal/repository"
)

// MessageSender is what the outbox sender needs from the Kafka producer.
type MessageSender interface {
	SendMessage(topic, key, value string) error
}

// OutboxSender ships pending activity events from the outbox table to
// Kafka, with per-message retry and a failure cap.
type OutboxSender struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	sender     MessageSender
	cfg        *config.Config
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, sender MessageSender, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		sender:     sender,
		cfg:        cfg,
		interval:   500 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	logrus.Info("[OutboxSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("[OutboxSender] stopping")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		logrus.WithError(err).Error("[OutboxSender] failed to load pending messages")
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.sender.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			logrus.WithError(updateErr).WithField("id", msg.ID).Error("[OutboxSender] failed to mark message sent")
		}
		return
	}

	logrus.WithError(err).WithField("id", msg.ID).Warn("[OutboxSender] send failed")

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			logrus.WithError(err).WithField("id", msg.ID).Error("[OutboxSender] failed to mark message failed")
		}
		return
	}

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		logrus.WithError(err).WithField("id", msg.ID).Error("[OutboxSender] failed to bump retry count")
	}
}
