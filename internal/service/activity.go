package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"playportal/internal/config"
	"playportal/internal/model"
	"playportal/internal/repository"
)

// ActivityLogger writes audit events into the transactional outbox, from
// where the sender job ships them to Kafka.
type ActivityLogger struct {
	outboxRepo *repository.OutboxRepository
	topic      string
}

func NewActivityLogger(db *gorm.DB, cfg *config.Config) *ActivityLogger {
	return &ActivityLogger{
		outboxRepo: repository.NewOutboxRepository(db),
		topic:      cfg.Kafka.Topic.ActivityEvents,
	}
}

type activityEvent struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	UserID      int64  `json:"user_id"`
	OccurredAt  string `json:"occurred_at"`
}

// Log is fire-and-forget: a failure to record the event never aborts the
// operation that triggered it.
func (a *ActivityLogger) Log(ctx context.Context, action, description string, userID int64) {
	if err := a.LogTx(ctx, nil, action, description, userID); err != nil {
		logrus.WithError(err).WithField("action", action).Warn("failed to record activity event")
	}
}

// LogTx rides a caller transaction, so ledger-affecting events commit with
// the mutation they describe.
func (a *ActivityLogger) LogTx(ctx context.Context, tx *gorm.DB, action, description string, userID int64) error {
	payload, err := json.Marshal(activityEvent{
		Action:      action,
		Description: description,
		UserID:      userID,
		OccurredAt:  time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	return a.outboxRepo.Create(ctx, tx, &model.OutboxMessage{
		MessageKey: action,
		Topic:      a.topic,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	})
}
