package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"playportal/internal/config"
	"playportal/internal/model"
	"playportal/internal/repository"
)

// RetentionJob prunes daily play records past the retention window. Play
// session tokens expire by Redis TTL on their own; only the SQL side needs
// sweeping. Runs nightly just after midnight.
type RetentionJob struct {
	cron      *cron.Cron
	dailyRepo *repository.DailyPlayRepository
	days      int
}

func NewRetentionJob(db *gorm.DB, cfg *config.Config) *RetentionJob {
	return &RetentionJob{
		cron:      cron.New(),
		dailyRepo: repository.NewDailyPlayRepository(db),
		days:      cfg.Business.RetentionDays,
	}
}

func (j *RetentionJob) Start(ctx context.Context) {
	j.cron.AddFunc("5 0 * * *", func() {
		j.prune(ctx)
	})
	j.cron.Start()
	logrus.WithField("retention_days", j.days).Info("[RetentionJob] scheduled")
}

func (j *RetentionJob) Stop() {
	j.cron.Stop()
}

func (j *RetentionJob) prune(ctx context.Context) {
	cutoff := model.PlayDateKey(time.Now().AddDate(0, 0, -j.days))

	deleted, err := j.dailyRepo.DeleteBefore(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Error("[RetentionJob] prune failed")
		return
	}

	if deleted > 0 {
		logrus.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff,
		}).Info("[RetentionJob] pruned daily play records")
	}
}
