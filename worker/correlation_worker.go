package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"groclist/config"
	"groclist/models"
)

// CorrelationWorker prunes co-occurrence counters that have not been
// reinforced within the retention window, so suggestions track current
// shopping habits instead of stale ones.
type CorrelationWorker struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

func NewCorrelationWorker(db *gorm.DB, logger *logrus.Entry) *CorrelationWorker {
	return &CorrelationWorker{
		DB:     db,
		Logger: logger,
	}
}

func (cw *CorrelationWorker) Start(ctx context.Context) {
	time.Sleep(10 * time.Second)

	cw.Logger.Info("Correlation worker started")

	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()

	// Run once on startup, then on every tick
	cw.pruneStaleCorrelations()

	for {
		select {
		case <-ctx.Done():
			cw.Logger.Info("Correlation worker shutting down...")
			return
		case <-ticker.C:
			cw.pruneStaleCorrelations()
		}
	}
}

func (cw *CorrelationWorker) pruneStaleCorrelations() {
	cutoff := time.Now().Add(-config.AppConfig.CorrelationRetention)

	result := cw.DB.
		Where("last_updated < ?", cutoff).
		Delete(&models.ItemCorrelation{})
	if result.Error != nil {
		cw.Logger.WithError(result.Error).Error("Error pruning stale correlations")
		return
	}
	if result.RowsAffected > 0 {
		cw.Logger.WithField("pruned", result.RowsAffected).Info("Pruned stale correlations")
	}
}
