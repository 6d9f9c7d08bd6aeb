package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"groclist/config"
	"groclist/models"
	"groclist/utils"
)

// ReminderWorker nudges invitees who have not responded. Each pending
// invitation gets at most one reminder.
type ReminderWorker struct {
	DB     *gorm.DB
	Mailer *utils.Mailer
	Logger *logrus.Entry
}

func NewReminderWorker(db *gorm.DB, mailer *utils.Mailer, logger *logrus.Entry) *ReminderWorker {
	return &ReminderWorker{
		DB:     db,
		Mailer: mailer,
		Logger: logger,
	}
}

func (rw *ReminderWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	rw.Logger.Info("Reminder worker started")

	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Info("Reminder worker shutting down...")
			return
		case <-ticker.C:
			rw.processStaleInvitations()
		}
	}
}

func (rw *ReminderWorker) processStaleInvitations() {
	cutoff := time.Now().Add(-config.AppConfig.InviteReminderAfter)

	var invitations []models.ListInvitation
	err := rw.DB.
		Where("status = ? AND reminder_sent_at IS NULL AND created_at < ?", models.InvitationPending, cutoff).
		Limit(100).
		Find(&invitations).Error
	if err != nil {
		rw.Logger.WithError(err).Error("Error fetching stale invitations")
		return
	}

	for i := range invitations {
		invitation := &invitations[i]
		if err := rw.Mailer.SendInvitationReminder(invitation); err != nil {
			rw.Logger.WithError(err).WithField("invitation_id", invitation.ID).
				Error("Error sending invitation reminder")
			continue
		}

		now := time.Now()
		if err := rw.DB.Model(invitation).Update("reminder_sent_at", now).Error; err != nil {
			rw.Logger.WithError(err).WithField("invitation_id", invitation.ID).
				Error("Error stamping reminder")
		}
	}
}
