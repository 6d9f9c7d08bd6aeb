package worker

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"groclist/config"
	"groclist/models"
	"groclist/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateDB(db))
	return db
}

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger.WithField("component", "test")
}

func TestCorrelationWorkerPrunesStaleEdges(t *testing.T) {
	db := newTestDB(t)
	config.AppConfig.CorrelationRetention = 90 * 24 * time.Hour

	stale := models.ItemCorrelation{
		UserID: 1, ItemA: "bread", ItemB: "milk",
		Frequency: 3, LastUpdated: time.Now().Add(-120 * 24 * time.Hour),
	}
	fresh := models.ItemCorrelation{
		UserID: 1, ItemA: "eggs", ItemB: "milk",
		Frequency: 1, LastUpdated: time.Now(),
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&fresh).Error)

	cw := NewCorrelationWorker(db, testLogger())
	cw.pruneStaleCorrelations()

	var remaining []models.ItemCorrelation
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "eggs", remaining[0].ItemA)
}

func TestReminderWorkerStampsPendingInvitations(t *testing.T) {
	db := newTestDB(t)
	config.AppConfig.InviteReminderAfter = 48 * time.Hour
	config.AppConfig.SMTPHost = ""

	old := models.ListInvitation{
		ListID: 1, ListName: "Groceries",
		InvitedEmail: "bob@example.com", InvitedBy: 1,
		InvitedByEmail: "alice@example.com",
		Token:          "tok-old", Status: models.InvitationPending,
	}
	require.NoError(t, db.Create(&old).Error)
	// Backdate past the reminder threshold
	require.NoError(t, db.Model(&old).
		Update("created_at", time.Now().Add(-72*time.Hour)).Error)

	recent := models.ListInvitation{
		ListID: 1, ListName: "Groceries",
		InvitedEmail: "carol@example.com", InvitedBy: 1,
		InvitedByEmail: "alice@example.com",
		Token:          "tok-recent", Status: models.InvitationPending,
	}
	require.NoError(t, db.Create(&recent).Error)

	rw := NewReminderWorker(db, utils.NewMailer(testLogger()), testLogger())
	rw.processStaleInvitations()

	var reloadedOld models.ListInvitation
	require.NoError(t, db.First(&reloadedOld, old.ID).Error)
	assert.NotNil(t, reloadedOld.ReminderSentAt)

	var reloadedRecent models.ListInvitation
	require.NoError(t, db.First(&reloadedRecent, recent.ID).Error)
	assert.Nil(t, reloadedRecent.ReminderSentAt)
}
