package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/database/testutil"
	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/push"
	"github.com/nguyenvh/custodesk/internal/reminders"
	"github.com/nguyenvh/custodesk/internal/services"
	"github.com/nguyenvh/custodesk/pkg/mail"
)

func newRunner(t *testing.T, db *gorm.DB, opts ...Option) *Runner {
	t.Helper()

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{Enabled: false})
	require.NoError(t, err)
	gateway, err := push.NewGateway(db, push.Config{Enabled: false})
	require.NoError(t, err)
	events, err := services.NewSystemEventService(db)
	require.NoError(t, err)
	dispatcher, err := reminders.NewDispatcher(db, mailer, gateway, events)
	require.NoError(t, err)
	staff, err := services.NewStaffService(db)
	require.NoError(t, err)
	svc, err := services.NewReminderService(db, dispatcher, staff)
	require.NoError(t, err)

	runner, err := NewRunner(svc, opts...)
	require.NoError(t, err)
	return runner
}

func TestRunnerRequiresService(t *testing.T) {
	_, err := NewRunner(nil)
	require.Error(t, err)
}

func TestRunnerRunOnceSendsDueReminders(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	fixed := time.Date(2024, time.March, 20, 8, 0, 0, 0, time.UTC)
	runner := newRunner(t, db, WithNow(func() time.Time { return fixed }))

	reminder := models.Reminder{SubjectName: "Kiểm kê kho CRC", DueDayMonth: "15-03"}
	require.NoError(t, reminder.SetParties([]models.AssignedParty{{Name: "Trưởng phòng QLN"}}))
	require.NoError(t, db.Create(&reminder).Error)

	require.NoError(t, runner.RunOnce(context.Background()))

	var stored models.Reminder
	require.NoError(t, db.Take(&stored, "id = ?", reminder.ID).Error)
	require.True(t, stored.IsSent)
}

func TestRunnerStartRejectsBadSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	runner := newRunner(t, db, WithSchedule("not a cron spec"))

	require.Error(t, runner.Start())
}

func TestRunnerStartAndStop(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	runner := newRunner(t, db)

	require.NoError(t, runner.Start())

	done := runner.Stop()
	select {
	case <-done.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop in time")
	}
}
