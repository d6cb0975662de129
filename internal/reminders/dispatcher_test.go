package reminders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/database/testutil"
	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/push"
	"github.com/nguyenvh/custodesk/pkg/mail"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePusher struct {
	mu      sync.Mutex
	sent    map[string]push.Payload
	err     error
	enabled bool
}

func newFakePusher() *fakePusher {
	return &fakePusher{sent: make(map[string]push.Payload), enabled: true}
}

func (f *fakePusher) Enabled() bool { return f.enabled }

func (f *fakePusher) Send(ctx context.Context, username string, payload push.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent[username] = payload
	return nil
}

type recordedEvent struct {
	Severity string
	Message  string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) Record(ctx context.Context, severity, source, message string, detail map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Severity: severity, Message: message})
}

func seedReminder(t *testing.T, db *gorm.DB) *models.Reminder {
	t.Helper()
	r := models.Reminder{SubjectName: "Kiểm kê kho CRC", DueDayMonth: "15-03"}
	require.NoError(t, r.SetParties([]models.AssignedParty{
		{Name: "Trưởng phòng QLN", Email: "qln@bank.example"},
	}))
	require.NoError(t, db.Create(&r).Error)
	return &r
}

func TestDispatchRequiresAChannel(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	d, err := NewDispatcher(db, &fakeMailer{}, newFakePusher(), &fakeRecorder{})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), DispatchInput{
		Recipients: []Recipient{{Username: "a"}},
		Content:    Compose(KindReminderDue, Data{SubjectName: "x", DueDayMonth: "01-01"}),
	})
	require.ErrorIs(t, err, ErrNoChannels)
}

func TestDispatchAllChannels(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &fakeMailer{}
	pusher := newFakePusher()
	d, err := NewDispatcher(db, mailer, pusher, &fakeRecorder{})
	require.NoError(t, err)

	reminder := seedReminder(t, db)
	content := Compose(KindReminderDue, Data{SubjectName: reminder.SubjectName, DueDayMonth: reminder.DueDayMonth})

	result, err := d.Dispatch(context.Background(), DispatchInput{
		Reminder:   reminder,
		Recipients: []Recipient{{Username: "lan.tran", Email: "lan@bank.example"}},
		Content:    content,
		Kind:       KindReminderDue,
		Channels:   Channels{Email: true, Push: true, InApp: true},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.True(t, result.PerChannel.Email)
	require.True(t, result.PerChannel.Push)
	require.True(t, result.PerChannel.InApp)
	require.Empty(t, result.Skipped)

	require.Len(t, mailer.sent, 1)
	require.True(t, mailer.sent[0].HTML)
	require.Contains(t, pusher.sent, "lan.tran")

	var notif models.Notification
	require.NoError(t, db.Where("recipient_username = ?", "lan.tran").Take(&notif).Error)
	require.Equal(t, models.NotificationSystem, notif.Type)

	var stored models.Reminder
	require.NoError(t, db.Take(&stored, "id = ?", reminder.ID).Error)
	require.True(t, stored.IsSent)
}

func TestDispatchChannelIsolation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &fakeMailer{err: errors.New("smtp 550")}
	pusher := newFakePusher()
	recorder := &fakeRecorder{}
	d, err := NewDispatcher(db, mailer, pusher, recorder)
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), DispatchInput{
		Recipients: []Recipient{{Username: "lan.tran", Email: "lan@bank.example"}},
		Content:    Compose(KindReminderDue, Data{SubjectName: "x", DueDayMonth: "01-01"}),
		Channels:   Channels{Email: true, Push: true},
	})
	require.NoError(t, err, "channel failure must not surface as an exception")
	require.False(t, result.Success)
	require.False(t, result.PerChannel.Email)
	require.True(t, result.PerChannel.Push, "push proceeds despite the email failure")
	require.NotEmpty(t, result.Error)
	require.NotEmpty(t, recorder.events, "email failure is recorded as a system event")
}

func TestDispatchMissingPushSubscriptionIsSkipNotFailure(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &fakeMailer{}
	pusher := newFakePusher()
	pusher.err = push.ErrNoSubscription
	d, err := NewDispatcher(db, mailer, pusher, &fakeRecorder{})
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), DispatchInput{
		Recipients: []Recipient{{Username: "a", Email: "a@x.com"}},
		Content:    Compose(KindReminderDue, Data{SubjectName: "x", DueDayMonth: "01-01"}),
		Channels:   Channels{Email: true, Push: true},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.True(t, result.PerChannel.Email)
	require.False(t, result.PerChannel.Push)
	require.Contains(t, result.Skipped, "push:a")
	require.Empty(t, result.Error)
}

func TestDispatchDisabledPusherSkipsOnlyPushCandidates(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &fakeMailer{}
	pusher := newFakePusher()
	pusher.enabled = false
	d, err := NewDispatcher(db, mailer, pusher, &fakeRecorder{})
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), DispatchInput{
		Recipients: []Recipient{
			{Email: "qln@bank.example"}, // assigned party, email only
			{Username: "lan.tran"},
		},
		Content:  Compose(KindReminderDue, Data{SubjectName: "x", DueDayMonth: "01-01"}),
		Channels: Channels{Email: true, Push: true},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.False(t, result.PerChannel.Push)
	require.Contains(t, result.Skipped, "push:lan.tran")
	require.NotContains(t, result.Skipped, "push:qln@bank.example",
		"email-only recipients were never push candidates")
}

func TestDispatchRecipientWithoutEmailSkippedForEmailOnly(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &fakeMailer{}
	d, err := NewDispatcher(db, mailer, newFakePusher(), &fakeRecorder{})
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), DispatchInput{
		Recipients: []Recipient{{Username: "no-email"}},
		Content:    Compose(KindReminderDue, Data{SubjectName: "x", DueDayMonth: "01-01"}),
		Channels:   Channels{Email: true, InApp: true},
	})
	require.NoError(t, err)
	require.True(t, result.Success, "no resolvable email address means email was not required")
	require.False(t, result.PerChannel.Email)
	require.True(t, result.PerChannel.InApp)
	require.Contains(t, result.Skipped, "email:no-email")
	require.Empty(t, mailer.sent)
}

func TestDispatchMarksSentExactlyOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	fixed := time.Date(2024, time.March, 20, 8, 0, 0, 0, time.UTC)
	d, err := NewDispatcher(db, &fakeMailer{}, newFakePusher(), &fakeRecorder{},
		WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	reminder := seedReminder(t, db)
	input := DispatchInput{
		Reminder:   reminder,
		Recipients: []Recipient{{Username: "lan.tran", Email: "lan@bank.example"}},
		Content:    Compose(KindReminderDue, Data{SubjectName: reminder.SubjectName, DueDayMonth: reminder.DueDayMonth}),
		Channels:   Channels{Email: true},
	}

	first, err := d.Dispatch(context.Background(), input)
	require.NoError(t, err)
	require.True(t, first.Success)

	// A second call for the same cycle must not create a duplicate archive.
	second, err := d.Dispatch(context.Background(), input)
	require.NoError(t, err)
	require.True(t, second.Success)

	var archives []models.SentReminder
	require.NoError(t, db.Find(&archives).Error)
	require.Len(t, archives, 1)
}

func TestDispatchArchivePreservesReminderSnapshot(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	d, err := NewDispatcher(db, &fakeMailer{}, newFakePusher(), &fakeRecorder{})
	require.NoError(t, err)

	reminder := seedReminder(t, db)
	_, err = d.Dispatch(context.Background(), DispatchInput{
		Reminder:   reminder,
		Recipients: []Recipient{{Username: "lan.tran", Email: "lan@bank.example"}},
		Content:    Compose(KindReminderDue, Data{SubjectName: reminder.SubjectName, DueDayMonth: reminder.DueDayMonth}),
		Channels:   Channels{Email: true},
	})
	require.NoError(t, err)

	var archive models.SentReminder
	require.NoError(t, db.Take(&archive).Error)
	require.Equal(t, reminder.SubjectName, archive.SubjectName)
	require.Equal(t, reminder.DueDayMonth, archive.DueDayMonth)
	require.JSONEq(t, string(reminder.AssignedParties), string(archive.AssignedParties))
	require.False(t, archive.SentDate.IsZero())
}

func TestDispatchInAppWrittenBeforeSentFlag(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	d, err := NewDispatcher(db, &fakeMailer{}, newFakePusher(), &fakeRecorder{})
	require.NoError(t, err)

	reminder := seedReminder(t, db)
	result, err := d.Dispatch(context.Background(), DispatchInput{
		Reminder:   reminder,
		Recipients: []Recipient{{Username: "lan.tran", Email: "lan@bank.example"}},
		Content:    Compose(KindReminderDue, Data{SubjectName: reminder.SubjectName, DueDayMonth: reminder.DueDayMonth}),
		Channels:   Channels{Email: true, InApp: true},
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	var stored models.Reminder
	require.NoError(t, db.Take(&stored, "id = ?", reminder.ID).Error)
	if stored.IsSent {
		var count int64
		require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
		require.NotZero(t, count, "a sent reminder must have its in-app record")
	}
}
