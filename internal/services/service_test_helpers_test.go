package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/auth"
	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/push"
	"github.com/nguyenvh/custodesk/internal/reminders"
	"github.com/nguyenvh/custodesk/pkg/mail"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *captureMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type capturePusher struct {
	mu   sync.Mutex
	sent map[string]int
	err  error
}

func newCapturePusher() *capturePusher {
	return &capturePusher{sent: make(map[string]int)}
}

func (p *capturePusher) Enabled() bool { return true }

func (p *capturePusher) Send(ctx context.Context, username string, payload push.Payload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent[username]++
	return nil
}

type testEnv struct {
	mailer *captureMailer
	pusher *capturePusher
	staff  *StaffService
	disp   *reminders.Dispatcher
}

func newTestEnv(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()

	mailer := &captureMailer{}
	pusher := newCapturePusher()

	events, err := NewSystemEventService(db)
	require.NoError(t, err)

	disp, err := reminders.NewDispatcher(db, mailer, pusher, events)
	require.NoError(t, err)

	staff, err := NewStaffService(db)
	require.NoError(t, err)

	return &testEnv{mailer: mailer, pusher: pusher, staff: staff, disp: disp}
}

func seedStaff(t *testing.T, db *gorm.DB, username, department, status string) *models.Staff {
	t.Helper()

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)

	staff := models.Staff{
		Username:      username,
		Email:         username + "@bank.example",
		Password:      hash,
		Role:          models.RoleUser,
		Department:    department,
		AccountStatus: status,
	}
	require.NoError(t, db.Create(&staff).Error)
	return &staff
}
