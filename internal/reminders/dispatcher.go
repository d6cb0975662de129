package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/push"
	"github.com/nguyenvh/custodesk/internal/worktime"
	"github.com/nguyenvh/custodesk/pkg/logger"
	"github.com/nguyenvh/custodesk/pkg/mail"
	"github.com/nguyenvh/custodesk/pkg/metrics"
)

// defaultChannelTimeout bounds each external send.
const defaultChannelTimeout = 30 * time.Second

// ErrNoChannels is returned when a dispatch call requests no channels at
// all. This is a caller-contract violation, not a delivery failure.
var ErrNoChannels = errors.New("dispatch: at least one channel must be requested")

// Recipient identifies a delivery target. Username keys push and in-app
// delivery; Email keys the email channel. Either may be empty, in which
// case the corresponding channel is skipped for this recipient.
type Recipient struct {
	Username string
	Email    string
}

// Channels selects which delivery mechanisms a dispatch call uses.
type Channels struct {
	Email bool
	Push  bool
	InApp bool
}

// PerChannel reports per-channel delivery outcome.
type PerChannel struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	InApp bool `json:"in_app"`
}

// DispatchResult is the structured outcome of one dispatch call.
type DispatchResult struct {
	Success    bool       `json:"success"`
	PerChannel PerChannel `json:"per_channel"`
	Skipped    []string   `json:"skipped,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// PushSender abstracts the push gateway.
type PushSender interface {
	Send(ctx context.Context, username string, payload push.Payload) error
	Enabled() bool
}

// EventRecorder persists system error events for the admin dashboard.
type EventRecorder interface {
	Record(ctx context.Context, severity, source, message string, detail map[string]any)
}

// Broadcaster pushes a freshly persisted in-app notification to live
// dashboard subscribers. Optional.
type Broadcaster interface {
	NotifyUser(username string, notification models.Notification)
}

// DispatchInput describes one logical notification to fan out.
type DispatchInput struct {
	// Reminder, when set, is marked sent and archived on overall success.
	Reminder   *models.Reminder
	Recipients []Recipient
	Content    Content
	Kind       Kind
	Channels   Channels
}

// Dispatcher fans a single logical notification out across channels.
// Channel failures are isolated from each other; it never deduplicates
// across calls — running at most once per due cycle is the caller's job,
// backed by the conditional is_sent update.
type Dispatcher struct {
	db      *gorm.DB
	mailer  mail.Mailer
	pusher  PushSender
	events  EventRecorder
	hub     Broadcaster
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// DispatcherOption customises the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithClock overrides the clock used for sent timestamps.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithChannelTimeout bounds each external channel send.
func WithChannelTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithBroadcaster wires live in-app notification delivery.
func WithBroadcaster(hub Broadcaster) DispatcherOption {
	return func(d *Dispatcher) {
		d.hub = hub
	}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(db *gorm.DB, mailer mail.Mailer, pusher PushSender, events EventRecorder, opts ...DispatcherOption) (*Dispatcher, error) {
	if db == nil {
		return nil, errors.New("dispatch: db is required")
	}

	d := &Dispatcher{
		db:      db,
		mailer:  mailer,
		pusher:  pusher,
		events:  events,
		log:     logger.WithModule("dispatch"),
		timeout: defaultChannelTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch sends input.Content to input.Recipients over the requested
// channels. The in-app row is persisted before the source reminder's
// is_sent flag flips, so readers never observe a sent reminder without its
// notification. Email and push fire concurrently and are joined before the
// overall outcome is decided.
func (d *Dispatcher) Dispatch(ctx context.Context, input DispatchInput) (DispatchResult, error) {
	if !input.Channels.Email && !input.Channels.Push && !input.Channels.InApp {
		return DispatchResult{}, ErrNoChannels
	}

	result := DispatchResult{}
	var errs error

	if input.Channels.InApp {
		delivered, failed, skipped := d.sendInApp(ctx, input)
		result.PerChannel.InApp = delivered
		result.Skipped = append(result.Skipped, skipped...)
		if failed {
			errs = multierr.Append(errs, errors.New("in-app persistence failed"))
		}
	}

	var (
		wg           sync.WaitGroup
		emailOK      bool
		emailNeeded  bool
		emailErr     error
		pushOK       bool
		pushSkipped  []string
		emailSkipped []string
		pushErr      error
	)

	if input.Channels.Email {
		var addresses []string
		for _, rcpt := range input.Recipients {
			if strings.TrimSpace(rcpt.Email) == "" {
				emailSkipped = append(emailSkipped, "email:"+recipientLabel(rcpt))
				continue
			}
			addresses = append(addresses, rcpt.Email)
		}

		emailNeeded = len(addresses) > 0
		if emailNeeded {
			wg.Add(1)
			go func() {
				defer wg.Done()
				emailOK, emailErr = d.sendEmail(ctx, addresses, input.Content)
			}()
		}
	}

	if input.Channels.Push {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pushOK, pushSkipped, pushErr = d.sendPush(ctx, input)
		}()
	}

	wg.Wait()

	result.PerChannel.Email = emailOK
	result.PerChannel.Push = pushOK
	result.Skipped = append(result.Skipped, emailSkipped...)
	result.Skipped = append(result.Skipped, pushSkipped...)
	errs = multierr.Append(errs, emailErr)
	errs = multierr.Append(errs, pushErr)

	// Overall success: the email channel delivered, or no email delivery
	// was actually required for this call.
	result.Success = emailOK || !emailNeeded

	if result.Success && input.Reminder != nil {
		if err := d.markSent(ctx, input.Reminder); err != nil {
			result.Success = false
			errs = multierr.Append(errs, err)
		}
	}

	if errs != nil {
		result.Error = errs.Error()
	}

	if input.Reminder != nil {
		outcome := "failed"
		if result.Success {
			outcome = "sent"
		}
		metrics.ReminderDispatches.WithLabelValues(outcome).Inc()
	}

	return result, nil
}

func (d *Dispatcher) sendInApp(ctx context.Context, input DispatchInput) (delivered, failed bool, skipped []string) {

	for _, rcpt := range input.Recipients {
		if strings.TrimSpace(rcpt.Username) == "" {
			skipped = append(skipped, "inapp:"+recipientLabel(rcpt))
			continue
		}

		notification := models.Notification{
			RecipientUsername: rcpt.Username,
			Title:             input.Content.EmailSubject,
			Message:           input.Content.InAppMessage,
			Type:              models.NotificationSystem,
			RelatedData:       relatedData(input),
		}

		if err := d.db.WithContext(ctx).Create(&notification).Error; err != nil {
			failed = true
			metrics.ChannelDeliveries.WithLabelValues("inapp", "failed").Inc()
			d.recordEvent(ctx, models.SeverityMedium, "in-app notification persist failed", map[string]any{
				"recipient": rcpt.Username,
				"error":     err.Error(),
			})
			continue
		}

		delivered = true
		metrics.ChannelDeliveries.WithLabelValues("inapp", "sent").Inc()
		if d.hub != nil {
			d.hub.NotifyUser(rcpt.Username, notification)
		}
	}

	return delivered, failed, skipped
}

func (d *Dispatcher) sendEmail(ctx context.Context, addresses []string, content Content) (bool, error) {
	if d.mailer == nil {
		d.recordEvent(ctx, models.SeverityCritical, "email requested but no mailer configured", nil)
		metrics.ChannelDeliveries.WithLabelValues("email", "failed").Inc()
		return false, errors.New("email: mailer not configured")
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.mailer.Send(sendCtx, mail.Message{
		To:      addresses,
		Subject: content.EmailSubject,
		Body:    content.EmailHTML,
		HTML:    true,
	})
	if err != nil {
		severity := models.SeverityMedium
		if errors.Is(err, mail.ErrSMTPDisabled) {
			severity = models.SeverityCritical
		}
		d.recordEvent(ctx, severity, "email delivery failed", map[string]any{
			"recipients": len(addresses),
			"error":      err.Error(),
		})
		metrics.ChannelDeliveries.WithLabelValues("email", "failed").Inc()
		return false, fmt.Errorf("email: %w", err)
	}

	metrics.ChannelDeliveries.WithLabelValues("email", "sent").Inc()
	return true, nil
}

func (d *Dispatcher) sendPush(ctx context.Context, input DispatchInput) (bool, []string, error) {
	if d.pusher == nil || !d.pusher.Enabled() {
		// Only recipients with a username are push candidates; email-only
		// parties never were, so they do not show up as push skips.
		var skipped []string
		for _, rcpt := range input.Recipients {
			if strings.TrimSpace(rcpt.Username) == "" {
				continue
			}
			skipped = append(skipped, "push:"+rcpt.Username)
		}
		return false, skipped, nil
	}

	payload := push.Payload{
		Title: input.Content.PushTitle,
		Body:  input.Content.PushBody,
		Data:  map[string]any{"kind": string(input.Kind)},
	}

	var (
		skipped   []string
		delivered bool
		errs      error
	)

	for _, rcpt := range input.Recipients {
		if strings.TrimSpace(rcpt.Username) == "" {
			skipped = append(skipped, "push:"+recipientLabel(rcpt))
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.pusher.Send(sendCtx, rcpt.Username, payload)
		cancel()

		switch {
		case err == nil:
			delivered = true
			metrics.ChannelDeliveries.WithLabelValues("push", "sent").Inc()
		case errors.Is(err, push.ErrNoSubscription):
			skipped = append(skipped, "push:"+recipientLabel(rcpt))
			metrics.ChannelDeliveries.WithLabelValues("push", "skipped").Inc()
		default:
			errs = multierr.Append(errs, fmt.Errorf("push %s: %w", rcpt.Username, err))
			metrics.ChannelDeliveries.WithLabelValues("push", "failed").Inc()
			d.recordEvent(ctx, models.SeverityMedium, "push delivery failed", map[string]any{
				"recipient": rcpt.Username,
				"error":     err.Error(),
			})
		}
	}

	return delivered, skipped, errs
}

// markSent flips is_sent conditionally and writes the archive row. The
// WHERE is_sent = false guard hardens against concurrent dispatch calls
// racing on the same reminder.
func (d *Dispatcher) markSent(ctx context.Context, reminder *models.Reminder) error {
	res := d.db.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id = ? AND is_sent = ?", reminder.ID, false).
		Update("is_sent", true)
	if res.Error != nil {
		return fmt.Errorf("dispatch: mark sent: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		d.log.Warn("reminder already marked sent, skipping archive",
			zap.String("reminder_id", reminder.ID))
		return nil
	}

	archive := models.SentReminder{
		ReminderID:      reminder.ID,
		SubjectName:     reminder.SubjectName,
		DueDayMonth:     reminder.DueDayMonth,
		AssignedParties: reminder.AssignedParties,
		SentDate:        worktime.TruncateToDay(d.now()),
	}
	if err := d.db.WithContext(ctx).Create(&archive).Error; err != nil {
		return fmt.Errorf("dispatch: archive sent reminder: %w", err)
	}

	reminder.IsSent = true
	return nil
}

func (d *Dispatcher) recordEvent(ctx context.Context, severity, message string, detail map[string]any) {
	d.log.Warn(message, zap.String("severity", severity), zap.Any("detail", detail))
	if d.events != nil {
		d.events.Record(ctx, severity, "dispatch", message, detail)
	}
}

func relatedData(input DispatchInput) datatypes.JSON {
	kind := string(input.Kind)
	if kind == "" {
		kind = string(KindSystemAlert)
	}
	return datatypes.JSON(fmt.Sprintf(`{"sender":"system","kind":%q}`, kind))
}

func recipientLabel(rcpt Recipient) string {
	if rcpt.Username != "" {
		return rcpt.Username
	}
	return rcpt.Email
}
