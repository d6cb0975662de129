package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/reminders"
	"github.com/nguyenvh/custodesk/internal/worktime"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
	"github.com/nguyenvh/custodesk/pkg/logger"
)

// ErrAlreadySent rejects a manual send for a reminder whose current cycle
// already went out. An admin resets the flag to start the next cycle.
var ErrAlreadySent = errors.New("reminder service: reminder already sent this cycle")

// CreateReminderInput defines a new recurring reminder.
type CreateReminderInput struct {
	SubjectName     string
	DueDayMonth     string
	AssignedParties []models.AssignedParty
}

// UpdateReminderInput carries optional field updates.
type UpdateReminderInput struct {
	SubjectName     *string
	DueDayMonth     *string
	AssignedParties []models.AssignedParty
}

// ListRemindersInput filters the reminder listing.
type ListRemindersInput struct {
	OnlyPending bool
	Limit       int
	Offset      int
}

// SendSummary reports the outcome of a batch send.
type SendSummary struct {
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Skipped []string `json:"skipped,omitempty"`
	Errors  string   `json:"errors,omitempty"`
}

// ReminderService owns the reminder lifecycle: CRUD, the daily batch send,
// the single-reminder admin send, and the annual reset.
type ReminderService struct {
	db         *gorm.DB
	dispatcher *reminders.Dispatcher
	staff      *StaffService
	log        *zap.Logger
}

// NewReminderService constructs a ReminderService.
func NewReminderService(db *gorm.DB, dispatcher *reminders.Dispatcher, staff *StaffService) (*ReminderService, error) {
	if db == nil {
		return nil, errors.New("reminder service: db is required")
	}
	if dispatcher == nil {
		return nil, errors.New("reminder service: dispatcher is required")
	}
	if staff == nil {
		return nil, errors.New("reminder service: staff service is required")
	}
	return &ReminderService{
		db:         db,
		dispatcher: dispatcher,
		staff:      staff,
		log:        logger.WithModule("reminders"),
	}, nil
}

// Create validates and persists a new reminder.
func (s *ReminderService) Create(ctx context.Context, input CreateReminderInput) (*models.Reminder, error) {
	ctx = ensureContext(ctx)

	subject := strings.TrimSpace(input.SubjectName)
	if subject == "" {
		return nil, apperrors.NewValidation("subject name is required")
	}
	if _, err := worktime.ParseDayMonth(input.DueDayMonth); err != nil {
		return nil, apperrors.NewValidation(err.Error())
	}

	reminder := models.Reminder{
		SubjectName: subject,
		DueDayMonth: strings.TrimSpace(input.DueDayMonth),
	}
	if err := reminder.SetParties(input.AssignedParties); err != nil {
		return nil, apperrors.ErrValidation.WithInternal(err)
	}

	if err := s.db.WithContext(ctx).Create(&reminder).Error; err != nil {
		return nil, fmt.Errorf("reminder service: create reminder: %w", err)
	}
	return &reminder, nil
}

// Get loads one reminder.
func (s *ReminderService) Get(ctx context.Context, id string) (*models.Reminder, error) {
	ctx = ensureContext(ctx)

	var reminder models.Reminder
	err := s.db.WithContext(ctx).Take(&reminder, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reminder service: load reminder: %w", err)
	}
	return &reminder, nil
}

// List returns reminders ordered by due date string, optionally pending only.
func (s *ReminderService) List(ctx context.Context, input ListRemindersInput) ([]models.Reminder, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Reminder{})
	if input.OnlyPending {
		query = query.Where("is_sent = ?", false)
	}

	var rows []models.Reminder
	if err := query.
		Order("due_day_month ASC, subject_name ASC").
		Limit(clampLimit(input.Limit, 100, 500)).
		Offset(maxInt(0, input.Offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reminder service: list reminders: %w", err)
	}
	return rows, nil
}

// Update applies partial changes to an existing reminder.
func (s *ReminderService) Update(ctx context.Context, id string, input UpdateReminderInput) (*models.Reminder, error) {
	ctx = ensureContext(ctx)

	reminder, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.SubjectName != nil {
		subject := strings.TrimSpace(*input.SubjectName)
		if subject == "" {
			return nil, apperrors.NewValidation("subject name is required")
		}
		updates["subject_name"] = subject
	}
	if input.DueDayMonth != nil {
		if _, err := worktime.ParseDayMonth(*input.DueDayMonth); err != nil {
			return nil, apperrors.NewValidation(err.Error())
		}
		updates["due_day_month"] = strings.TrimSpace(*input.DueDayMonth)
	}
	if input.AssignedParties != nil {
		var scratch models.Reminder
		if err := scratch.SetParties(input.AssignedParties); err != nil {
			return nil, apperrors.ErrValidation.WithInternal(err)
		}
		updates["assigned_parties"] = scratch.AssignedParties
	}

	if len(updates) == 0 {
		return reminder, nil
	}

	if err := s.db.WithContext(ctx).Model(reminder).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("reminder service: update reminder: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a reminder. Archived sent rows are kept.
func (s *ReminderService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Delete(&models.Reminder{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("reminder service: delete reminder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Reset clears the sent flag so the reminder fires again next cycle.
func (s *ReminderService) Reset(ctx context.Context, id string) (*models.Reminder, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.Reminder{}).
		Where("id = ?", id).
		Update("is_sent", false)
	if result.Error != nil {
		return nil, fmt.Errorf("reminder service: reset reminder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotFound
	}
	return s.Get(ctx, id)
}

// ListSent returns the immutable send archive newest first.
func (s *ReminderService) ListSent(ctx context.Context, limit, offset int) ([]models.SentReminder, error) {
	ctx = ensureContext(ctx)

	var rows []models.SentReminder
	if err := s.db.WithContext(ctx).
		Order("sent_date DESC, created_at DESC").
		Limit(clampLimit(limit, 100, 500)).
		Offset(maxInt(0, offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("reminder service: list sent reminders: %w", err)
	}
	return rows, nil
}

// SendDue evaluates every pending reminder against now and dispatches the
// due ones. Entries are independent: one failure never aborts the batch and
// completed sends are never rolled back.
func (s *ReminderService) SendDue(ctx context.Context, now time.Time) (SendSummary, error) {
	ctx = ensureContext(ctx)

	var pending []models.Reminder
	if err := s.db.WithContext(ctx).
		Where("is_sent = ?", false).
		Order("due_day_month ASC").
		Find(&pending).Error; err != nil {
		return SendSummary{}, fmt.Errorf("reminder service: load pending reminders: %w", err)
	}

	due, excluded := reminders.SelectDue(pending, now)

	summary := SendSummary{}
	var errs error

	for _, ex := range excluded {
		summary.Skipped = append(summary.Skipped,
			fmt.Sprintf("%s: %s", ex.Reminder.SubjectName, ex.Reason))
		s.log.Warn("reminder excluded from batch",
			zap.String("reminder_id", ex.Reminder.ID),
			zap.String("reason", ex.Reason))
	}

	for i := range due {
		reminder := due[i]
		result, err := s.send(ctx, &reminder)
		if err != nil {
			summary.Failed++
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", reminder.SubjectName, err))
			continue
		}
		if !result.Success {
			summary.Failed++
			errs = multierr.Append(errs, fmt.Errorf("%s: %s", reminder.SubjectName, result.Error))
			continue
		}
		summary.Sent++
		summary.Skipped = append(summary.Skipped, result.Skipped...)
	}

	if errs != nil {
		summary.Errors = errs.Error()
	}

	s.log.Info("due reminder batch complete",
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", len(summary.Skipped)))

	return summary, nil
}

// SendOne dispatches a single reminder immediately regardless of its due
// date. Admin action for ad-hoc resends.
func (s *ReminderService) SendOne(ctx context.Context, id string) (reminders.DispatchResult, error) {
	ctx = ensureContext(ctx)

	reminder, err := s.Get(ctx, id)
	if err != nil {
		return reminders.DispatchResult{}, err
	}
	if reminder.IsSent {
		return reminders.DispatchResult{}, ErrAlreadySent
	}

	result, err := s.send(ctx, reminder)
	if err != nil {
		return result, err
	}
	if !result.Success {
		return result, apperrors.ErrChannelDelivery.WithMessage(result.Error)
	}
	return result, nil
}

// send resolves recipients and fans one reminder out. Email goes to the
// assigned parties; in-app and push go to every active staff account.
func (s *ReminderService) send(ctx context.Context, reminder *models.Reminder) (reminders.DispatchResult, error) {
	parties, err := reminder.Parties()
	if err != nil {
		return reminders.DispatchResult{}, err
	}

	usernames, err := s.staff.ActiveUsernames(ctx)
	if err != nil {
		return reminders.DispatchResult{}, err
	}

	var recipients []reminders.Recipient
	for _, party := range parties {
		if strings.TrimSpace(party.Email) != "" {
			recipients = append(recipients, reminders.Recipient{Email: party.Email})
		}
	}
	for _, username := range usernames {
		recipients = append(recipients, reminders.Recipient{Username: username})
	}

	content := reminders.Compose(reminders.KindReminderDue, reminders.Data{
		SubjectName: reminder.SubjectName,
		DueDayMonth: reminder.DueDayMonth,
	})

	return s.dispatcher.Dispatch(ctx, reminders.DispatchInput{
		Reminder:   reminder,
		Recipients: recipients,
		Content:    content,
		Kind:       reminders.KindReminderDue,
		Channels:   reminders.Channels{Email: true, Push: true, InApp: true},
	})
}
