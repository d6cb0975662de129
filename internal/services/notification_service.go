package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/internal/notifications"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
)

// CreateNotificationInput defines attributes for a new in-app notification.
type CreateNotificationInput struct {
	RecipientUsername string
	Title             string
	Message           string
	Type              string
	RelatedData       map[string]any
}

// ListNotificationsInput filters a user's notification feed.
type ListNotificationsInput struct {
	Username   string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationService manages the in-app notification feed and its live
// websocket stream.
type NotificationService struct {
	db  *gorm.DB
	hub *notifications.Hub
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, hub *notifications.Hub) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db, hub: hub}, nil
}

// Create persists a notification and pushes it to the recipient's live
// sessions.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.RecipientUsername)
	if username == "" {
		return nil, apperrors.NewValidation("recipient username is required")
	}

	notificationType := strings.TrimSpace(input.Type)
	switch notificationType {
	case models.NotificationSystem, models.NotificationReply, models.NotificationDirectMessage:
	case "":
		notificationType = models.NotificationSystem
	default:
		return nil, apperrors.NewValidation("invalid notification type")
	}

	notification := models.Notification{
		RecipientUsername: username,
		Title:             strings.TrimSpace(input.Title),
		Message:           strings.TrimSpace(input.Message),
		Type:              notificationType,
	}

	if input.RelatedData != nil {
		data, err := json.Marshal(input.RelatedData)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal related data: %w", err)
		}
		notification.RelatedData = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	if s.hub != nil {
		s.hub.NotifyUser(username, notification)
	}
	return &notification, nil
}

// ListForUser returns the user's notifications newest first.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]models.Notification, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewValidation("username is required")
	}

	query := s.db.WithContext(ctx).Where("recipient_username = ?", username)
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(clampLimit(input.Limit, 25, 100)).
		Offset(maxInt(0, input.Offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}
	return rows, nil
}

// UnreadCount returns the badge count for the user.
func (s *NotificationService) UnreadCount(ctx context.Context, username string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_username = ? AND is_read = ?", strings.TrimSpace(username), false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}
	return count, nil
}

// MarkRead flags one notification read for its owner.
func (s *NotificationService) MarkRead(ctx context.Context, username, notificationID string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	notification, err := s.loadOwned(ctx, username, notificationID)
	if err != nil {
		return nil, err
	}

	if !notification.IsRead {
		if err := s.db.WithContext(ctx).Model(notification).
			Update("is_read", true).Error; err != nil {
			return nil, fmt.Errorf("notification service: mark read: %w", err)
		}
		notification.IsRead = true
		s.broadcast(username, notifications.EventNotificationRead, notification.ID)
	}
	return notification, nil
}

// MarkAllRead flags every unread notification for the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, username string) error {
	ctx = ensureContext(ctx)

	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_username = ? AND is_read = ?", strings.TrimSpace(username), false).
		Update("is_read", true).Error; err != nil {
		return fmt.Errorf("notification service: mark all read: %w", err)
	}

	s.broadcast(username, notifications.EventNotificationRead, "")
	return nil
}

// MarkSeen records that the listed notifications were rendered in the
// viewport. Seen is independent of read: it clears the badge without
// marking items handled.
func (s *NotificationService) MarkSeen(ctx context.Context, username string, ids []string) error {
	ctx = ensureContext(ctx)

	ids = normaliseStrings(ids)
	if len(ids) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("recipient_username = ? AND id IN ? AND is_seen = ?", strings.TrimSpace(username), ids, false).
		Updates(map[string]any{
			"is_seen": true,
			"seen_at": now,
		}).Error; err != nil {
		return fmt.Errorf("notification service: mark seen: %w", err)
	}

	s.broadcast(username, notifications.EventNotificationSeen, "")
	return nil
}

// Reply creates a reply-typed notification addressed back at the sender
// recorded in the original's related data.
func (s *NotificationService) Reply(ctx context.Context, username, notificationID, message string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidation("reply message is required")
	}

	original, err := s.loadOwned(ctx, username, notificationID)
	if err != nil {
		return nil, err
	}

	target := replyTarget(original)
	if target == "" || target == "system" {
		return nil, apperrors.NewBadRequest("notification has no sender to reply to")
	}

	return s.Create(ctx, CreateNotificationInput{
		RecipientUsername: target,
		Title:             "Re: " + original.Title,
		Message:           message,
		Type:              models.NotificationReply,
		RelatedData: map[string]any{
			"sender":      username,
			"reply_to_id": original.ID,
		},
	})
}

func (s *NotificationService) loadOwned(ctx context.Context, username, notificationID string) (*models.Notification, error) {
	var notification models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND recipient_username = ?", notificationID, strings.TrimSpace(username)).
		Take(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}
	return &notification, nil
}

func (s *NotificationService) broadcast(username, event, notificationID string) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(strings.TrimSpace(username), notifications.Event{
		Event:          event,
		NotificationID: notificationID,
	})
}

func replyTarget(notification *models.Notification) string {
	if len(notification.RelatedData) == 0 {
		return ""
	}
	var data struct {
		Sender string `json:"sender"`
	}
	if err := json.Unmarshal(notification.RelatedData, &data); err != nil {
		return ""
	}
	return strings.TrimSpace(data.Sender)
}
