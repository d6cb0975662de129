package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/pkg/logger"
)

// ListSystemEventsInput filters the event listing.
type ListSystemEventsInput struct {
	Severity string
	Source   string
	Limit    int
	Offset   int
}

// SystemEventService persists operational error events for the admin
// health dashboard. Record never returns an error; a failure to write an
// audit row must not break the operation being audited.
type SystemEventService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSystemEventService constructs a SystemEventService.
func NewSystemEventService(db *gorm.DB) (*SystemEventService, error) {
	if db == nil {
		return nil, errors.New("system event service: db is required")
	}
	return &SystemEventService{db: db, log: logger.WithModule("events")}, nil
}

// Record writes one event row. Satisfies the dispatcher's EventRecorder
// contract.
func (s *SystemEventService) Record(ctx context.Context, severity, source, message string, detail map[string]any) {
	ctx = ensureContext(ctx)

	severity = strings.TrimSpace(severity)
	if severity == "" {
		severity = models.SeverityLow
	}

	event := models.SystemEvent{
		Severity: severity,
		Source:   strings.TrimSpace(source),
		Message:  strings.TrimSpace(message),
	}

	if detail != nil {
		if data, err := json.Marshal(detail); err == nil {
			event.Detail = datatypes.JSON(data)
		}
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		s.log.Error("failed to record system event",
			zap.String("severity", severity),
			zap.String("message", message),
			zap.Error(err))
	}
}

// List returns events newest first, optionally filtered by severity and source.
func (s *SystemEventService) List(ctx context.Context, input ListSystemEventsInput) ([]models.SystemEvent, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.SystemEvent{})
	if severity := strings.TrimSpace(input.Severity); severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if source := strings.TrimSpace(input.Source); source != "" {
		query = query.Where("source = ?", source)
	}

	var rows []models.SystemEvent
	if err := query.
		Order("created_at DESC").
		Limit(clampLimit(input.Limit, 50, 200)).
		Offset(maxInt(0, input.Offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("system event service: list events: %w", err)
	}
	return rows, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
