package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/auth"
	"github.com/nguyenvh/custodesk/internal/models"
	apperrors "github.com/nguyenvh/custodesk/pkg/errors"
)

// CreateStaffInput defines attributes for a new staff account.
type CreateStaffInput struct {
	Username    string
	DisplayName string
	Email       string
	Password    string
	Role        string
	Department  string
}

// UpdateStaffInput carries optional field updates for an existing account.
type UpdateStaffInput struct {
	DisplayName *string
	Email       *string
	Role        *string
	Department  *string
	Status      *string
}

// ListStaffInput filters the staff listing.
type ListStaffInput struct {
	Department string
	Status     string
	Limit      int
	Offset     int
}

// StaffService manages staff accounts and resolves notification recipients.
type StaffService struct {
	db *gorm.DB
}

// NewStaffService constructs a StaffService.
func NewStaffService(db *gorm.DB) (*StaffService, error) {
	if db == nil {
		return nil, errors.New("staff service: db is required")
	}
	return &StaffService{db: db}, nil
}

// Create registers a new staff account with a hashed password.
func (s *StaffService) Create(ctx context.Context, input CreateStaffInput) (*models.Staff, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, apperrors.NewValidation("username is required")
	}
	if input.Password == "" {
		return nil, apperrors.NewValidation("password is required")
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, apperrors.NewValidation("role must be admin or user")
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("staff service: hash password: %w", err)
	}

	staff := models.Staff{
		Username:      username,
		DisplayName:   strings.TrimSpace(input.DisplayName),
		Email:         strings.TrimSpace(input.Email),
		Password:      hash,
		Role:          role,
		Department:    strings.TrimSpace(input.Department),
		AccountStatus: models.StaffStatusActive,
	}

	if err := s.db.WithContext(ctx).Create(&staff).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewValidation("username already exists")
		}
		return nil, fmt.Errorf("staff service: create staff: %w", err)
	}
	return &staff, nil
}

// GetByUsername loads one staff account.
func (s *StaffService) GetByUsername(ctx context.Context, username string) (*models.Staff, error) {
	ctx = ensureContext(ctx)

	var staff models.Staff
	err := s.db.WithContext(ctx).
		Where("username = ?", strings.TrimSpace(username)).
		Take(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("staff service: load staff: %w", err)
	}
	return &staff, nil
}

// List returns staff accounts, optionally filtered by department and status.
func (s *StaffService) List(ctx context.Context, input ListStaffInput) ([]models.Staff, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Staff{})
	if department := strings.TrimSpace(input.Department); department != "" {
		query = query.Where("department = ?", department)
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		query = query.Where("account_status = ?", status)
	}

	var rows []models.Staff
	if err := query.
		Order("username ASC").
		Limit(clampLimit(input.Limit, 50, 200)).
		Offset(maxInt(0, input.Offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("staff service: list staff: %w", err)
	}
	return rows, nil
}

// Update applies partial changes to an existing account.
func (s *StaffService) Update(ctx context.Context, username string, input UpdateStaffInput) (*models.Staff, error) {
	ctx = ensureContext(ctx)

	staff, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*input.DisplayName)
	}
	if input.Email != nil {
		updates["email"] = strings.TrimSpace(*input.Email)
	}
	if input.Role != nil {
		role := strings.TrimSpace(*input.Role)
		if role != models.RoleAdmin && role != models.RoleUser {
			return nil, apperrors.NewValidation("role must be admin or user")
		}
		updates["role"] = role
	}
	if input.Department != nil {
		updates["department"] = strings.TrimSpace(*input.Department)
	}
	if input.Status != nil {
		status := strings.TrimSpace(*input.Status)
		switch status {
		case models.StaffStatusActive, models.StaffStatusLocked, models.StaffStatusInactive:
		default:
			return nil, apperrors.NewValidation("invalid account status")
		}
		updates["account_status"] = status
		if status == models.StaffStatusActive {
			updates["failed_login_attempts"] = 0
		}
	}

	if len(updates) == 0 {
		return staff, nil
	}

	if err := s.db.WithContext(ctx).Model(staff).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("staff service: update staff: %w", err)
	}
	return s.GetByUsername(ctx, username)
}

// ActiveUsernames returns every account able to receive in-app and push
// notifications. Locked and inactive accounts are excluded.
func (s *StaffService) ActiveUsernames(ctx context.Context) ([]string, error) {
	ctx = ensureContext(ctx)

	var usernames []string
	if err := s.db.WithContext(ctx).
		Model(&models.Staff{}).
		Where("account_status = ?", models.StaffStatusActive).
		Order("username ASC").
		Pluck("username", &usernames).Error; err != nil {
		return nil, fmt.Errorf("staff service: resolve active recipients: %w", err)
	}
	return usernames, nil
}
