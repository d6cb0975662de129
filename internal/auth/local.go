package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/pkg/metrics"
)

var (
	// ErrInvalidCredentials is returned when the supplied identity/password pair is invalid.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked signals that the account exceeded the permitted failed attempts.
	// Locked accounts stay locked until an administrator resets them.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrAccountDisabled signals that the account has been deactivated.
	ErrAccountDisabled = errors.New("auth: account disabled")
)

// LocalConfig defines tunable behaviour for the local provider.
type LocalConfig struct {
	LockoutThreshold int
}

// LocalProvider implements username/password authentication with the
// account-lock policy: failed attempts accumulate and flip account_status
// to locked at the threshold.
type LocalProvider struct {
	db        *gorm.DB
	threshold int
}

// NewLocalProvider builds a provider with sane defaults.
func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local provider: db is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}

	return &LocalProvider{db: db, threshold: threshold}, nil
}

// Authenticate verifies the supplied credentials and returns the staff row when successful.
func (p *LocalProvider) Authenticate(username, password string) (*models.Staff, error) {
	identity := strings.TrimSpace(username)
	if identity == "" || password == "" {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}

	var staff models.Staff
	err := p.db.Where("LOWER(username) = LOWER(?)", identity).Take(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local provider: query staff: %w", err)
	}

	switch staff.AccountStatus {
	case models.StaffStatusInactive:
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, ErrAccountDisabled
	case models.StaffStatusLocked:
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		return nil, ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(staff.Password), []byte(password)) != nil {
		return nil, p.handleFailedAttempt(&staff)
	}

	if staff.FailedLoginAttempts != 0 {
		if err := p.db.Model(&staff).Update("failed_login_attempts", 0).Error; err != nil {
			return nil, fmt.Errorf("local provider: reset failed attempts: %w", err)
		}
		staff.FailedLoginAttempts = 0
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &staff, nil
}

func (p *LocalProvider) handleFailedAttempt(staff *models.Staff) error {
	staff.FailedLoginAttempts++

	updates := map[string]any{
		"failed_login_attempts": staff.FailedLoginAttempts,
	}

	if staff.FailedLoginAttempts >= p.threshold {
		staff.AccountStatus = models.StaffStatusLocked
		updates["account_status"] = models.StaffStatusLocked
	}

	if err := p.db.Model(staff).Updates(updates).Error; err != nil {
		return fmt.Errorf("local provider: update failed attempts: %w", err)
	}

	if staff.AccountStatus == models.StaffStatusLocked {
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		return ErrAccountLocked
	}

	metrics.AuthAttempts.WithLabelValues("failure").Inc()
	return ErrInvalidCredentials
}

// Unlock resets the lock state for an account; an admin-only operation.
func (p *LocalProvider) Unlock(username string) error {
	res := p.db.Model(&models.Staff{}).
		Where("username = ? AND account_status = ?", username, models.StaffStatusLocked).
		Updates(map[string]any{
			"account_status":        models.StaffStatusActive,
			"failed_login_attempts": 0,
		})
	if res.Error != nil {
		return fmt.Errorf("local provider: unlock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("local provider: hash password: %w", err)
	}
	return string(hash), nil
}
