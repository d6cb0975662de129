package models

// Staff account statuses.
const (
	StaffStatusActive   = "active"
	StaffStatusLocked   = "locked"
	StaffStatusInactive = "inactive"
)

// Staff roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Staff represents a back-office user able to record transactions and receive reminders.
// Locked or inactive accounts are rejected at login and excluded from recipient resolution.
type Staff struct {
	BaseModel

	Username            string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	DisplayName         string `gorm:"type:varchar(255)" json:"display_name"`
	Email               string `gorm:"type:varchar(255)" json:"email"`
	Password            string `gorm:"type:varchar(255);not null" json:"-"`
	Role                string `gorm:"type:varchar(32);default:'user'" json:"role"`
	Department          string `gorm:"type:varchar(64);index" json:"department"`
	AccountStatus       string `gorm:"type:varchar(32);default:'active';index" json:"account_status"`
	FailedLoginAttempts int    `gorm:"default:0" json:"failed_login_attempts"`
}

// IsActive reports whether the account may log in and receive reminders.
func (s *Staff) IsActive() bool {
	return s.AccountStatus == StaffStatusActive
}

// IsAdmin reports whether the account holds the administrator role.
func (s *Staff) IsAdmin() bool {
	return s.Role == RoleAdmin
}
