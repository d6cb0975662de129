package models

import "gorm.io/datatypes"

// System event severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SystemEvent is an audit row recorded for channel delivery failures and
// other operational errors, surfaced on the admin health dashboard.
type SystemEvent struct {
	BaseModel

	Severity string         `gorm:"type:varchar(16);index;not null" json:"severity"`
	Source   string         `gorm:"type:varchar(64);index" json:"source"`
	Message  string         `gorm:"type:text;not null" json:"message"`
	Detail   datatypes.JSON `json:"detail"`
}
