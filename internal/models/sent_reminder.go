package models

import (
	"time"

	"gorm.io/datatypes"
)

// SentReminder is an immutable archive entry written exactly once per
// successful dispatch. Kept as a separate table from Reminder so the send
// audit trail survives edits and deletes of the active row.
type SentReminder struct {
	BaseModel

	ReminderID      string         `gorm:"type:uuid;index" json:"reminder_id"`
	SubjectName     string         `gorm:"type:varchar(255);not null" json:"subject_name"`
	DueDayMonth     string         `gorm:"type:varchar(5);not null" json:"due_day_month"`
	AssignedParties datatypes.JSON `json:"assigned_parties"`
	SentDate        time.Time      `gorm:"index" json:"sent_date"`
}
