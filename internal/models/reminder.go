package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// AssignedParty names a role responsible for a reminder, with an optional email address.
type AssignedParty struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Reminder is a recurring annual obligation (asset check, CRC report) with a
// DD-MM due date. IsSent is flipped only by the dispatcher after a successful
// send and reset manually by an administrator when the cycle recurs.
type Reminder struct {
	BaseModel

	SubjectName     string         `gorm:"type:varchar(255);not null" json:"subject_name"`
	DueDayMonth     string         `gorm:"type:varchar(5);not null" json:"due_day_month"`
	AssignedParties datatypes.JSON `json:"assigned_parties"`
	IsSent          bool           `gorm:"default:false;index" json:"is_sent"`
}

// Parties decodes the assigned parties column.
func (r *Reminder) Parties() ([]AssignedParty, error) {
	if len(r.AssignedParties) == 0 {
		return nil, nil
	}
	var parties []AssignedParty
	if err := json.Unmarshal(r.AssignedParties, &parties); err != nil {
		return nil, fmt.Errorf("reminder: decode assigned parties: %w", err)
	}
	return parties, nil
}

// SetParties encodes the assigned parties column.
func (r *Reminder) SetParties(parties []AssignedParty) error {
	data, err := json.Marshal(parties)
	if err != nil {
		return fmt.Errorf("reminder: encode assigned parties: %w", err)
	}
	r.AssignedParties = datatypes.JSON(data)
	return nil
}
