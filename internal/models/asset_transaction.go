package models

import "time"

// Shift values for PartsDay.
const (
	ShiftMorning   = "Sáng"
	ShiftAfternoon = "Chiều"
)

// Transaction types.
const (
	TransactionBorrow = "borrow"
	TransactionReturn = "return"
)

// AssetTransaction records a borrow or return of a physical asset file.
// Duplicates across days are valid business events; no uniqueness is enforced.
type AssetTransaction struct {
	BaseModel

	StaffCode       string    `gorm:"type:varchar(32);index;not null" json:"staff_code"`
	TransactionDate time.Time `gorm:"index;not null" json:"transaction_date"`
	PartsDay        string    `gorm:"type:varchar(16);not null" json:"parts_day"`
	Room            string    `gorm:"type:varchar(32);index" json:"room"`
	TransactionType string    `gorm:"type:varchar(16);not null" json:"transaction_type"`
	AssetYear       int       `gorm:"not null" json:"asset_year"`
	AssetCode       int       `gorm:"not null" json:"asset_code"`
	Note            string    `gorm:"type:text" json:"note"`
}
