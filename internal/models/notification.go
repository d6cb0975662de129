package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification types. Exactly one applies per row.
const (
	NotificationSystem        = "system"
	NotificationReply         = "reply"
	NotificationDirectMessage = "direct_message"
)

// Notification represents an in-app notification for a staff member.
// Read and seen are tracked independently: seen means rendered in the
// viewport, read means acted upon.
type Notification struct {
	BaseModel

	RecipientUsername string         `gorm:"type:varchar(64);index;not null" json:"recipient_username"`
	Title             string         `gorm:"type:varchar(255);not null" json:"title"`
	Message           string         `gorm:"type:text" json:"message"`
	Type              string         `gorm:"type:varchar(32);not null" json:"notification_type"`
	RelatedData       datatypes.JSON `json:"related_data"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	IsSeen bool       `gorm:"default:false;index" json:"is_seen"`
	SeenAt *time.Time `json:"seen_at"`
}
