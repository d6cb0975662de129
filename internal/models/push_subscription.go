package models

import "gorm.io/datatypes"

// PushSubscription stores one browser push endpoint per staff member.
// Upserts are keyed by username; the last registered device wins.
type PushSubscription struct {
	BaseModel

	Username     string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Subscription datatypes.JSON `gorm:"not null" json:"subscription"`
}

// WebPushSubscription mirrors the browser PushSubscription JSON shape.
type WebPushSubscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}
