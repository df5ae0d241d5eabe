// Package notification defines durable per-user notifications.
package notification

import "time"

// Status is the read state of a notification.
type Status string

const (
	StatusUnread Status = "unread"
	StatusRead   Status = "read"
)

// Notification is the durable record of an event for one recipient. Real-time
// pushes are a convenience; this record is the source of truth.
type Notification struct {
	ID         string    `json:"-"`
	ExternalID string    `json:"notificationId"`
	ClientID   string    `json:"-"`
	UserID     string    `json:"-"`
	Message    string    `json:"message"`
	Href       string    `json:"href,omitempty"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Draft is a notification to be created for one recipient.
type Draft struct {
	ClientID string
	UserID   string
	Message  string
	Href     string
}
