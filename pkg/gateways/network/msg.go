package network

import "time"

// NotificationMessage is published for every notification the monitor sends.
type NotificationMessage struct {
	ID       string    `json:"id"`
	DeviceID string    `json:"device_id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// AcknowledgeRequest is consumed from operators acknowledging a stored alert.
type AcknowledgeRequest struct {
	DeviceID string `json:"device_id"`
	AlertKey string `json:"alert_key"`
}
