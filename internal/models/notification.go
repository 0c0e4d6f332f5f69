// internal/models/notification.go
package models

// DeliveryResult is the outcome of one per-device send. TokenIndex is the
// position of the device token in the input list; it is the only correlation
// key available when a transport failure happens before the provider assigns
// a message name.
type DeliveryResult struct {
	TokenIndex int         `json:"token_index"`
	Success    bool        `json:"success"`
	Status     int         `json:"status,omitempty"`
	StatusText string      `json:"status_text,omitempty"`
	Response   interface{} `json:"response,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// DispatchSummary aggregates the per-device outcomes of one multicast.
// Success means at least one device accepted the message.
type DispatchSummary struct {
	Success bool             `json:"success"`
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Total   int              `json:"total"`
	Details []DeliveryResult `json:"details"`
	Message string           `json:"message,omitempty"`
}

// Notification types
const (
	TypeMatchReminder = "match_reminder"
)
