// internal/models/device_token.go
package models

import "time"

// DeviceToken is a push registration for one of a user's devices. Rows are
// owned by the registration flow; this service only ever reads them.
type DeviceToken struct {
	UserID     string    `json:"user_id"`
	Token      string    `json:"-"` // never exposed in API responses
	Platform   string    `json:"platform"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// Platforms
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
	PlatformWeb     = "web"
)
