package domain

import "time"

// Platform names accepted by the linking flows.
const (
	PlatformWhatsapp = "whatsapp"
	PlatformTikTok   = "tiktok"
	PlatformFacebook = "facebook"
)

// ValidPlatform reports whether name is one of the linkable platforms.
func ValidPlatform(name string) bool {
	switch name {
	case PlatformWhatsapp, PlatformTikTok, PlatformFacebook:
		return true
	}
	return false
}

// PendingLink is an ephemeral, single-use record binding a correlation token
// (numeric code, QR link ID, or OAuth state) back to the user who requested
// linking. It is consumed exactly once; a consumed entry is indistinguishable
// from one that never existed.
type PendingLink struct {
	Token     string    `json:"token" redis:"token"`
	UserID    string    `json:"user_id" redis:"user_id"`
	Platform  string    `json:"platform" redis:"platform"`
	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	ExpiresAt time.Time `json:"expires_at" redis:"expires_at"`
}

// Expired reports whether the link is past its TTL at the given instant.
func (p *PendingLink) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
