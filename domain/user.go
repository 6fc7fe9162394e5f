package domain

import "time"

// User represents a registered rewards-platform user.
type User struct {
	ID                string        `bson:"_id,omitempty" json:"id"`
	Name              string        `bson:"name" json:"name"`
	Email             string        `bson:"email" json:"email"`
	PasswordHash      string        `bson:"password_hash" json:"-"`
	IsVerified        bool          `bson:"is_verified" json:"isVerified"`
	VerificationToken string        `bson:"verification_token,omitempty" json:"-"`
	ConnectedAccounts []string      `bson:"connected_accounts" json:"connectedAccounts"`
	Points            int64         `bson:"points" json:"points"`
	Earnings          int64         `bson:"earnings" json:"earnings"`
	FacebookData      *FacebookData `bson:"facebook_data,omitempty" json:"facebookData,omitempty"`
	WhatsappSession   string        `bson:"whatsapp_session,omitempty" json:"-"`
	TikTokToken       string        `bson:"tiktok_token,omitempty" json:"-"`
	LastLoginAt       *time.Time    `bson:"last_login_at,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt         time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `bson:"updated_at" json:"updatedAt"`
}

// HasConnected reports whether the given platform is already linked.
func (u *User) HasConnected(platform string) bool {
	for _, p := range u.ConnectedAccounts {
		if p == platform {
			return true
		}
	}
	return false
}

// FacebookData holds the profile and page credentials captured when a user
// completes the Facebook OAuth flow. It is replaced wholesale on every
// successful completion, never merged.
type FacebookData struct {
	UserID       string         `bson:"user_id" json:"userId"`
	Name         string         `bson:"name" json:"name"`
	Email        string         `bson:"email,omitempty" json:"email,omitempty"`
	AccessToken  string         `bson:"access_token" json:"-"`
	TokenExpires time.Time      `bson:"token_expires" json:"tokenExpires"`
	Pages        []FacebookPage `bson:"pages" json:"pages"`
}

// FacebookPage is a page the user manages, with its page-scoped token.
type FacebookPage struct {
	ID          string `bson:"id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Category    string `bson:"category,omitempty" json:"category,omitempty"`
	AccessToken string `bson:"access_token" json:"-"`
}
