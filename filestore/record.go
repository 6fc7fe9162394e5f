package filestore

import (
	"time"

	"github.com/rewardly/rewardly/domain"
)

// userRecord is the on-disk shape of a user. domain.User redacts secrets from
// its JSON form, so the file backend carries its own full representation.
type userRecord struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Email             string        `json:"email"`
	PasswordHash      string        `json:"password_hash"`
	IsVerified        bool          `json:"is_verified"`
	VerificationToken string        `json:"verification_token,omitempty"`
	ConnectedAccounts []string      `json:"connected_accounts"`
	Points            int64         `json:"points"`
	Earnings          int64         `json:"earnings"`
	FacebookData      *fbDataRecord `json:"facebook_data,omitempty"`
	WhatsappSession   string        `json:"whatsapp_session,omitempty"`
	TikTokToken       string        `json:"tiktok_token,omitempty"`
	LastLoginAt       *time.Time    `json:"last_login_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type fbDataRecord struct {
	UserID       string         `json:"user_id"`
	Name         string         `json:"name"`
	Email        string         `json:"email,omitempty"`
	AccessToken  string         `json:"access_token"`
	TokenExpires time.Time      `json:"token_expires"`
	Pages        []fbPageRecord `json:"pages"`
}

type fbPageRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	AccessToken string `json:"access_token"`
}

func toRecord(u *domain.User) *userRecord {
	rec := &userRecord{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		IsVerified:        u.IsVerified,
		VerificationToken: u.VerificationToken,
		ConnectedAccounts: u.ConnectedAccounts,
		Points:            u.Points,
		Earnings:          u.Earnings,
		WhatsappSession:   u.WhatsappSession,
		TikTokToken:       u.TikTokToken,
		LastLoginAt:       u.LastLoginAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
	if u.FacebookData != nil {
		fb := &fbDataRecord{
			UserID:       u.FacebookData.UserID,
			Name:         u.FacebookData.Name,
			Email:        u.FacebookData.Email,
			AccessToken:  u.FacebookData.AccessToken,
			TokenExpires: u.FacebookData.TokenExpires,
		}
		for _, p := range u.FacebookData.Pages {
			fb.Pages = append(fb.Pages, fbPageRecord{ID: p.ID, Name: p.Name, Category: p.Category, AccessToken: p.AccessToken})
		}
		rec.FacebookData = fb
	}
	return rec
}

func (rec *userRecord) toDomain() *domain.User {
	u := &domain.User{
		ID:                rec.ID,
		Name:              rec.Name,
		Email:             rec.Email,
		PasswordHash:      rec.PasswordHash,
		IsVerified:        rec.IsVerified,
		VerificationToken: rec.VerificationToken,
		ConnectedAccounts: rec.ConnectedAccounts,
		Points:            rec.Points,
		Earnings:          rec.Earnings,
		WhatsappSession:   rec.WhatsappSession,
		TikTokToken:       rec.TikTokToken,
		LastLoginAt:       rec.LastLoginAt,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if rec.FacebookData != nil {
		fb := &domain.FacebookData{
			UserID:       rec.FacebookData.UserID,
			Name:         rec.FacebookData.Name,
			Email:        rec.FacebookData.Email,
			AccessToken:  rec.FacebookData.AccessToken,
			TokenExpires: rec.FacebookData.TokenExpires,
		}
		for _, p := range rec.FacebookData.Pages {
			fb.Pages = append(fb.Pages, domain.FacebookPage{ID: p.ID, Name: p.Name, Category: p.Category, AccessToken: p.AccessToken})
		}
		u.FacebookData = fb
	}
	return u
}
