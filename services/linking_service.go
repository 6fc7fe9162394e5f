package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rewardly/rewardly/domain"
)

// linkTTL bounds every pending link issued by the generic flow.
const linkTTL = 10 * time.Minute

// LinkIssue is the outcome of initiating a code or QR linking flow.
type LinkIssue struct {
	Code      string
	LinkID    string
	QRCode    string
	ExpiresIn time.Duration
}

// LinkResult reports the user's balances after a successful redemption.
type LinkResult struct {
	Platform          string
	ConnectedAccounts []string
	Points            int64
	Earnings          int64
}

// ConnectedPlatforms is the read-only summary of a user's linked accounts.
type ConnectedPlatforms struct {
	Whatsapp bool `json:"whatsapp"`
	Facebook bool `json:"facebook"`
	TikTok   bool `json:"tiktok"`
}

// LinkingService implements the generic code/QR linking flow for platforms
// without a real OAuth integration.
type LinkingService struct {
	links    domain.LinkStore
	users    domain.UserRepository
	qr       domain.QRRenderer
	notifier domain.Notifier
}

// NewLinkingService creates a new LinkingService.
func NewLinkingService(links domain.LinkStore, users domain.UserRepository, qr domain.QRRenderer, notifier domain.Notifier) *LinkingService {
	return &LinkingService{links: links, users: users, qr: qr, notifier: notifier}
}

// GenerateCode issues a six-digit, human-typable code bound to the caller.
// The short code space is acceptable here: single use, short TTL, and the
// only prize is a points bonus for the code's owner, not the redeemer.
func (s *LinkingService) GenerateCode(ctx context.Context, userID, platform string) (*LinkIssue, error) {
	if !domain.ValidPlatform(platform) {
		return nil, domain.ErrInvalidPlatform
	}

	code, err := randomDigits(6)
	if err != nil {
		return nil, fmt.Errorf("failed to generate link code: %w", err)
	}
	if err := s.store(ctx, code, userID, platform); err != nil {
		return nil, err
	}
	return &LinkIssue{Code: code, ExpiresIn: linkTTL}, nil
}

// GenerateQR issues an opaque link ID and renders it as a QR code for the
// scan-on-device flow. The confirming device redeems the ID out of band
// while the initiating page polls QRStatus.
func (s *LinkingService) GenerateQR(ctx context.Context, userID, platform string) (*LinkIssue, error) {
	if !domain.ValidPlatform(platform) {
		return nil, domain.ErrInvalidPlatform
	}

	linkID := uuid.NewString()
	if err := s.store(ctx, linkID, userID, platform); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{
		"action":   "link",
		"platform": platform,
		"linkId":   linkID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr payload: %w", err)
	}
	image, err := s.qr.DataURL(payload)
	if err != nil {
		return nil, err
	}

	return &LinkIssue{LinkID: linkID, QRCode: image, ExpiresIn: linkTTL}, nil
}

// VerifyCode redeems a pending link and credits the connection bonus. The
// credited identity is the one stored at creation time, not the caller: a
// code generated on device A may be redeemed from device B.
func (s *LinkingService) VerifyCode(ctx context.Context, code, platform string) (*LinkResult, error) {
	if !domain.ValidPlatform(platform) {
		return nil, domain.ErrInvalidPlatform
	}

	link, err := s.links.Redeem(ctx, code, platform)
	if err != nil {
		return nil, err
	}

	user, err := s.users.ApplyConnectionBonus(ctx, link.UserID, link.Platform)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", user.ID).
		Str("platform", link.Platform).
		Msg("social account linked")

	if err := s.notifier.Notify(ctx, "Account linked",
		fmt.Sprintf("User %s linked %s", user.Email, link.Platform)); err != nil {
		log.Warn().Err(err).Msg("failed to send link notification")
	}

	return &LinkResult{
		Platform:          link.Platform,
		ConnectedAccounts: user.ConnectedAccounts,
		Points:            user.Points,
		Earnings:          user.Earnings,
	}, nil
}

// QRStatus reports whether a QR link is still awaiting redemption. It never
// consumes the token.
func (s *LinkingService) QRStatus(ctx context.Context, linkID string) error {
	_, err := s.links.Peek(ctx, linkID)
	return err
}

// Platforms aggregates the connection flags from stored fields only. No
// registry interaction, no mutation.
func (s *LinkingService) Platforms(ctx context.Context, userID string) (*ConnectedPlatforms, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ConnectedPlatforms{
		Whatsapp: user.WhatsappSession != "" || user.HasConnected(domain.PlatformWhatsapp),
		Facebook: user.FacebookData != nil || user.HasConnected(domain.PlatformFacebook),
		TikTok:   user.TikTokToken != "" || user.HasConnected(domain.PlatformTikTok),
	}, nil
}

func (s *LinkingService) store(ctx context.Context, token, userID, platform string) error {
	now := time.Now()
	return s.links.Create(ctx, &domain.PendingLink{
		Token:     token,
		UserID:    userID,
		Platform:  platform,
		CreatedAt: now,
		ExpiresAt: now.Add(linkTTL),
	})
}

// randomDigits returns n cryptographically random decimal digits, first
// digit non-zero so the code keeps its fixed width when displayed.
func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		max := big.NewInt(10)
		lo := int64(0)
		if i == 0 {
			max = big.NewInt(9)
			lo = 1
		}
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + lo + v.Int64())
	}
	return string(digits), nil
}
