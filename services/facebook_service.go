package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	facebookOAuth2 "golang.org/x/oauth2/facebook"

	"github.com/rewardly/rewardly/domain"
	"github.com/rewardly/rewardly/internal/fbgraph"
)

const (
	oauthStateTTL   = 10 * time.Minute
	exchangeTimeout = 10 * time.Second
)

// facebookScopes are the permissions requested during linking. Page scopes
// are needed so the user can later publish through the platform.
var facebookScopes = []string{
	"email",
	"public_profile",
	"pages_show_list",
	"pages_read_engagement",
	"pages_manage_posts",
	"pages_messaging",
}

// FacebookConfig holds the app credentials and redirect target. Endpoint is
// overridable for tests and defaults to Facebook's real OAuth endpoints.
type FacebookConfig struct {
	AppID       string
	AppSecret   string
	RedirectURL string
	Endpoint    oauth2.Endpoint
}

// Configured reports whether app credentials are present.
func (c FacebookConfig) Configured() bool {
	return c.AppID != "" && c.AppSecret != "" && c.RedirectURL != ""
}

// CallbackResult is what the OAuth callback page reports back to the window
// that opened the popup. Every callback path produces one; it is the only
// channel to the initiating browser context.
type CallbackResult struct {
	Success bool
	Error   string
	Pages   []domain.FacebookPage
}

// FacebookService drives the Facebook OAuth linking flow: authorization URL
// generation, the redirect callback, and page listing/publishing against the
// stored connection.
type FacebookService struct {
	cfg      FacebookConfig
	links    domain.LinkStore
	users    domain.UserRepository
	graph    *fbgraph.Client
	notifier domain.Notifier
}

// NewFacebookService creates a new FacebookService.
func NewFacebookService(cfg FacebookConfig, links domain.LinkStore, users domain.UserRepository, graph *fbgraph.Client, notifier domain.Notifier) *FacebookService {
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = facebookOAuth2.Endpoint
	}
	return &FacebookService{cfg: cfg, links: links, users: users, graph: graph, notifier: notifier}
}

func (s *FacebookService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.AppID,
		ClientSecret: s.cfg.AppSecret,
		RedirectURL:  s.cfg.RedirectURL,
		Scopes:       facebookScopes,
		Endpoint:     s.cfg.Endpoint,
	}
}

// Initiate binds a fresh state value to the calling user and returns the
// authorization URL the popup should navigate to.
func (s *FacebookService) Initiate(ctx context.Context, userID string) (string, error) {
	if !s.cfg.Configured() {
		return "", domain.ErrNotConfigured
	}

	state := uuid.NewString()
	now := time.Now()
	err := s.links.Create(ctx, &domain.PendingLink{
		Token:     state,
		UserID:    userID,
		Platform:  domain.PlatformFacebook,
		CreatedAt: now,
		ExpiresAt: now.Add(oauthStateTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return s.oauthConfig().AuthCodeURL(state), nil
}

// HandleCallback processes the provider redirect. It never returns an
// error: every outcome, including upstream failures, becomes a
// CallbackResult for the message-and-close page, because the popup is the
// only way the initiating window learns what happened.
func (s *FacebookService) HandleCallback(ctx context.Context, query url.Values) *CallbackResult {
	if errParam := query.Get("error"); errParam != "" {
		desc := query.Get("error_description")
		if desc == "" {
			desc = errParam
		}
		log.Warn().Str("error", errParam).Str("description", desc).Msg("facebook oauth denied")
		return &CallbackResult{Error: desc}
	}

	code := query.Get("code")
	if code == "" {
		return &CallbackResult{Error: "No authorization code received"}
	}

	// The state parameter is the only link back to the initiating user.
	// Redeeming it is single-use: a replayed redirect fails here and the
	// user is credited at most once.
	link, err := s.links.Redeem(ctx, query.Get("state"), domain.PlatformFacebook)
	if err != nil {
		log.Warn().Err(err).Msg("facebook callback with invalid state")
		return &CallbackResult{Error: "Invalid or expired authorization state"}
	}

	token, err := s.exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("facebook token exchange failed")
		return &CallbackResult{Error: "Failed to connect Facebook account"}
	}

	profile, err := s.graph.FetchProfile(ctx, token.AccessToken)
	if err != nil {
		log.Error().Err(err).Msg("facebook profile fetch failed")
		return &CallbackResult{Error: "Failed to connect Facebook account"}
	}
	rawPages, err := s.graph.FetchManagedPages(ctx, token.AccessToken)
	if err != nil {
		log.Error().Err(err).Msg("facebook pages fetch failed")
		return &CallbackResult{Error: "Failed to connect Facebook account"}
	}

	pages := make([]domain.FacebookPage, 0, len(rawPages))
	for _, p := range rawPages {
		pages = append(pages, domain.FacebookPage{
			ID:          p.ID,
			Name:        p.Name,
			Category:    p.Category,
			AccessToken: p.AccessToken,
		})
	}

	// The credited identity comes from the redeemed state entry, never from
	// anything the provider or client supplied.
	user, err := s.users.ApplyConnectionBonus(ctx, link.UserID, domain.PlatformFacebook)
	if err != nil {
		if !errors.Is(err, domain.ErrAlreadyConnected) {
			log.Error().Err(err).Str("user_id", link.UserID).Msg("failed to credit facebook bonus")
			return &CallbackResult{Error: "Failed to connect Facebook account"}
		}
		// Re-linking refreshes credentials but never credits twice.
		user, err = s.users.GetByID(ctx, link.UserID)
		if err != nil {
			log.Error().Err(err).Str("user_id", link.UserID).Msg("failed to load user on facebook relink")
			return &CallbackResult{Error: "Failed to connect Facebook account"}
		}
	}

	data := &domain.FacebookData{
		UserID:       profile.ID,
		Name:         profile.Name,
		Email:        profile.Email,
		AccessToken:  token.AccessToken,
		TokenExpires: token.Expiry,
		Pages:        pages,
	}
	if err := s.users.SetFacebookData(ctx, user.ID, data); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("failed to persist facebook connection")
		return &CallbackResult{Error: "Failed to connect Facebook account"}
	}

	log.Info().Str("user_id", user.ID).Int("pages", len(pages)).Msg("facebook account linked")
	if err := s.notifier.Notify(ctx, "Account linked",
		fmt.Sprintf("User %s linked facebook", user.Email)); err != nil {
		log.Warn().Err(err).Msg("failed to send link notification")
	}

	return &CallbackResult{Success: true, Pages: pages}
}

// exchange swaps the authorization code for an access token with a bounded
// timeout so a slow token endpoint cannot hang the callback page.
func (s *FacebookService) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: exchangeTimeout})
	return s.oauthConfig().Exchange(ctx, code)
}

// ListPages returns the user's stored pages; empty if never connected.
func (s *FacebookService) ListPages(ctx context.Context, userID string) ([]domain.FacebookPage, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.FacebookData == nil {
		return []domain.FacebookPage{}, nil
	}
	return user.FacebookData.Pages, nil
}

// PostToPage publishes message to one of the user's connected pages using
// its page-scoped token.
func (s *FacebookService) PostToPage(ctx context.Context, userID, pageID, message, postLink string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.FacebookData == nil {
		return "", domain.ErrPageNotFound
	}

	for _, page := range user.FacebookData.Pages {
		if page.ID == pageID {
			return s.graph.Publish(ctx, page.ID, page.AccessToken, message, postLink)
		}
	}
	return "", domain.ErrPageNotFound
}
