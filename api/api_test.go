package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/rewardly/rewardly/cache"
	"github.com/rewardly/rewardly/domain"
	"github.com/rewardly/rewardly/filestore"
	"github.com/rewardly/rewardly/internal/auth"
	"github.com/rewardly/rewardly/internal/fbgraph"
	"github.com/rewardly/rewardly/internal/mailer"
	"github.com/rewardly/rewardly/internal/qr"
	"github.com/rewardly/rewardly/services"
)

// testStack wires the full API over the file store and the in-memory link
// registry, so handler tests exercise the same paths production serves.
type testStack struct {
	e     *echo.Echo
	users *filestore.UserRepository
	links domain.LinkStore
}

func newTestStack(t *testing.T, fb services.FacebookConfig) *testStack {
	t.Helper()

	users, err := filestore.NewUserRepository(t.TempDir())
	require.NoError(t, err)
	links := cache.NewMemoryLinkStore()
	t.Cleanup(func() { _ = links.Close() })

	notifier := mailer.NewSMTPNotifier(mailer.Config{}) // unconfigured: drops silently
	tokens := services.NewTokenService("test-secret", time.Hour)
	hasher := auth.NewBcryptPasswordHasher(4)
	graph := fbgraph.NewClient("")
	if fb.Endpoint.AuthURL != "" {
		graph = fbgraph.NewClient(strings.TrimSuffix(fb.Endpoint.AuthURL, "/oauth/authorize"))
	}

	a := New(
		services.NewAuthService(users, hasher, tokens, notifier),
		services.NewUserService(users, notifier),
		services.NewLinkingService(links, users, qr.NewRenderer(), notifier),
		services.NewFacebookService(fb, links, users, graph, notifier),
		tokens,
	)

	e := echo.New()
	a.RegisterRoutes(e)
	return &testStack{e: e, users: users, links: links}
}

func (s *testStack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// register creates a user through the real endpoint and returns its bearer
// token and ID.
func (s *testStack) register(t *testing.T, name, email string) (token, userID string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name: name, Email: email, Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, resp.User.ID
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})

	rec := s.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name: "Ada", Email: "Ada@Example.com", Password: "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "ada@example.com", created.User.Email, "email is normalized")
	assert.NotEmpty(t, created.Token)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	rec = s.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name: "Ada 2", Email: "ada@example.com", Password: "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate email")

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email: "ada@example.com", Password: "secret123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email: "ada@example.com", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})

	for _, path := range []string{"/api/user/dashboard", "/api/social/connected-platforms", "/api/facebook/pages"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestDashboard(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})
	token, _ := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodGet, "/api/user/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"points":0`)
	assert.Contains(t, rec.Body.String(), `"connectedAccounts":[]`, "empty list, never null")
}

func TestCodeLinkingFlow(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})
	token, _ := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodPost, "/api/social/generate-code", token, LinkRequest{Platform: "whatsapp"})
	require.Equal(t, http.StatusOK, rec.Code)
	var issued CodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	assert.Len(t, issued.Code, 6)

	// Redeemed by a different authenticated caller; the bonus still goes to
	// the code's owner.
	otherToken, _ := s.register(t, "Bob", "bob@example.com")
	rec = s.do(t, http.MethodPost, "/api/social/verify-code", otherToken, VerifyCodeRequest{
		Code: issued.Code, Platform: "whatsapp",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result LinkResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.EqualValues(t, 100, result.Points)
	assert.Contains(t, result.ConnectedAccounts, "whatsapp")

	// Owner sees the bonus; redeemer does not.
	rec = s.do(t, http.MethodGet, "/api/user/dashboard", token, nil)
	assert.Contains(t, rec.Body.String(), `"points":100`)
	rec = s.do(t, http.MethodGet, "/api/user/dashboard", otherToken, nil)
	assert.Contains(t, rec.Body.String(), `"points":0`)

	// Single use.
	rec = s.do(t, http.MethodPost, "/api/social/verify-code", otherToken, VerifyCodeRequest{
		Code: issued.Code, Platform: "whatsapp",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyCodeErrors(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})
	token, _ := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodPost, "/api/social/verify-code", token, VerifyCodeRequest{
		Code: "123456", Platform: "whatsapp",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown code")

	rec = s.do(t, http.MethodPost, "/api/social/verify-code", token, VerifyCodeRequest{
		Code: "123456", Platform: "myspace",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown platform")

	// Platform mismatch does not consume the code.
	rec = s.do(t, http.MethodPost, "/api/social/generate-code", token, LinkRequest{Platform: "tiktok"})
	require.Equal(t, http.StatusOK, rec.Code)
	var issued CodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))

	rec = s.do(t, http.MethodPost, "/api/social/verify-code", token, VerifyCodeRequest{
		Code: issued.Code, Platform: "whatsapp",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/social/verify-code", token, VerifyCodeRequest{
		Code: issued.Code, Platform: "tiktok",
	})
	assert.Equal(t, http.StatusOK, rec.Code, "code survives a mismatched attempt")
}

func TestDomainErrorMapping(t *testing.T) {
	a := &API{}
	e := echo.New()

	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrLinkNotFound, http.StatusNotFound},
		{domain.ErrLinkExpired, http.StatusBadRequest},
		{domain.ErrPlatformMismatch, http.StatusBadRequest},
		{domain.ErrInvalidPlatform, http.StatusBadRequest},
		{domain.ErrAlreadyConnected, http.StatusConflict},
		{domain.ErrInsufficientBalance, http.StatusBadRequest},
		{domain.ErrUserNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, a.domainError(c, tt.err))
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

func TestQRFlow(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})
	token, _ := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodPost, "/api/social/generate-qr", token, LinkRequest{Platform: "tiktok"})
	require.Equal(t, http.StatusOK, rec.Code)
	var issued QRResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
	assert.True(t, strings.HasPrefix(issued.QRCode, "data:image/png;base64,"))

	rec = s.do(t, http.MethodGet, "/api/social/qr-status/"+issued.LinkID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pending")

	// Status polling never consumes the link.
	rec = s.do(t, http.MethodGet, "/api/social/qr-status/"+issued.LinkID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/social/verify-code", token, VerifyCodeRequest{
		Code: issued.LinkID, Platform: "tiktok",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/social/qr-status/"+issued.LinkID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "redeemed link reads as gone")
}

func TestWithdrawFlow(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})
	token, _ := s.register(t, "Ada", "ada@example.com")

	// Earn 200 points through two linkings.
	for _, platform := range []string{"whatsapp", "tiktok"} {
		rec := s.do(t, http.MethodPost, "/api/social/generate-code", token, LinkRequest{Platform: platform})
		require.Equal(t, http.StatusOK, rec.Code)
		var issued CodeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issued))
		rec = s.do(t, http.MethodPost, "/api/social/verify-code", token, VerifyCodeRequest{
			Code: issued.Code, Platform: platform,
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/api/user/withdraw", token, WithdrawRequest{
		Provider: "Easypaisa", Points: 200, Rupees: 20, Name: "Ada", Number: "0300-0000000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"points":0`)
	assert.Contains(t, rec.Body.String(), `"earnings":20`)

	rec = s.do(t, http.MethodPost, "/api/user/withdraw", token, WithdrawRequest{
		Provider: "Easypaisa", Points: 100, Rupees: 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "balance is spent")
}

func TestConnectedPlatforms(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})
	token, _ := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodGet, "/api/social/connected-platforms", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"whatsapp":false,"facebook":false,"tiktok":false}`, rec.Body.String())
}

func TestFacebookConnectUnconfigured(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})
	token, _ := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodGet, "/api/facebook/connect", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// fakeFacebook stands in for both the OAuth token endpoint and the Graph API.
func fakeFacebook(t *testing.T) (*httptest.Server, services.FacebookConfig) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fb-user-token","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"fb-1","name":"Ada","email":"ada@example.com"}`)
	})
	mux.HandleFunc("/me/accounts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"page-1","name":"Ada Page","category":"Blog","access_token":"page-token"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := services.FacebookConfig{
		AppID:       "app-id",
		AppSecret:   "app-secret",
		RedirectURL: "http://localhost/api/facebook/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  srv.URL + "/oauth/authorize",
			TokenURL: srv.URL + "/oauth/access_token",
		},
	}
	return srv, cfg
}

func TestFacebookFlow(t *testing.T) {
	_, cfg := fakeFacebook(t)
	s := newTestStack(t, cfg)
	token, _ := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodGet, "/api/facebook/connect", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var connect struct {
		AuthURL string `json:"authUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &connect))
	authURL, err := url.Parse(connect.AuthURL)
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)

	// The provider redirect is unauthenticated; identity rides on the state.
	rec = s.do(t, http.MethodGet, "/api/facebook/callback?code=auth-code&state="+state, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "FACEBOOK_CONNECTED")
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Contains(t, rec.Body.String(), `"id":"page-1"`)
	assert.Contains(t, rec.Body.String(), "window.opener.postMessage")

	rec = s.do(t, http.MethodGet, "/api/user/dashboard", token, nil)
	assert.Contains(t, rec.Body.String(), `"points":100`)

	rec = s.do(t, http.MethodGet, "/api/social/connected-platforms", token, nil)
	assert.Contains(t, rec.Body.String(), `"facebook":true`)

	rec = s.do(t, http.MethodGet, "/api/facebook/pages", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "page-1")
	assert.NotContains(t, rec.Body.String(), "page-token", "page tokens never leave the server")

	// A replayed redirect renders the failure page and credits nothing more.
	rec = s.do(t, http.MethodGet, "/api/facebook/callback?code=auth-code&state="+state, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	rec = s.do(t, http.MethodGet, "/api/user/dashboard", token, nil)
	assert.Contains(t, rec.Body.String(), `"points":100`)
}

func TestFacebookCallbackDenied(t *testing.T) {
	_, cfg := fakeFacebook(t)
	s := newTestStack(t, cfg)

	rec := s.do(t, http.MethodGet, "/api/facebook/callback?error=access_denied&error_description=User+denied", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, "callback always renders the message page")
	assert.Contains(t, rec.Body.String(), "FACEBOOK_CONNECTED")
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.Contains(t, rec.Body.String(), "User denied")
}

func TestFacebookCallbackForgedState(t *testing.T) {
	_, cfg := fakeFacebook(t)
	s := newTestStack(t, cfg)
	token, _ := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodGet, "/api/facebook/callback?code=auth-code&state=forged", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)

	rec = s.do(t, http.MethodGet, "/api/user/dashboard", token, nil)
	assert.Contains(t, rec.Body.String(), `"points":0`, "forged state mutates nothing")
}

func TestFacebookPostWithoutConnection(t *testing.T) {
	s := newTestStack(t, services.FacebookConfig{})
	token, _ := s.register(t, "Ada", "ada@example.com")

	rec := s.do(t, http.MethodPost, "/api/facebook/post", token, PostRequest{
		PageID: "page-1", Message: "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/facebook/post", token, PostRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
