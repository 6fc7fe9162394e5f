// Package api is the HTTP boundary: echo handlers over the service layer.
// Handlers translate between JSON shapes and service calls; every business
// rule lives below this package.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/rewardly/rewardly/domain"
	"github.com/rewardly/rewardly/middleware"
	"github.com/rewardly/rewardly/services"
)

// API holds the service dependencies behind the HTTP routes.
type API struct {
	auth     *services.AuthService
	users    *services.UserService
	linking  *services.LinkingService
	facebook *services.FacebookService
	tokens   *services.TokenService
}

// New initializes the API.
func New(
	auth *services.AuthService,
	users *services.UserService,
	linking *services.LinkingService,
	facebook *services.FacebookService,
	tokens *services.TokenService,
) *API {
	return &API{
		auth:     auth,
		users:    users,
		linking:  linking,
		facebook: facebook,
		tokens:   tokens,
	}
}

// RegisterRoutes registers every route under /api.
func (a *API) RegisterRoutes(e *echo.Echo) {
	authed := middleware.RequireUser(a.tokens)

	auth := e.Group("/api/auth")
	auth.POST("/register", a.RegisterHandler)
	auth.POST("/login", a.LoginHandler)

	user := e.Group("/api/user", authed)
	user.GET("/dashboard", a.DashboardHandler)
	user.POST("/withdraw", a.WithdrawHandler)

	social := e.Group("/api/social", authed)
	social.POST("/generate-code", a.GenerateCodeHandler)
	social.POST("/generate-qr", a.GenerateQRHandler)
	social.POST("/verify-code", a.VerifyCodeHandler)
	social.GET("/qr-status/:linkId", a.QRStatusHandler)
	social.GET("/connected-platforms", a.ConnectedPlatformsHandler)

	fb := e.Group("/api/facebook")
	fb.GET("/connect", a.FacebookConnectHandler, authed)
	// The provider redirect carries no bearer token; identity comes from the
	// redeemed state parameter.
	fb.GET("/callback", a.FacebookCallbackHandler)
	fb.GET("/pages", a.FacebookPagesHandler, authed)
	fb.POST("/post", a.FacebookPostHandler, authed)
}

// RegisterHandler handles POST /api/auth/register.
func (a *API) RegisterHandler(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	user, token, err := a.auth.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		case errors.Is(err, domain.ErrInvalidCredentials):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		log.Error().Err(err).Msg("registration failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	return c.JSON(http.StatusCreated, AuthResponse{Token: token, User: toUserResponse(user)})
}

// LoginHandler handles POST /api/auth/login.
func (a *API) LoginHandler(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	user, token, err := a.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
		}
		log.Error().Err(err).Msg("login failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	return c.JSON(http.StatusOK, AuthResponse{Token: token, User: toUserResponse(user)})
}

// DashboardHandler handles GET /api/user/dashboard.
func (a *API) DashboardHandler(c echo.Context) error {
	dashboard, err := a.users.Dashboard(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return a.domainError(c, err)
	}
	return c.JSON(http.StatusOK, dashboard)
}

// WithdrawHandler handles POST /api/user/withdraw.
func (a *API) WithdrawHandler(c echo.Context) error {
	var req WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	dashboard, err := a.users.Withdraw(c.Request().Context(), middleware.UserID(c), services.WithdrawRequest{
		Provider: req.Provider,
		Points:   req.Points,
		Rupees:   req.Rupees,
		Name:     req.Name,
		Number:   req.Number,
	})
	if err != nil {
		return a.domainError(c, err)
	}
	return c.JSON(http.StatusOK, dashboard)
}

// GenerateCodeHandler handles POST /api/social/generate-code.
func (a *API) GenerateCodeHandler(c echo.Context) error {
	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	issue, err := a.linking.GenerateCode(c.Request().Context(), middleware.UserID(c), req.Platform)
	if err != nil {
		return a.domainError(c, err)
	}
	return c.JSON(http.StatusOK, CodeResponse{Code: issue.Code, ExpiresIn: int64(issue.ExpiresIn.Seconds())})
}

// GenerateQRHandler handles POST /api/social/generate-qr.
func (a *API) GenerateQRHandler(c echo.Context) error {
	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	issue, err := a.linking.GenerateQR(c.Request().Context(), middleware.UserID(c), req.Platform)
	if err != nil {
		return a.domainError(c, err)
	}
	return c.JSON(http.StatusOK, QRResponse{
		LinkID:    issue.LinkID,
		QRCode:    issue.QRCode,
		ExpiresIn: int64(issue.ExpiresIn.Seconds()),
	})
}

// VerifyCodeHandler handles POST /api/social/verify-code. The bonus is
// credited to the code's owner, who is not necessarily the caller.
func (a *API) VerifyCodeHandler(c echo.Context) error {
	var req VerifyCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	result, err := a.linking.VerifyCode(c.Request().Context(), req.Code, req.Platform)
	if err != nil {
		return a.domainError(c, err)
	}
	return c.JSON(http.StatusOK, LinkResultResponse{
		Platform:          result.Platform,
		ConnectedAccounts: result.ConnectedAccounts,
		Points:            result.Points,
		Earnings:          result.Earnings,
	})
}

// QRStatusHandler handles GET /api/social/qr-status/:linkId. Polled by the
// initiating page; never consumes the link.
func (a *API) QRStatusHandler(c echo.Context) error {
	if err := a.linking.QRStatus(c.Request().Context(), c.Param("linkId")); err != nil {
		return a.domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "pending"})
}

// ConnectedPlatformsHandler handles GET /api/social/connected-platforms.
func (a *API) ConnectedPlatformsHandler(c echo.Context) error {
	platforms, err := a.linking.Platforms(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return a.domainError(c, err)
	}
	return c.JSON(http.StatusOK, platforms)
}

// FacebookConnectHandler handles GET /api/facebook/connect.
func (a *API) FacebookConnectHandler(c echo.Context) error {
	authURL, err := a.facebook.Initiate(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "facebook connection is not configured"})
		}
		return a.domainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"authUrl": authURL})
}

// FacebookCallbackHandler handles GET /api/facebook/callback. It always
// answers with the message-and-close page: the popup window is the only
// channel back to the page that started the flow.
func (a *API) FacebookCallbackHandler(c echo.Context) error {
	result := a.facebook.HandleCallback(c.Request().Context(), c.QueryParams())
	return c.HTML(http.StatusOK, callbackPage(result))
}

// FacebookPagesHandler handles GET /api/facebook/pages.
func (a *API) FacebookPagesHandler(c echo.Context) error {
	pages, err := a.facebook.ListPages(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return a.domainError(c, err)
	}

	out := make([]PageResponse, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageResponse{ID: p.ID, Name: p.Name, Category: p.Category})
	}
	return c.JSON(http.StatusOK, echo.Map{"pages": out})
}

// FacebookPostHandler handles POST /api/facebook/post.
func (a *API) FacebookPostHandler(c echo.Context) error {
	var req PostRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.PageID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pageId and message are required"})
	}

	postID, err := a.facebook.PostToPage(c.Request().Context(), middleware.UserID(c), req.PageID, req.Message, req.Link)
	if err != nil {
		if errors.Is(err, domain.ErrPageNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "page not connected"})
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error().Err(err).Str("page_id", req.PageID).Msg("facebook publish failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to publish post"})
	}
	return c.JSON(http.StatusOK, echo.Map{"postId": postID})
}

// domainError maps the domain error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a 500 and gets logged here; handlers with
// endpoint-specific mappings handle those before calling this.
func (a *API) domainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrLinkNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "code not found or already used"})
	case errors.Is(err, domain.ErrLinkExpired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code has expired"})
	case errors.Is(err, domain.ErrPlatformMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code was issued for a different platform"})
	case errors.Is(err, domain.ErrInvalidPlatform):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown platform"})
	case errors.Is(err, domain.ErrAlreadyConnected):
		return c.JSON(http.StatusConflict, echo.Map{"error": "platform already connected"})
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrConversionMismatch),
		errors.Is(err, domain.ErrInsufficientBalance):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func toUserResponse(u *domain.User) UserResponse {
	connected := u.ConnectedAccounts
	if connected == nil {
		connected = []string{}
	}
	return UserResponse{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		IsVerified:        u.IsVerified,
		ConnectedAccounts: connected,
		Points:            u.Points,
		Earnings:          u.Earnings,
	}
}
