package domain

import "errors"

// Linking and registry errors.
var (
	// ErrLinkNotFound covers tokens that never existed, were already
	// redeemed, or were evicted after expiry. Callers must not be able to
	// distinguish these cases.
	ErrLinkNotFound     = errors.New("link code not found")
	ErrLinkExpired      = errors.New("link code expired")
	ErrPlatformMismatch = errors.New("platform does not match link code")
	ErrInvalidPlatform  = errors.New("invalid platform")
	ErrAlreadyConnected = errors.New("platform already connected")
)

// Ledger errors.
var (
	ErrInvalidAmount       = errors.New("points must be a positive multiple of 100")
	ErrConversionMismatch  = errors.New("rupee amount does not match points conversion")
	ErrInsufficientBalance = errors.New("insufficient points balance")
)

// Facebook OAuth flow errors.
var (
	ErrNotConfigured = errors.New("facebook app credentials not configured")
	ErrInvalidState  = errors.New("invalid or expired oauth state")
	ErrPageNotFound  = errors.New("facebook page not found")
)

// Auth and storage errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
