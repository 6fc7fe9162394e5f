package domain

import (
	"context"
	"time"
)

// UserRepository is the narrow CRUD contract the linking and ledger flows
// consume. Mutating operations that touch points or connected accounts are
// conditional server-side updates, so concurrent requests for the same user
// never read-modify-write stale balances.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// ApplyConnectionBonus atomically adds platform to the user's connected
	// accounts and credits the connection bonus, but only if the platform is
	// not already connected. Returns ErrAlreadyConnected otherwise. The bonus
	// amount is a ledger rule, not a caller choice.
	ApplyConnectionBonus(ctx context.Context, id, platform string) (*User, error)

	// ApplyWithdrawal atomically debits points and credits earnings by
	// rupees, but only if the user holds at least that many points.
	// Returns ErrInsufficientBalance otherwise.
	ApplyWithdrawal(ctx context.Context, id string, points, rupees int64) (*User, error)

	// SetFacebookData replaces the stored Facebook connection wholesale.
	SetFacebookData(ctx context.Context, id string, data *FacebookData) error

	// RecordLogin updates the last-login timestamp.
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// LinkStore is the process-wide pending-link registry shared by the generic
// linking flow and the Facebook OAuth flow.
type LinkStore interface {
	// Create stores a pending link under its token for the given TTL.
	Create(ctx context.Context, link *PendingLink) error

	// Redeem atomically looks up and deletes the link for token. A token
	// that was already redeemed is reported as ErrLinkNotFound; an expired
	// one is deleted as a side effect and reported as ErrLinkExpired. If
	// expectedPlatform is non-empty and disagrees with the stored platform,
	// Redeem fails with ErrPlatformMismatch and the entry stays redeemable.
	Redeem(ctx context.Context, token, expectedPlatform string) (*PendingLink, error)

	// Peek returns the link without consuming it, for status polling.
	Peek(ctx context.Context, token string) (*PendingLink, error)

	Close() error
}

// Notifier delivers best-effort operator notifications. Implementations must
// never receive secrets in subject or body.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// QRRenderer turns a payload into a scannable image, returned as a data URL.
type QRRenderer interface {
	DataURL(payload []byte) (string, error)
}
