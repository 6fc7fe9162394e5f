package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rewardly/rewardly/domain"
	"github.com/rewardly/rewardly/internal/ledger"
)

// Withdrawal providers accepted by the payout flow.
var withdrawProviders = map[string]bool{
	"Easypaisa": true,
	"JazzCash":  true,
}

// Dashboard is the user-facing summary. RupeesFromPoints is always derived
// from the live points balance, never read from storage.
type Dashboard struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	ConnectedAccounts []string `json:"connectedAccounts"`
	Points            int64    `json:"points"`
	Earnings          int64    `json:"earnings"`
	RupeesFromPoints  int64    `json:"rupeesFromPoints"`
}

// WithdrawRequest carries a payout request. Name and number identify the
// mobile-wallet account and are forwarded to the operator, never stored.
type WithdrawRequest struct {
	Provider string
	Points   int64
	Rupees   int64
	Name     string
	Number   string
}

// UserService serves the dashboard view and the withdrawal flow.
type UserService struct {
	users    domain.UserRepository
	notifier domain.Notifier
}

// NewUserService creates a new UserService.
func NewUserService(users domain.UserRepository, notifier domain.Notifier) *UserService {
	return &UserService{users: users, notifier: notifier}
}

// Dashboard returns the caller's balances and connections.
func (s *UserService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	connected := user.ConnectedAccounts
	if connected == nil {
		connected = []string{}
	}
	return &Dashboard{
		ID:                user.ID,
		Name:              user.Name,
		Email:             user.Email,
		ConnectedAccounts: connected,
		Points:            user.Points,
		Earnings:          user.Earnings,
		RupeesFromPoints:  ledger.ConvertPoints(user.Points),
	}, nil
}

// Withdraw validates the request against the ledger rules, applies the debit
// through the storage layer's conditional update, and notifies the operator.
// All checks run before any mutation.
func (s *UserService) Withdraw(ctx context.Context, userID string, req WithdrawRequest) (*Dashboard, error) {
	if !withdrawProviders[req.Provider] {
		return nil, fmt.Errorf("%w: unsupported payout provider", domain.ErrInvalidAmount)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := ledger.ValidateWithdrawal(user, req.Points, req.Rupees); err != nil {
		return nil, err
	}

	// The conditional update re-checks the balance server-side, so a
	// concurrent withdrawal cannot overdraw.
	updated, err := s.users.ApplyWithdrawal(ctx, userID, req.Points, req.Rupees)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Int64("points", req.Points).
		Int64("rupees", req.Rupees).
		Str("provider", req.Provider).
		Msg("withdrawal requested")

	body := fmt.Sprintf("User %s\nProvider: %s\nName: %s\nNumber: %s\nPoints: %d\nRupees: %d",
		updated.Email, req.Provider, req.Name, req.Number, req.Points, req.Rupees)
	if err := s.notifier.Notify(ctx, "Withdrawal request", body); err != nil {
		log.Warn().Err(err).Msg("failed to send withdrawal notification")
	}

	return &Dashboard{
		ID:                updated.ID,
		Name:              updated.Name,
		Email:             updated.Email,
		ConnectedAccounts: updated.ConnectedAccounts,
		Points:            updated.Points,
		Earnings:          updated.Earnings,
		RupeesFromPoints:  ledger.ConvertPoints(updated.Points),
	}, nil
}
