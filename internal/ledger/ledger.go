// Package ledger holds the pure points/earnings arithmetic shared by every
// linking flow. Balance invariants are enforced here; persistence is the
// caller's concern.
package ledger

import "github.com/rewardly/rewardly/domain"

const (
	// ConnectionBonus is the points credit for linking a social account.
	ConnectionBonus int64 = 100

	// WithdrawUnit is the minimum withdrawable block of points.
	WithdrawUnit int64 = 100

	// RupeesPerUnit is the rupee value of one WithdrawUnit of points.
	RupeesPerUnit int64 = 10
)

// ConvertPoints returns the rupee value of a points balance. The conversion
// floors to whole units, so it is linear over multiples of WithdrawUnit.
func ConvertPoints(points int64) int64 {
	if points < 0 {
		return 0
	}
	return points / WithdrawUnit * RupeesPerUnit
}

// AwardConnectionBonus adds platform to the user's connected accounts and
// credits the connection bonus. It never credits twice: linking an already
// connected platform fails with ErrAlreadyConnected and leaves the user
// untouched.
func AwardConnectionBonus(user *domain.User, platform string) error {
	if !domain.ValidPlatform(platform) {
		return domain.ErrInvalidPlatform
	}
	if user.HasConnected(platform) {
		return domain.ErrAlreadyConnected
	}
	user.ConnectedAccounts = append(user.ConnectedAccounts, platform)
	user.Points += ConnectionBonus
	return nil
}

// ValidateWithdrawal checks a withdrawal request without mutating anything.
// All checks pass before any caller-side debit happens.
func ValidateWithdrawal(user *domain.User, points, expectedRupees int64) error {
	if points <= 0 || points%WithdrawUnit != 0 {
		return domain.ErrInvalidAmount
	}
	if expectedRupees != ConvertPoints(points) {
		return domain.ErrConversionMismatch
	}
	if points > user.Points {
		return domain.ErrInsufficientBalance
	}
	return nil
}

// Withdraw debits points and credits earnings by the converted rupee amount.
// It is all-or-nothing: any failed check leaves the user untouched.
func Withdraw(user *domain.User, points, expectedRupees int64) error {
	if err := ValidateWithdrawal(user, points, expectedRupees); err != nil {
		return err
	}
	user.Points -= points
	user.Earnings += expectedRupees
	return nil
}
