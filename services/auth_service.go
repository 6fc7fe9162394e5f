package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/rewardly/rewardly/domain"
)

// AuthService handles registration and login. The rest of the system only
// ever sees the verified identity it produces.
type AuthService struct {
	users    domain.UserRepository
	hasher   PasswordHasher
	tokens   *TokenService
	notifier domain.Notifier
}

// NewAuthService creates a new AuthService.
func NewAuthService(users domain.UserRepository, hasher PasswordHasher, tokens *TokenService, notifier domain.Notifier) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, notifier: notifier}
}

// Register creates a user and returns it with a fresh bearer token.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || len(password) < 6 {
		return nil, "", fmt.Errorf("%w: name, email and a password of at least 6 characters are required", domain.ErrInvalidCredentials)
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, "", domain.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:                uuid.NewString(),
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		VerificationToken: uuid.NewString(),
		ConnectedAccounts: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, "", domain.ErrEmailTaken
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	// Notification carries metadata only, never credentials or tokens.
	if err := s.notifier.Notify(ctx, "New registration", fmt.Sprintf("User %s registered", user.Email)); err != nil {
		log.Warn().Err(err).Msg("failed to send registration notification")
	}

	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	if err := s.users.RecordLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login time")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
