// Package filestore is the file-backed storage implementation: one JSON
// array of users under a data directory. It exists for deployments without
// MongoDB and keeps the file human-readable. A single process owns the file;
// the repository mutex serializes every read-modify-write, which makes the
// conditional updates atomic the same way the Mongo filters do.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rewardly/rewardly/domain"
	"github.com/rewardly/rewardly/internal/ledger"
)

const usersFile = "users.json"

// UserRepository implements domain.UserRepository on a JSON file.
type UserRepository struct {
	mu   sync.Mutex
	path string
}

// NewUserRepository creates the repository, ensuring the data directory and
// file exist.
func NewUserRepository(dataDir string) (*UserRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	path := filepath.Join(dataDir, usersFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte("[]"), 0o600); err != nil {
			return nil, fmt.Errorf("failed to create users file: %w", err)
		}
	}
	return &UserRepository{path: path}, nil
}

func (r *UserRepository) load() ([]*userRecord, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}
	if len(raw) == 0 {
		return []*userRecord{}, nil
	}
	var records []*userRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("corrupt users file: %w", err)
	}
	return records, nil
}

func (r *UserRepository) save(records []*userRecord) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}
	return os.Rename(tmp, r.path)
}

// Create implements domain.UserRepository.
func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}
	for _, rec := range records {
		if strings.EqualFold(rec.Email, user.Email) {
			return domain.ErrEmailTaken
		}
	}
	if user.ConnectedAccounts == nil {
		user.ConnectedAccounts = []string{}
	}
	return r.save(append(records, toRecord(user)))
}

// GetByID implements domain.UserRepository.
func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec.toDomain(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// GetByEmail implements domain.UserRepository.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if strings.EqualFold(rec.Email, email) {
			return rec.toDomain(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// ApplyConnectionBonus implements domain.UserRepository. The crediting rule
// itself lives in the ledger; this only supplies atomicity.
func (r *UserRepository) ApplyConnectionBonus(_ context.Context, id, platform string) (*domain.User, error) {
	var result *domain.User
	err := r.mutate(id, func(u *domain.User) error {
		if err := ledger.AwardConnectionBonus(u, platform); err != nil {
			return err
		}
		result = u
		return nil
	})
	return result, err
}

// ApplyWithdrawal implements domain.UserRepository. Validation and the debit
// both run inside the lock via the ledger, so the balance cannot change
// between check and mutation.
func (r *UserRepository) ApplyWithdrawal(_ context.Context, id string, points, rupees int64) (*domain.User, error) {
	var result *domain.User
	err := r.mutate(id, func(u *domain.User) error {
		if err := ledger.Withdraw(u, points, rupees); err != nil {
			return err
		}
		result = u
		return nil
	})
	return result, err
}

// SetFacebookData implements domain.UserRepository.
func (r *UserRepository) SetFacebookData(_ context.Context, id string, data *domain.FacebookData) error {
	return r.mutate(id, func(u *domain.User) error {
		u.FacebookData = data
		return nil
	})
}

// RecordLogin implements domain.UserRepository.
func (r *UserRepository) RecordLogin(_ context.Context, id string, at time.Time) error {
	return r.mutate(id, func(u *domain.User) error {
		u.LastLoginAt = &at
		return nil
	})
}

// mutate applies fn to the user with the given ID under the lock and
// persists the whole file if fn succeeds.
func (r *UserRepository) mutate(id string, fn func(*domain.User) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}
	for i, rec := range records {
		if rec.ID == id {
			user := rec.toDomain()
			if err := fn(user); err != nil {
				return err
			}
			user.UpdatedAt = time.Now().UTC()
			records[i] = toRecord(user)
			return r.save(records)
		}
	}
	return domain.ErrUserNotFound
}

var _ domain.UserRepository = (*UserRepository)(nil)
