package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crop-up-dev/hub/pkg/storage"

	"github.com/google/uuid"
)

const (
	usersKey   = "hub-users"
	sessionKey = "hub-session"
)

// Service is the user directory plus the single-session pointer. All state
// lives in the storage backend under fixed keys, last-write-wins.
type Service struct {
	store storage.Store
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

func (s *Service) users(ctx context.Context) ([]AuthUser, error) {
	data, err := s.store.Load(ctx, usersKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	var users []AuthUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (s *Service) saveUsers(ctx context.Context, users []AuthUser) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	if err := s.store.Save(ctx, usersKey, data); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// SeedAdmin makes sure the built-in admin account exists, replacing any
// stale copy of it.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	users, err := s.users(ctx)
	if err != nil {
		return err
	}

	kept := users[:0]
	for _, u := range users {
		if u.ID != "admin-001" && !strings.EqualFold(u.Email, email) {
			kept = append(kept, u)
		}
	}

	kept = append(kept, AuthUser{
		ID:          "admin-001",
		Email:       strings.ToLower(email),
		Password:    encodePassword(password),
		DisplayName: "Admin",
		Role:        RoleAdmin,
		CreatedAt:   time.Now().UnixMilli(),
		IsActive:    true,
	})

	return s.saveUsers(ctx, kept)
}

// Register creates a new account. The email is the identifier; registering
// one that already exists fails with ErrDuplicateRegistration.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (AuthUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	users, err := s.users(ctx)
	if err != nil {
		return AuthUser{}, err
	}

	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return AuthUser{}, ErrDuplicateRegistration
		}
	}

	user := AuthUser{
		ID:          uuid.NewString(),
		Email:       email,
		Password:    encodePassword(password),
		DisplayName: strings.TrimSpace(displayName),
		Role:        RoleUser,
		CreatedAt:   time.Now().UnixMilli(),
		IsActive:    true,
	}

	users = append(users, user)
	if err := s.saveUsers(ctx, users); err != nil {
		return AuthUser{}, err
	}
	return user, nil
}

// Login checks credentials and stores the session pointer on success.
func (s *Service) Login(ctx context.Context, email, password string) (AuthUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	users, err := s.users(ctx)
	if err != nil {
		return AuthUser{}, err
	}

	for _, u := range users {
		if u.Email != email {
			continue
		}
		if decodePassword(u.Password) != password {
			return AuthUser{}, ErrInvalidCredentials
		}
		if !u.IsActive {
			return AuthUser{}, ErrAccountDisabled
		}
		if err := s.store.Save(ctx, sessionKey, []byte(u.ID)); err != nil {
			return AuthUser{}, fmt.Errorf("save session: %w", err)
		}
		return u, nil
	}

	return AuthUser{}, ErrInvalidCredentials
}

// Logout clears the session pointer.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.Delete(ctx, sessionKey)
}

// CurrentUser resolves the session pointer to a user, or ErrUserNotFound
// when no session is active.
func (s *Service) CurrentUser(ctx context.Context) (AuthUser, error) {
	id, err := s.store.Load(ctx, sessionKey)
	if errors.Is(err, storage.ErrNotFound) {
		return AuthUser{}, ErrUserNotFound
	}
	if err != nil {
		return AuthUser{}, fmt.Errorf("load session: %w", err)
	}

	users, err := s.users(ctx)
	if err != nil {
		return AuthUser{}, err
	}

	for _, u := range users {
		if u.ID == string(id) {
			return u, nil
		}
	}
	return AuthUser{}, ErrUserNotFound
}

// AllUsers lists every registered account (admin view).
func (s *Service) AllUsers(ctx context.Context) ([]AuthUser, error) {
	return s.users(ctx)
}

// UpdateRole changes a user's role.
func (s *Service) UpdateRole(ctx context.Context, userID string, role Role) error {
	return s.updateUser(ctx, userID, func(u *AuthUser) {
		u.Role = role
	})
}

// ToggleActive flips a user's active flag.
func (s *Service) ToggleActive(ctx context.Context, userID string) error {
	return s.updateUser(ctx, userID, func(u *AuthUser) {
		u.IsActive = !u.IsActive
	})
}

// DeleteUser removes an account.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	users, err := s.users(ctx)
	if err != nil {
		return err
	}

	kept := users[:0]
	found := false
	for _, u := range users {
		if u.ID == userID {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return ErrUserNotFound
	}

	return s.saveUsers(ctx, kept)
}

func (s *Service) updateUser(ctx context.Context, userID string, apply func(*AuthUser)) error {
	users, err := s.users(ctx)
	if err != nil {
		return err
	}

	for i := range users {
		if users[i].ID == userID {
			apply(&users[i])
			return s.saveUsers(ctx, users)
		}
	}
	return ErrUserNotFound
}
