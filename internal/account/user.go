// Package account keeps the demo user directory, session pointer and user
// profile behind repositories over the storage backend. The password scheme
// is intentionally a demo (base64, no hashing) and is not meant to be
// hardened.
package account

import (
	"encoding/base64"
	"errors"
)

var (
	// ErrDuplicateRegistration is returned when the email already exists.
	ErrDuplicateRegistration = errors.New("email already registered")
	// ErrInvalidCredentials is returned on unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled is returned when a deactivated user logs in.
	ErrAccountDisabled = errors.New("account is deactivated")
	// ErrUserNotFound is returned by admin operations on an unknown id.
	ErrUserNotFound = errors.New("user not found")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AuthUser is one registered account.
type AuthUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Password    string `json:"password"` // base64 encoded (demo only)
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
	CreatedAt   int64  `json:"createdAt"` // ms since epoch
	IsActive    bool   `json:"isActive"`
}

func encodePassword(password string) string {
	return base64.StdEncoding.EncodeToString([]byte(password))
}

func decodePassword(encoded string) string {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ""
	}
	return string(raw)
}
