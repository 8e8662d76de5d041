// Package users is the directory of resource owners that can log in and approve authorization
// requests.
package users

import (
	"fmt"
	"time"
	"unicode"

	apperrors "github.com/jrsteele09/social-auth/internal/errors"
	"github.com/jrsteele09/social-auth/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = apperrors.ErrUserNotFound

// Roles known to the social-media backend. RoleUser is the base role checked by the scope
// escalation guard.
const (
	RoleUser      = "ROLE_USER"
	RoleModerator = "ROLE_MODERATOR"
	RoleAdmin     = "ROLE_ADMIN"
)

type User struct {
	ID           string    `json:"id,omitempty"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never serialize
	Roles        []string  `json:"roles,omitempty"`
	DateJoined   time.Time `json:"date_joined,omitempty"`
	LastLogin    time.Time `json:"last_login,omitempty"`
	Blocked      bool      `json:"blocked,omitempty"` // Blocked users cannot log in
}

// IdentitySubject and IdentityRoles let a user be stored as the principal of a grant. Only
// these two values are persisted.
func (u *User) IdentitySubject() string { return u.Username }
func (u *User) IdentityRoles() []string { return u.Roles }

func (u *User) HasRole(role string) bool {
	return utils.Contains(u.Roles, role)
}

// SetPassword validates and hashes password.
func (u *User) SetPassword(password string) error {
	if err := ValidatePasswordStrength(password); err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
