package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// Valid reports whether r is one of the roles the backend issues.
func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleUser
}

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FirstName      *string   `json:"firstName"`
	LastName       *string   `json:"lastName"`
	Role           UserRole  `json:"role"`
	ProfilePicture *string   `json:"profilePicture,omitempty"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}

// DisplayName returns "First Last" when known, the email otherwise.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := ""
	if u.FirstName != nil {
		name = *u.FirstName
	}
	if u.LastName != nil && *u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += *u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
}

// UserPatch is the body of PUT /users/:id. Nil fields are left unchanged.
type UserPatch struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// MinPasswordLength is enforced on registration before any request.
const MinPasswordLength = 6

// RegisterForm is what a registration screen collects.
type RegisterForm struct {
	RegisterRequest
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate checks the form locally. The backend applies its own rules
// on top.
func (f RegisterForm) Validate() error {
	if strings.TrimSpace(f.Email) == "" {
		return errors.New("Email is required")
	}
	if f.Password != f.ConfirmPassword {
		return errors.New("Passwords do not match")
	}
	if len(f.Password) < MinPasswordLength {
		return fmt.Errorf("Password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
