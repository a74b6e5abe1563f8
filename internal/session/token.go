package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopadmin/internal/model"
)

var (
	errTokenIncomplete = errors.New("token is missing user id, email or a known role")
	errTokenExpired    = errors.New("token has expired")
)

// tokenClaims is the payload the backend signs into its session tokens.
// The signature is not checked here; the backend does that on every
// request.
type tokenClaims struct {
	UserID         string  `json:"userId"`
	Email          string  `json:"email"`
	Role           string  `json:"role"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	ProfilePicture *string `json:"profilePicture"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser()

func parseClaims(raw string) (*tokenClaims, error) {
	var claims tokenClaims
	if _, _, err := parser.ParseUnverified(strings.TrimSpace(raw), &claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &claims, nil
}

// userFromToken builds the account a federated sign-in token describes.
func userFromToken(raw string, now time.Time) (*model.User, error) {
	claims, err := parseClaims(raw)
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
		return nil, errTokenExpired
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	role := model.UserRole(claims.Role)
	if id == "" || strings.TrimSpace(claims.Email) == "" || !role.Valid() {
		return nil, errTokenIncomplete
	}

	created := now
	if claims.IssuedAt != nil {
		created = claims.IssuedAt.Time
	}
	return &model.User{
		ID:             id,
		Email:          claims.Email,
		FirstName:      claims.FirstName,
		LastName:       claims.LastName,
		Role:           role,
		ProfilePicture: claims.ProfilePicture,
		IsActive:       true,
		CreatedAt:      created,
		UpdatedAt:      now,
	}, nil
}

// tokenExpired reports whether raw is a JWT whose exp lies in the past.
// Opaque tokens never expire locally.
func tokenExpired(raw string, now time.Time) bool {
	if strings.Count(raw, ".") != 2 {
		return false
	}
	claims, err := parseClaims(raw)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now)
}
