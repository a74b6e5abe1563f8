// Package credstore persists the bearer token and the cached user
// profile of the signed-in account. Both values are always written and
// removed together.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopadmin/internal/model"
)

// Storage keys of the two persisted values.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

var ErrIncomplete = errors.New("credentials require both a token and a user")

type Credentials struct {
	Token string
	User  model.User
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.Token) == "" || c.User.ID == "" {
		return ErrIncomplete
	}
	return nil
}

// Store is a durable home for one set of credentials. Put and Clear are
// atomic: after either returns, a reader sees both values or neither.
type Store interface {
	Put(c Credentials) error
	// Get returns nil, nil when nothing is stored.
	Get() (*Credentials, error)
	// Clear removes both values, even if only one is present.
	Clear() error
	// Token returns the stored token or "" and never fails.
	Token() string
}

// Watcher reports changes to the stored credentials made by another
// process sharing the same store.
type Watcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// encodeEntries turns credentials into the two persisted key/value pairs.
func encodeEntries(c Credentials) (map[string]string, error) {
	user, err := json.Marshal(c.User)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	return map[string]string{
		KeyToken: c.Token,
		KeyUser:  string(user),
	}, nil
}

// decodeEntries is the inverse of encodeEntries. A missing or unreadable
// half yields nil: a token without a user is treated as no session.
func decodeEntries(entries map[string]string) (*Credentials, error) {
	token := entries[KeyToken]
	raw := entries[KeyUser]
	if strings.TrimSpace(token) == "" || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("failed to decode stored user: %w", err)
	}
	if user.ID == "" {
		return nil, nil
	}
	return &Credentials{Token: token, User: user}, nil
}
