// Package session owns the signed-in state of the process: who is
// signed in, whether a sign-in is in flight, and the last failure.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/credstore"
	"github.com/shopadmin/internal/model"
)

// Redirect targets emitted through the Navigator.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

const (
	loginFailed    = "Login failed. Please try again."
	registerFailed = "Registration failed. Please try again."
	profileFailed  = "Failed to update profile"
)

var (
	ErrAuthInProgress   = errors.New("a sign-in is already in progress")
	ErrNotAuthenticated = errors.New("not signed in")
)

type State int

const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Snapshot is a point-in-time copy of the session.
type Snapshot struct {
	State     State       `json:"state"`
	User      *model.User `json:"user"`
	IsLoading bool        `json:"isLoading"`
	Error     string      `json:"error,omitempty"`
}

func (s Snapshot) IsAuthenticated() bool { return s.User != nil }

func (s Snapshot) IsAdmin() bool { return s.User.IsAdmin() }

// Authenticator is the backend side of sign-in.
type Authenticator interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error)
	Me(ctx context.Context) (*model.User, error)
}

type ProfileUpdater interface {
	Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
}

// Navigator receives redirect targets, e.g. /login after a forced
// sign-out.
type Navigator func(target string)

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

func WithNavigator(nav Navigator) Option {
	return func(c *Controller) { c.navigate = nav }
}

func WithProfileUpdater(users ProfileUpdater) Option {
	return func(c *Controller) { c.users = users }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller is created once per process and shared by reference.
type Controller struct {
	store    credstore.Store
	auth     Authenticator
	users    ProfileUpdater
	navigate Navigator
	logger   *slog.Logger
	now      func() time.Time

	mu             sync.Mutex
	user           *model.User
	authenticating bool
	errMsg         string
	subscribers    map[int]func(Snapshot)
	nextSub        int
}

// New builds the controller and hydrates it from store.
func New(store credstore.Store, auth Authenticator, opts ...Option) *Controller {
	c := &Controller{
		store:       store,
		auth:        auth,
		subscribers: make(map[int]func(Snapshot)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.navigate == nil {
		c.navigate = func(string) {}
	}
	c.Hydrate()
	return c
}

// Hydrate loads the session from the credential store without any
// network call. A stored JWT that has already expired is discarded.
func (c *Controller) Hydrate() {
	creds, err := c.store.Get()
	if err != nil {
		c.logger.Warn("failed to read stored credentials", "error", err)
		creds = nil
	}
	if creds != nil && tokenExpired(creds.Token, c.now()) {
		c.logger.Info("discarding expired stored token", "user_id", creds.User.ID)
		if err := c.store.Clear(); err != nil {
			c.logger.Error("failed to clear expired credentials", "error", err)
		}
		creds = nil
	}

	c.mu.Lock()
	if creds == nil {
		c.user = nil
	} else {
		u := creds.User
		c.user = &u
	}
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{IsLoading: c.authenticating, Error: c.errMsg}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	switch {
	case c.authenticating:
		s.State = StateAuthenticating
	case c.user != nil:
		s.State = StateAuthenticated
	default:
		s.State = StateAnonymous
	}
	return s
}

// Subscribe calls fn with every new snapshot until the returned cancel
// func is called. fn runs on the goroutine that changed the session.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) publish() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller) Login(ctx context.Context, req model.LoginRequest) (*model.User, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, c.reject(apiclient.Validation("Email and password are required"))
	}
	return c.authenticate(ctx, loginFailed, func(ctx context.Context) (*model.AuthResponse, error) {
		return c.auth.Login(ctx, req)
	})
}

func (c *Controller) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, c.reject(apiclient.Validation("Email and password are required"))
	}
	return c.authenticate(ctx, registerFailed, func(ctx context.Context) (*model.AuthResponse, error) {
		return c.auth.Register(ctx, req)
	})
}

// reject records a failure that never reached the network.
func (c *Controller) reject(err error) error {
	c.mu.Lock()
	if c.authenticating {
		c.mu.Unlock()
		return ErrAuthInProgress
	}
	c.errMsg = apiclient.Message(err, "")
	c.mu.Unlock()
	c.publish()
	return err
}

func (c *Controller) authenticate(ctx context.Context, fallback string, call func(context.Context) (*model.AuthResponse, error)) (*model.User, error) {
	c.mu.Lock()
	if c.authenticating {
		c.mu.Unlock()
		return nil, ErrAuthInProgress
	}
	c.authenticating = true
	c.errMsg = ""
	c.mu.Unlock()
	c.publish()

	resp, err := call(ctx)
	if err == nil {
		if perr := c.store.Put(credstore.Credentials{Token: resp.Token, User: *resp.User}); perr != nil {
			err = fmt.Errorf("failed to persist credentials: %w", perr)
		}
	}

	c.mu.Lock()
	c.authenticating = false
	var user *model.User
	if err != nil {
		c.errMsg = apiclient.Message(err, fallback)
	} else {
		u := *resp.User
		c.user = &u
		user = &u
	}
	c.mu.Unlock()
	c.publish()

	if err != nil {
		c.logger.Info("sign-in failed", "kind", apiclient.KindOf(err).String(), "error", err)
		return nil, err
	}
	c.logger.Info("signed in", "user_id", user.ID, "role", string(user.Role))
	cp := *user
	return &cp, nil
}

// Logout is synchronous and cannot fail from the caller's point of view.
func (c *Controller) Logout() {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("failed to clear credentials on logout", "error", err)
	}
	c.mu.Lock()
	c.user = nil
	c.errMsg = ""
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) ClearError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
	c.publish()
}

// HandleUnauthorized is registered as the API client's 401 hook. The
// store has already been cleared when it runs.
func (c *Controller) HandleUnauthorized() {
	c.mu.Lock()
	c.user = nil
	c.mu.Unlock()
	c.logger.Info("session ended by the server")
	c.publish()
	c.navigate(LoginPath)
}

// AcceptToken completes a federated sign-in from the token the backend
// handed to the callback. A token that cannot be read ends any session
// and redirects to the login page.
func (c *Controller) AcceptToken(token string) (*model.User, error) {
	user, err := userFromToken(token, c.now())
	if err == nil {
		if perr := c.store.Put(credstore.Credentials{Token: strings.TrimSpace(token), User: *user}); perr != nil {
			c.mu.Lock()
			c.errMsg = apiclient.Message(perr, loginFailed)
			c.mu.Unlock()
			c.publish()
			return nil, fmt.Errorf("failed to persist credentials: %w", perr)
		}
		c.mu.Lock()
		c.user = user
		c.errMsg = ""
		c.mu.Unlock()
		c.publish()
		cp := *user
		return &cp, nil
	}

	malformed := apiclient.MalformedCredential(err)
	if cerr := c.store.Clear(); cerr != nil {
		c.logger.Error("failed to clear credentials after malformed token", "error", cerr)
	}
	c.mu.Lock()
	c.user = nil
	c.errMsg = malformed.UserMessage()
	c.mu.Unlock()
	c.logger.Warn("rejected sign-in token", "error", err)
	c.publish()
	c.navigate(LoginPath)
	return nil, malformed
}

// HandleCallback processes the query of the federated sign-in callback
// and returns where the caller should go next.
func (c *Controller) HandleCallback(token, oauthErr string) (string, error) {
	switch {
	case oauthErr != "":
		c.logger.Warn("federated sign-in failed", "error", oauthErr)
		return LoginPath + "?error=oauth_failed", fmt.Errorf("federated sign-in failed: %s", oauthErr)
	case strings.TrimSpace(token) == "":
		return LoginPath + "?error=no_token", apiclient.MalformedCredential(errors.New("callback carried no token"))
	}
	if _, err := c.AcceptToken(token); err != nil {
		return LoginPath + "?error=invalid_token", err
	}
	return DashboardPath, nil
}

// Refresh re-reads the signed-in account from the backend and stores
// it alongside the current token.
func (c *Controller) Refresh(ctx context.Context) (*model.User, error) {
	if !c.Snapshot().IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	user, err := c.auth.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	if err := c.replaceUser(user); err != nil {
		return nil, err
	}
	cp := *user
	return &cp, nil
}

// UpdateProfile saves patch for the signed-in account.
func (c *Controller) UpdateProfile(ctx context.Context, patch model.UserPatch) (*model.User, error) {
	if c.users == nil {
		return nil, errors.New("profile updates are not configured")
	}
	snap := c.Snapshot()
	if !snap.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	user, err := c.users.Update(ctx, snap.User.ID, patch)
	if err == nil {
		err = c.replaceUser(user)
	}
	if err != nil {
		c.mu.Lock()
		c.errMsg = apiclient.Message(err, profileFailed)
		c.mu.Unlock()
		c.publish()
		return nil, err
	}
	cp := *user
	return &cp, nil
}

// replaceUser stores user with the token already on record. It fails if
// the session ended while the caller was waiting on the network.
func (c *Controller) replaceUser(user *model.User) error {
	creds, err := c.store.Get()
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}
	if creds == nil {
		return ErrNotAuthenticated
	}
	if err := c.store.Put(credstore.Credentials{Token: creds.Token, User: *user}); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}
	c.mu.Lock()
	u := *user
	c.user = &u
	c.errMsg = ""
	c.mu.Unlock()
	c.publish()
	return nil
}

// Follow re-hydrates whenever w reports a change made by another
// process sharing the store. It returns once watching has started.
func (c *Controller) Follow(ctx context.Context, w credstore.Watcher) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch credentials: %w", err)
	}
	go func() {
		for range changes {
			c.logger.Debug("credentials changed, re-hydrating")
			c.Hydrate()
		}
	}()
	return nil
}
