package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/credstore"
	"github.com/shopadmin/internal/model"
	"github.com/shopadmin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	mu      sync.Mutex
	release chan struct{}
	started chan struct{}
	resp    *model.AuthResponse
	err     error
	me      *model.User
}

func (f *fakeAuth) wait(ctx context.Context) (*model.AuthResponse, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resp, f.err
}

func (f *fakeAuth) Login(ctx context.Context, _ model.LoginRequest) (*model.AuthResponse, error) {
	return f.wait(ctx)
}

func (f *fakeAuth) Register(ctx context.Context, _ model.RegisterRequest) (*model.AuthResponse, error) {
	return f.wait(ctx)
}

func (f *fakeAuth) Me(context.Context) (*model.User, error) {
	if f.me == nil {
		return nil, apiclient.ErrServer
	}
	return f.me, nil
}

func adminUser() *model.User {
	return &model.User{ID: "u-1", Email: "ada@example.com", Role: model.UserRoleAdmin, IsActive: true}
}

func okAuth() *fakeAuth {
	return &fakeAuth{resp: &model.AuthResponse{Token: "tok-1", User: adminUser()}}
}

var creds = model.LoginRequest{Email: "ada@example.com", Password: "secret1"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

// consistent asserts that the session holds a user exactly when the
// store holds a token.
func consistent(t *testing.T, c *Controller, store credstore.Store) {
	t.Helper()
	stored, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, stored != nil, c.Snapshot().IsAuthenticated())
}

func TestHydrate(t *testing.T) {
	t.Run("empty store", func(t *testing.T) {
		c := New(credstore.NewMemory(), okAuth())
		snap := c.Snapshot()
		assert.Equal(t, StateAnonymous, snap.State)
		assert.Nil(t, snap.User)
		assert.False(t, snap.IsLoading)
	})

	t.Run("opaque token is trusted", func(t *testing.T) {
		store := credstore.NewMemory()
		require.NoError(t, store.Put(credstore.Credentials{Token: "opaque", User: *adminUser()}))
		c := New(store, okAuth())
		snap := c.Snapshot()
		assert.Equal(t, StateAuthenticated, snap.State)
		assert.True(t, snap.IsAdmin())
	})

	t.Run("expired jwt is discarded", func(t *testing.T) {
		store := credstore.NewMemory()
		token := signToken(t, jwt.MapClaims{"userId": "u-1", "exp": time.Now().Add(-time.Hour).Unix()})
		require.NoError(t, store.Put(credstore.Credentials{Token: token, User: *adminUser()}))

		c := New(store, okAuth())
		assert.False(t, c.Snapshot().IsAuthenticated())
		assert.Empty(t, store.Token())
	})

	t.Run("token without user", func(t *testing.T) {
		store := credstore.NewMemory()
		store.SetRaw(credstore.KeyToken, "orphan")
		c := New(store, okAuth())
		assert.False(t, c.Snapshot().IsAuthenticated())
	})
}

func TestLoginPersistsAndLogoutClears(t *testing.T) {
	store := credstore.NewMemory()
	c := New(store, okAuth())

	user, err := c.Login(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, StateAuthenticated, c.Snapshot().State)
	assert.Equal(t, "tok-1", store.Token())
	consistent(t, c, store)

	c.Logout()
	snap := c.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Empty(t, snap.Error)
	assert.Empty(t, store.Token())
	consistent(t, c, store)
}

func TestLoginFailureKeepsPriorStateAndSetsError(t *testing.T) {
	store := credstore.NewMemory()
	auth := &fakeAuth{err: &apiclient.Error{Kind: apiclient.KindValidation, Status: 422, Message: "Invalid email or password"}}
	c := New(store, auth)

	_, err := c.Login(context.Background(), creds)
	require.Error(t, err)
	snap := c.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Equal(t, "Invalid email or password", snap.Error)
	assert.False(t, snap.IsLoading)

	c.ClearError()
	assert.Empty(t, c.Snapshot().Error)

	auth.err = apiclient.ErrServer
	_, err = c.Register(context.Background(), model.RegisterRequest{Email: "a@b.c", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, registerFailed, c.Snapshot().Error)
	consistent(t, c, store)
}

func TestLoginRequiresCredentials(t *testing.T) {
	c := New(credstore.NewMemory(), okAuth())
	_, err := c.Login(context.Background(), model.LoginRequest{Email: "a@b.c"})
	assert.True(t, errors.Is(err, apiclient.ErrValidation))
	assert.NotEmpty(t, c.Snapshot().Error)
}

func TestLoadingOnlyWhileInFlight(t *testing.T) {
	auth := okAuth()
	auth.release = make(chan struct{})
	auth.started = make(chan struct{}, 1)
	c := New(credstore.NewMemory(), auth)

	var mu sync.Mutex
	var seen []Snapshot
	cancel := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), creds)
		done <- err
	}()

	<-auth.started
	snap := c.Snapshot()
	assert.True(t, snap.IsLoading)
	assert.Equal(t, StateAuthenticating, snap.State)

	_, err := c.Login(context.Background(), creds)
	assert.ErrorIs(t, err, ErrAuthInProgress, "a second sign-in is rejected while one is in flight")
	assert.True(t, c.Snapshot().IsLoading)

	close(auth.release)
	require.NoError(t, <-done)
	assert.False(t, c.Snapshot().IsLoading)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for _, s := range seen {
		assert.Equal(t, s.State == StateAuthenticating, s.IsLoading)
	}
	assert.Equal(t, StateAuthenticated, seen[len(seen)-1].State)
}

func TestUnauthorizedResponseEndsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Token expired"}`))
	}))
	defer srv.Close()

	store := credstore.NewMemory()
	require.NoError(t, store.Put(credstore.Credentials{Token: "opaque", User: *adminUser()}))

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL}, store)
	require.NoError(t, err)

	var redirects []string
	c := New(store, service.NewAuth(client), WithNavigator(func(target string) {
		redirects = append(redirects, target)
	}))
	client.OnUnauthorized(c.HandleUnauthorized)
	require.True(t, c.Snapshot().IsAuthenticated())

	_, err = c.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apiclient.ErrUnauthorized))
	assert.False(t, c.Snapshot().IsAuthenticated())
	assert.Empty(t, store.Token())
	assert.Equal(t, []string{LoginPath}, redirects)
	consistent(t, c, store)
}

func TestAcceptToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid", func(t *testing.T) {
		store := credstore.NewMemory()
		c := New(store, okAuth(), WithClock(func() time.Time { return now }))
		token := signToken(t, jwt.MapClaims{
			"userId":    "u-9",
			"email":     "sam@example.com",
			"role":      "user",
			"firstName": "Sam",
			"iat":       now.Add(-time.Minute).Unix(),
			"exp":       now.Add(time.Hour).Unix(),
		})

		user, err := c.AcceptToken(token)
		require.NoError(t, err)
		assert.Equal(t, "u-9", user.ID)
		assert.Equal(t, model.UserRoleUser, user.Role)
		assert.Equal(t, "Sam", *user.FirstName)
		assert.Equal(t, now.Add(-time.Minute).Unix(), user.CreatedAt.Unix())
		assert.Equal(t, token, store.Token())
		assert.False(t, c.Snapshot().IsAdmin())
	})

	t.Run("subject fallback", func(t *testing.T) {
		c := New(credstore.NewMemory(), okAuth(), WithClock(func() time.Time { return now }))
		user, err := c.AcceptToken(signToken(t, jwt.MapClaims{"sub": "u-3", "email": "x@y.z", "role": "admin"}))
		require.NoError(t, err)
		assert.Equal(t, "u-3", user.ID)
	})

	malformed := map[string]string{
		"garbage":      "not-a-token",
		"no role":      signToken(t, jwt.MapClaims{"userId": "u-1", "email": "a@b.c"}),
		"unknown role": signToken(t, jwt.MapClaims{"userId": "u-1", "email": "a@b.c", "role": "owner"}),
		"expired":      signToken(t, jwt.MapClaims{"userId": "u-1", "email": "a@b.c", "role": "user", "exp": now.Add(-time.Second).Unix()}),
	}
	for name, token := range malformed {
		t.Run(name, func(t *testing.T) {
			store := credstore.NewMemory()
			require.NoError(t, store.Put(credstore.Credentials{Token: "old", User: *adminUser()}))
			var redirects []string
			c := New(store, okAuth(),
				WithClock(func() time.Time { return now }),
				WithNavigator(func(target string) { redirects = append(redirects, target) }))

			user, err := c.AcceptToken(token)
			assert.Nil(t, user)
			assert.Equal(t, apiclient.KindMalformedCredential, apiclient.KindOf(err))
			snap := c.Snapshot()
			assert.Equal(t, StateAnonymous, snap.State)
			assert.Nil(t, snap.User)
			assert.NotEmpty(t, snap.Error)
			assert.Empty(t, store.Token())
			assert.Equal(t, []string{LoginPath}, redirects)
		})
	}
}

func TestHandleCallback(t *testing.T) {
	c := New(credstore.NewMemory(), okAuth())

	target, err := c.HandleCallback("", "access_denied")
	assert.Error(t, err)
	assert.Equal(t, "/login?error=oauth_failed", target)

	target, err = c.HandleCallback("", "")
	assert.Error(t, err)
	assert.Equal(t, "/login?error=no_token", target)

	target, err = c.HandleCallback("x.y.z", "")
	assert.Error(t, err)
	assert.Equal(t, "/login?error=invalid_token", target)

	target, err = c.HandleCallback(signToken(t, jwt.MapClaims{"userId": "u", "email": "e@x.y", "role": "admin"}), "")
	require.NoError(t, err)
	assert.Equal(t, DashboardPath, target)
}

type fakeUsers struct{ got model.UserPatch }

func (f *fakeUsers) Update(_ context.Context, id string, patch model.UserPatch) (*model.User, error) {
	f.got = patch
	u := adminUser()
	u.ID = id
	u.FirstName = patch.FirstName
	return u, nil
}

func TestUpdateProfileAndRefresh(t *testing.T) {
	store := credstore.NewMemory()
	require.NoError(t, store.Put(credstore.Credentials{Token: "opaque", User: *adminUser()}))
	users := &fakeUsers{}
	auth := okAuth()
	c := New(store, auth, WithProfileUpdater(users))

	name := "Ada"
	user, err := c.UpdateProfile(context.Background(), model.UserPatch{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada", *user.FirstName)

	stored, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "opaque", stored.Token, "token is kept")
	assert.Equal(t, "Ada", *stored.User.FirstName)

	fresh := adminUser()
	fresh.Email = "new@example.com"
	auth.me = fresh
	user, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", c.Snapshot().User.Email)
	assert.Equal(t, "new@example.com", user.Email)

	c.Logout()
	_, err = c.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestFollowRehydrates(t *testing.T) {
	store := credstore.NewMemory()
	c := New(store, okAuth())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Follow(ctx, store))

	require.NoError(t, store.Put(credstore.Credentials{Token: "from-elsewhere", User: *adminUser()}))
	assert.Eventually(t, func() bool { return c.Snapshot().IsAuthenticated() }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Clear())
	assert.Eventually(t, func() bool { return !c.Snapshot().IsAuthenticated() }, time.Second, 5*time.Millisecond)
}
