package gate

import (
	"testing"

	"github.com/shopadmin/internal/model"
	"github.com/shopadmin/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	anonymous = session.Snapshot{State: session.StateAnonymous}
	member    = session.Snapshot{State: session.StateAuthenticated, User: &model.User{ID: "u", Role: model.UserRoleUser}}
	admin     = session.Snapshot{State: session.StateAuthenticated, User: &model.User{ID: "a", Role: model.UserRoleAdmin}}
)

func TestRequireAuthenticated(t *testing.T) {
	assert.Equal(t, Decision{Outcome: Redirect, Target: "/login"}, RequireAuthenticated(anonymous))
	assert.True(t, RequireAuthenticated(member).Allowed())
	assert.True(t, RequireAuthenticated(admin).Allowed())
}

func TestRequireAdmin(t *testing.T) {
	assert.Equal(t, Decision{Outcome: Redirect, Target: "/login"}, RequireAdmin(anonymous))
	assert.Equal(t, Decision{Outcome: Redirect, Target: "/dashboard"}, RequireAdmin(member))
	assert.True(t, RequireAdmin(admin).Allowed())
}

func TestResolve(t *testing.T) {
	r, params, ok := Resolve("/products/new")
	require.True(t, ok)
	assert.Equal(t, "product-create", r.Name)
	assert.Nil(t, params)

	r, params, ok = Resolve("/products/p-42/edit?tab=images")
	require.True(t, ok)
	assert.Equal(t, "product-edit", r.Name)
	assert.Equal(t, map[string]string{"id": "p-42"}, params)

	_, _, ok = Resolve("/nowhere")
	assert.False(t, ok)
}

func TestDecide(t *testing.T) {
	cases := []struct {
		path string
		snap session.Snapshot
		want Decision
	}{
		{"/login", anonymous, Decision{Outcome: Allow}},
		{"/orders/o-1", anonymous, Decision{Outcome: Redirect, Target: "/login"}},
		{"/orders/o-1", member, Decision{Outcome: Allow}},
		{"/settings", member, Decision{Outcome: Redirect, Target: "/dashboard"}},
		{"/settings", admin, Decision{Outcome: Allow}},
		{"/categories/new", member, Decision{Outcome: Redirect, Target: "/dashboard"}},
		{"/", admin, Decision{Outcome: Redirect, Target: "/dashboard"}},
		{"/missing", admin, Decision{Outcome: NotFound}},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.path, tc.snap))
		})
	}
}
