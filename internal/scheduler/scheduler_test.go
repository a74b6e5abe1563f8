package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/shopadmin/internal/credstore"
	"github.com/shopadmin/internal/gate"
	"github.com/shopadmin/internal/model"
	"github.com/shopadmin/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"@hourly":      "0 0 * * * *",
		"*/5 * * * *":  "0 */5 * * * *",
		"@every 5m":    "@every 5m",
		"30 0 * * * *": "30 0 * * * *",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalize(in), in)
	}
}

func TestAddRemoveAndTrigger(t *testing.T) {
	s := New(nil)
	var calls int
	require.NoError(t, s.Add("session", "@every 1h", func(context.Context) error {
		calls++
		return nil
	}))
	require.NoError(t, s.Add("lists", "", func(context.Context) error { return nil }), "empty schedule disables the job")
	assert.Equal(t, []string{"session"}, s.Jobs())

	require.NoError(t, s.Trigger(context.Background(), "session"))
	assert.Equal(t, 1, calls)

	s.Start(context.Background())
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.NextRun("session"))
	s.Stop()
	assert.False(t, s.IsRunning())

	s.Remove("session")
	assert.Empty(t, s.Jobs())
	assert.Error(t, s.Trigger(context.Background(), "session"))
}

func TestAddRejectsBadSchedule(t *testing.T) {
	err := New(nil).Add("x", "not a schedule", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestAllJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var ran []int
	job := All(
		func(context.Context) error { ran = append(ran, 1); return boom },
		func(context.Context) error { ran = append(ran, 2); return nil },
	)
	err := job(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, ran)
}

func TestGatedFollowsSession(t *testing.T) {
	store := credstore.NewMemory()
	ctrl := session.New(store, nil)

	var runs int
	job := Gated(ctrl, gate.TierAdmin, func(context.Context) error {
		runs++
		return nil
	})

	require.NoError(t, job(context.Background()))
	assert.Equal(t, 0, runs, "anonymous")

	require.NoError(t, store.Put(credstore.Credentials{
		Token: "t",
		User:  model.User{ID: "u-2", Email: "bob@example.com", Role: model.UserRoleUser},
	}))
	ctrl.Hydrate()
	require.NoError(t, job(context.Background()))
	assert.Equal(t, 0, runs, "signed in without the admin role")

	require.NoError(t, store.Put(credstore.Credentials{
		Token: "t",
		User:  model.User{ID: "u-1", Email: "ada@example.com", Role: model.UserRoleAdmin},
	}))
	ctrl.Hydrate()
	require.NoError(t, job(context.Background()))
	assert.Equal(t, 1, runs)
}

func TestSessionJobIsQuietWhenSignedOut(t *testing.T) {
	ctrl := session.New(credstore.NewMemory(), nil)
	assert.NoError(t, SessionJob(ctrl)(context.Background()))
}
