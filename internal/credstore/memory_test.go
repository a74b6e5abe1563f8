package credstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopadmin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials() Credentials {
	first := "Ada"
	return Credentials{
		Token: "tok-abc",
		User: model.User{
			ID:        "u-1",
			Email:     "ada@example.com",
			FirstName: &first,
			Role:      model.UserRoleAdmin,
			IsActive:  true,
		},
	}
}

func TestMemoryPutGetClear(t *testing.T) {
	m := NewMemory()

	got, err := m.Get()
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, m.Token())

	require.NoError(t, m.Put(testCredentials()))
	got, err = m.Get()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-abc", got.Token)
	assert.Equal(t, "u-1", got.User.ID)
	assert.Equal(t, "Ada", *got.User.FirstName)
	assert.Equal(t, "tok-abc", m.Token())

	require.NoError(t, m.Clear())
	got, err = m.Get()
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, m.Token())
}

func TestMemoryRejectsIncomplete(t *testing.T) {
	m := NewMemory()
	assert.ErrorIs(t, m.Put(Credentials{Token: "t"}), ErrIncomplete)
	assert.ErrorIs(t, m.Put(Credentials{User: model.User{ID: "u"}}), ErrIncomplete)
}

func TestMemoryHalfWrittenReadsAsAbsent(t *testing.T) {
	m := NewMemory()
	m.SetRaw(KeyToken, "orphan")

	got, err := m.Get()
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, m.Token(), "a token without a user is not a session")

	require.NoError(t, m.Clear())
	m.SetRaw(KeyUser, `{"id":"u-1"}`)
	got, err = m.Get()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryWatch(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	changes, err := m.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Put(testCredentials()))
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatal("no change signal after Put")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
