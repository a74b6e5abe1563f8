package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteClosesAppWhenCommandFails(t *testing.T) {
	t.Setenv("SHOPADMIN_CONFIG", "")
	t.Setenv("SHOPADMIN_STORE", "memory")

	c := &cli{}
	err := execute(c, []string{"whoami"})
	require.Error(t, err)
	require.NotNil(t, c.app)
	assert.True(t, c.app.closed)
}

func TestExecuteClosesAppOnSuccess(t *testing.T) {
	t.Setenv("SHOPADMIN_CONFIG", "")
	t.Setenv("SHOPADMIN_STORE", "memory")

	c := &cli{}
	require.NoError(t, execute(c, []string{"logout"}))
	require.NotNil(t, c.app)
	assert.True(t, c.app.closed)
}

func TestVersionBuildsNoApp(t *testing.T) {
	c := &cli{}
	require.NoError(t, execute(c, []string{"version"}))
	assert.Nil(t, c.app)
}

func TestUsersNeedAdmin(t *testing.T) {
	t.Setenv("SHOPADMIN_CONFIG", "")
	t.Setenv("SHOPADMIN_STORE", "memory")

	c := &cli{}
	err := execute(c, []string{"users", "list"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}
