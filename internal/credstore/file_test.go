package credstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	f, err := NewFile(path)
	require.NoError(t, err)

	got, err := f.Get()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, f.Put(testCredentials()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"token":"tok-abc"`)
	assert.Contains(t, string(raw), `"user":"{`, "user is stored as a JSON string")

	got, err = f.Get()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u-1", got.User.ID)
	assert.Equal(t, "tok-abc", f.Token())

	require.NoError(t, f.Clear())
	require.NoError(t, f.Clear(), "clearing twice is fine")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, f.Token())
}

func TestFileNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(filepath.Join(dir, "credentials.json"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.Put(testCredentials()))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "credentials.json", entries[0].Name())
}

func TestFileEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.bin")
	f, err := NewFile(path, WithSecret("correct horse"))
	require.NoError(t, err)
	require.NoError(t, f.Put(testCredentials()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sealedVersion, raw[0])
	assert.False(t, strings.Contains(string(raw), "tok-abc"), "token must not be stored in clear text")

	got, err := f.Get()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tok-abc", got.Token)

	wrong, err := NewFile(path, WithSecret("battery staple"))
	require.NoError(t, err)
	got, err = wrong.Get()
	require.NoError(t, err)
	assert.Nil(t, got, "undecryptable content reads as absent")

	raw[len(raw)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	got, err = f.Get()
	require.NoError(t, err)
	assert.Nil(t, got, "tampered content reads as absent")
}

func TestFileGarbageReadsAsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))
	f, err := NewFile(path)
	require.NoError(t, err)

	got, err := f.Get()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, os.WriteFile(path, []byte(`{"token":"t"}`), 0o600))
	got, err = f.Get()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileWatchSeesOtherWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	watched, err := NewFile(path, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	other, err := NewFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := watched.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, other.Put(testCredentials()))
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after another writer stored credentials")
	}

	require.NoError(t, other.Clear())
	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after another writer cleared credentials")
	}
}

func TestSealerRejectsShortInput(t *testing.T) {
	s, err := newSealer("secret")
	require.NoError(t, err)
	_, err = s.open([]byte{sealedVersion, 1, 2})
	assert.Error(t, err)

	_, err = newSealer("")
	assert.Error(t, err)
}
