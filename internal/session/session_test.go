package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_persistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.yaml")

	fs, err := OpenFileStorage(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set(UserTokenKey, "user-abc"))
	require.NoError(t, fs.Set(AdminTokenKey, "admin-xyz"))

	reopened, err := OpenFileStorage(path)
	require.NoError(t, err)
	token, ok := reopened.Get(UserTokenKey)
	assert.True(t, ok)
	assert.Equal(t, "user-abc", token)

	require.NoError(t, reopened.Delete(UserTokenKey))

	again, err := OpenFileStorage(path)
	require.NoError(t, err)
	_, ok = again.Get(UserTokenKey)
	assert.False(t, ok)
	admin, _ := again.Get(AdminTokenKey)
	assert.Equal(t, "admin-xyz", admin)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStorage_missingFileIsEmpty(t *testing.T) {
	fs, err := OpenFileStorage(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	_, ok := fs.Get(UserTokenKey)
	assert.False(t, ok)
	assert.NoError(t, fs.Delete(UserTokenKey))
}

func TestFileStorage_rejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("userToken: [unterminated"), 0o600))

	_, err := OpenFileStorage(path)
	assert.Error(t, err)
}

func TestSession_sessionsAreIndependent(t *testing.T) {
	storage := NewMemoryStorage()
	user := New(storage, UserTokenKey, nil)
	admin := New(storage, AdminTokenKey, nil)

	require.NoError(t, user.SetToken("u1"))
	assert.True(t, user.Active())
	assert.False(t, admin.Active())

	require.NoError(t, admin.SetToken("a1"))
	require.NoError(t, user.Clear())
	assert.False(t, user.Active())
	assert.Equal(t, "a1", admin.Token())
}

func TestSession_invalidateClearsAndNotifies(t *testing.T) {
	s := New(NewMemoryStorage(), UserTokenKey, nil)
	require.NoError(t, s.SetToken("stale"))

	notified := 0
	s.OnUnauthorized(func() { notified++ })
	s.Invalidate()

	assert.False(t, s.Active())
	assert.Equal(t, 1, notified)
}
