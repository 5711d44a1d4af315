package credstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oidckit/internal/oidc"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "credentials.json")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SetAndCurrent(t *testing.T) {
	store := newTestStore(t)

	require.Nil(t, store.Current(), "store should start empty")

	ts := &oidc.TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		IDToken:      "identity",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, store.Set(ts))

	got := store.Current()
	require.NotNil(t, got)
	assert.Equal(t, "access", got.AccessToken)
	assert.Equal(t, "refresh", got.RefreshToken)
}

func TestStore_Set_DerivesExpiry(t *testing.T) {
	store := newTestStore(t)

	before := time.Now()
	require.NoError(t, store.Set(&oidc.TokenSet{
		AccessToken: "access",
		ExpiresIn:   3600,
	}))

	got := store.Current()
	require.True(t, got.HasExpiry(), "expiry should be derived from expires_in")
	want := before.Add(3600 * time.Second)
	assert.WithinDuration(t, want, got.ExpiresAt, 5*time.Second)
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	store, err := NewStore(Config{Path: path})
	require.NoError(t, err)

	require.NoError(t, store.Set(&oidc.TokenSet{
		AccessToken:  "persisted-access",
		RefreshToken: "persisted-refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Truncate(time.Second),
	}))
	require.NoError(t, store.Close())

	// A new store over the same path must load the record
	store2, err := NewStore(Config{Path: path})
	require.NoError(t, err)
	defer store2.Close()

	got := store2.Current()
	require.NotNil(t, got, "expected record loaded from disk")
	assert.Equal(t, "persisted-access", got.AccessToken)
	assert.Equal(t, "persisted-refresh", got.RefreshToken)
}

func TestStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set(&oidc.TokenSet{AccessToken: "access"}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "credential file must not be group or world readable")
}

func TestStore_PersistedShape(t *testing.T) {
	store := newTestStore(t)

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, store.Set(&oidc.TokenSet{
		AccessToken:  "access",
		RefreshToken: "refresh",
		IDToken:      "identity",
		ExpiresAt:    expiry,
	}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &record))

	assert.Equal(t, "access", record["accessToken"])
	assert.Equal(t, "refresh", record["refreshToken"])
	assert.Equal(t, "identity", record["idToken"])
	assert.Contains(t, record, "expiresAt")
}

func TestStore_SingleSlotOverwrite(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set(&oidc.TokenSet{AccessToken: "first"}))
	require.NoError(t, store.Set(&oidc.TokenSet{AccessToken: "second"}))

	assert.Equal(t, "second", store.Current().AccessToken)

	// Only one record file exists
	files, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set(&oidc.TokenSet{AccessToken: "access"}))
	require.NoError(t, store.Clear())

	assert.Nil(t, store.Current())
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "record file should be removed")

	// Clearing an already-empty store is not an error
	require.NoError(t, store.Clear())
}

func TestStore_CorruptRecordStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("not json{"), 0600))

	store, err := NewStore(Config{Path: path})
	require.NoError(t, err, "corrupt record must not be fatal")
	defer store.Close()

	assert.Nil(t, store.Current(), "corrupt record should be treated as no credentials")
}

func TestStore_IsExpiring(t *testing.T) {
	store := newTestStore(t)

	assert.False(t, store.IsExpiring(time.Hour), "empty store does not expire")

	require.NoError(t, store.Set(&oidc.TokenSet{
		AccessToken: "access",
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}))

	assert.False(t, store.IsExpiring(2*time.Minute))
	assert.True(t, store.IsExpiring(15*time.Minute))

	require.NoError(t, store.Set(&oidc.TokenSet{
		AccessToken: "edge",
		ExpiresAt:   time.Now().Add(2 * time.Minute),
	}))
	assert.True(t, store.IsExpiring(2*time.Minute), "token exactly at the window edge counts as expiring")

	require.NoError(t, store.Set(&oidc.TokenSet{AccessToken: "no-expiry"}))
	assert.False(t, store.IsExpiring(time.Hour), "record without expiry never expires")
}

func TestStore_ScheduleProactiveRefresh_Overdue(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set(&oidc.TokenSet{
		AccessToken: "access",
		ExpiresAt:   time.Now().Add(30 * time.Second),
	}))

	// Fire time (expiry - 2min) is already in the past: the handler must run
	// synchronously instead of being skipped.
	var fired atomic.Bool
	store.ScheduleProactiveRefresh(2*time.Minute, func() { fired.Store(true) })

	assert.True(t, fired.Load(), "overdue refresh must run immediately")
}

func TestStore_ScheduleProactiveRefresh_Future(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set(&oidc.TokenSet{
		AccessToken: "access",
		ExpiresAt:   time.Now().Add(300 * time.Millisecond),
	}))

	fired := make(chan struct{})
	store.ScheduleProactiveRefresh(100*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled refresh did not fire")
	}
}

func TestStore_ScheduleProactiveRefresh_NoExpiry(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set(&oidc.TokenSet{AccessToken: "access"}))

	var fired atomic.Bool
	store.ScheduleProactiveRefresh(2*time.Minute, func() { fired.Store(true) })

	time.Sleep(100 * time.Millisecond)
	assert.False(t, fired.Load(), "no schedule should exist without an expiry")
}

func TestStore_ScheduleProactiveRefresh_ReplacesPrior(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set(&oidc.TokenSet{
		AccessToken: "access",
		ExpiresAt:   time.Now().Add(400 * time.Millisecond),
	}))

	var firstFired atomic.Bool
	store.ScheduleProactiveRefresh(100*time.Millisecond, func() { firstFired.Store(true) })

	secondFired := make(chan struct{})
	store.ScheduleProactiveRefresh(100*time.Millisecond, func() { close(secondFired) })

	select {
	case <-secondFired:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement schedule did not fire")
	}
	assert.False(t, firstFired.Load(), "superseded schedule must not fire")
}

func TestStore_ClearCancelsSchedule(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set(&oidc.TokenSet{
		AccessToken: "access",
		ExpiresAt:   time.Now().Add(300 * time.Millisecond),
	}))

	var fired atomic.Bool
	store.ScheduleProactiveRefresh(100*time.Millisecond, func() { fired.Store(true) })
	require.NoError(t, store.Clear())

	time.Sleep(500 * time.Millisecond)
	assert.False(t, fired.Load(), "schedule must be cancelled by Clear")
}

func TestStorageError(t *testing.T) {
	inner := os.ErrPermission
	err := &StorageError{Op: "set", Path: "/tmp/creds.json", Err: inner}

	assert.Contains(t, err.Error(), "set")
	assert.Contains(t, err.Error(), "/tmp/creds.json")
	assert.ErrorIs(t, err, os.ErrPermission)
}
