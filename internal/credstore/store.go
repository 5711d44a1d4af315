package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"oidckit/internal/oidc"
	"oidckit/pkg/logging"
)

// DefaultCredentialsFile is the file name of the single credential slot
// inside the storage directory.
const DefaultCredentialsFile = "credentials.json"

// Store provides durable single-slot persistence for a TokenSet plus
// expiry-aware proactive refresh scheduling. One record exists per store;
// Set overwrites, never appends.
//
// SECURITY: the record file is created with 0600 permissions and its
// directory with 0700. Token values are never logged.
type Store struct {
	mu      sync.Mutex
	path    string
	current *oidc.TokenSet
	timer   *time.Timer
}

// Config configures the credential store.
type Config struct {
	// Path is the full path of the credential record file. Defaults to
	// ~/.config/oidckit/credentials.json.
	Path string
}

// NewStore creates a store and loads any previously persisted record. A
// corrupt or unreadable record is treated as no credentials rather than a
// fatal error; credentials are recoverable only by re-authenticating anyway.
func NewStore(cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".config", "oidckit", DefaultCredentialsFile)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, &StorageError{Op: "init", Path: path, Err: err}
	}

	s := &Store{path: path}

	if ts, err := s.readRecord(); err == nil {
		s.current = ts
	} else if !os.IsNotExist(err) {
		logging.Warn("CredStore", "Failed to load persisted credentials, starting empty: %v", err)
	}

	return s, nil
}

// Set persists the full record, replacing any prior one. The absolute expiry
// is derived from the issuance time when only expires_in is known.
func (s *Store) Set(ts *oidc.TokenSet) error {
	if ts == nil {
		return &StorageError{Op: "set", Path: s.path, Err: fmt.Errorf("token set is nil")}
	}

	if ts.ExpiresAt.IsZero() && ts.ExpiresIn > 0 {
		ts.ExpiresAt = time.Now().Add(time.Duration(ts.ExpiresIn) * time.Second)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeRecord(ts); err != nil {
		logging.Warn("CredStore", "SECURITY_AUDIT: credential write failed: %v", err)
		return err
	}
	s.current = ts

	logging.Info("CredStore", "SECURITY_AUDIT: credentials stored (expires_at=%s, has_refresh_token=%t)",
		formatExpiry(ts), ts.RefreshToken != "")

	return nil
}

// Current returns the last persisted record, or nil when no credentials are
// stored. The returned set is shared; callers must not mutate it.
func (s *Store) Current() *oidc.TokenSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Clear deletes the persisted record and cancels any pending refresh
// schedule.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelScheduleLocked()
	s.current = nil

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		logging.Warn("CredStore", "SECURITY_AUDIT: credential deletion failed: %v", err)
		return &StorageError{Op: "clear", Path: s.path, Err: err}
	}

	logging.Info("CredStore", "SECURITY_AUDIT: credentials cleared")
	return nil
}

// IsExpiring reports whether the stored access token expires within the
// given window. A record without an expiry never expires for this check, and
// an empty store does not expire either.
func (s *Store) IsExpiring(within time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}
	return s.current.ExpiresWithin(within)
}

// ScheduleProactiveRefresh arms a one-shot timer that fires advance before
// the stored record's expiry. Any prior schedule is cancelled first. When no
// expiry is known nothing is scheduled; when the fire time has already
// passed the handler is invoked synchronously, so an overdue refresh is
// caught up rather than silently skipped.
func (s *Store) ScheduleProactiveRefresh(advance time.Duration, handler func()) {
	s.mu.Lock()

	s.cancelScheduleLocked()

	if s.current == nil || !s.current.HasExpiry() {
		s.mu.Unlock()
		return
	}

	fireAt := s.current.ExpiresAt.Add(-advance)
	delay := time.Until(fireAt)

	if delay <= 0 {
		s.mu.Unlock()
		logging.Debug("CredStore", "Proactive refresh overdue by %s, running catch-up now", -delay)
		handler()
		return
	}

	s.timer = time.AfterFunc(delay, handler)
	s.mu.Unlock()

	logging.Debug("CredStore", "Proactive refresh scheduled in %s (fire_at=%s)", delay, fireAt.Format(time.RFC3339))
}

// CancelSchedule cancels any pending refresh timer.
func (s *Store) CancelSchedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelScheduleLocked()
}

// Close cancels the pending schedule. The persisted record is left intact.
func (s *Store) Close() error {
	s.CancelSchedule()
	return nil
}

// Path returns the credential record path.
func (s *Store) Path() string {
	return s.path
}

// cancelScheduleLocked stops the pending timer. Requires s.mu held.
func (s *Store) cancelScheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// writeRecord atomically replaces the record file: write a temp file with
// 0600 permissions, then rename over the slot.
func (s *Store) writeRecord(ts *oidc.TokenSet) error {
	data, err := json.MarshalIndent(ts, "", "  ")
	if err != nil {
		return &StorageError{Op: "set", Path: s.path, Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &StorageError{Op: "set", Path: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return &StorageError{Op: "set", Path: s.path, Err: err}
	}
	return nil
}

// readRecord loads the record file. Returns the raw os error for stat-style
// inspection by the caller.
func (s *Store) readRecord() (*oidc.TokenSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var ts oidc.TokenSet
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential record: %w", err)
	}
	return &ts, nil
}

func formatExpiry(ts *oidc.TokenSet) string {
	if !ts.HasExpiry() {
		return "never"
	}
	return ts.ExpiresAt.Format(time.RFC3339)
}
