package credstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"oidckit/pkg/logging"
)

// Watch reloads the in-memory record when another process rewrites the
// credential file, for example a second CLI invocation that refreshed the
// token. An external delete is treated as a sign-out: the in-memory copy is
// dropped but no schedule change is made here; the lifecycle layer notices
// the missing record on its next access.
//
// Watch blocks until ctx is cancelled. The directory rather than the file is
// watched because the store replaces the file by rename.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create credential watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Debug("CredStore", "Watching %s for external credential changes", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.path {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
				s.reloadFromDisk()
			case event.Op.Has(fsnotify.Remove):
				s.mu.Lock()
				s.current = nil
				s.mu.Unlock()
				logging.Info("CredStore", "Credential record removed externally")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("CredStore", "Credential watcher error: %v", err)
		}
	}
}

// reloadFromDisk replaces the in-memory record with the on-disk one. A
// transient read failure (for example racing a writer) keeps the current
// copy.
func (s *Store) reloadFromDisk() {
	ts, err := s.readRecord()
	if err != nil {
		logging.Debug("CredStore", "Skipping reload after external change: %v", err)
		return
	}

	s.mu.Lock()
	s.current = ts
	s.mu.Unlock()

	logging.Info("CredStore", "Reloaded credentials after external change (expires_at=%s)", formatExpiry(ts))
}
