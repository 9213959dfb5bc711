package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch observes the persisted credential for out-of-band changes: another
// process of this client logging out removes the file, and this instance
// must drop its session too. Runs until the context is canceled.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create credential watcher: %w", err)
	}

	// Watch the directory, not the file: atomic rename-into-place replaces
	// the inode, and the file may not exist yet while logged out.
	dir := filepath.Dir(s.credentials.Path())
	if err := os.MkdirAll(dir, privateDirPerm); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("create data directory for watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch data directory: %w", err)
	}

	go func() {
		defer func() {
			if err := watcher.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close credential watcher")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.handleCredentialEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Credential watcher error")
			}
		}
	}()

	return nil
}

func (s *Store) handleCredentialEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(s.credentials.Path()) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		if s.Credential() == "" {
			return
		}
		log.Info().Msg("Persisted credential removed externally; invalidating session")
		s.Invalidate()
	case event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create):
		credential, err := s.credentials.Load()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to reload externally written credential")
			return
		}
		if credential == "" || credential == s.Credential() {
			return
		}
		log.Info().Msg("Persisted credential replaced externally; adopting new value")
		s.mu.Lock()
		s.credential = credential
		s.identity = nil
		s.license = nil
		s.mu.Unlock()
	}
}
