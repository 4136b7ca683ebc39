// Package localstore persists small values (the auth session, the cached
// identity) on the local machine. The system keyring is preferred; headless
// machines fall back to owner-only files.
package localstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/heartmarshall/promptly/internal/config"
	"github.com/heartmarshall/promptly/internal/domain"
)

const probeKey = "promptly-keyring-check"

// Store is a string key/value store backed by the keyring or the file system.
type Store struct {
	service string
	dir     string
	backend string
	log     *slog.Logger

	mu      sync.Mutex
	checked bool
	useFile bool
}

// New creates a Store. The backend is resolved lazily on first use.
func New(cfg config.StorageConfig, logger *slog.Logger) *Store {
	return &Store{
		service: cfg.KeyringService,
		dir:     cfg.Dir,
		backend: cfg.Backend,
		log:     logger.With("adapter", "localstore"),
	}
}

// Mode describes the backend in use.
func (s *Store) Mode() string {
	if s.fileMode() {
		return "file"
	}
	return "keyring"
}

// Get returns the value stored under key. A missing key is domain.ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}

	if !s.fileMode() {
		v, err := keyring.Get(s.service, key)
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("localstore get %s: %w", key, domain.ErrNotFound)
		}
		if err != nil {
			return "", fmt.Errorf("localstore get %s: %w", key, err)
		}
		return v, nil
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("localstore get %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("localstore get %s: %w", key, err)
	}
	return string(data), nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if !s.fileMode() {
		if err := keyring.Set(s.service, key, value); err != nil {
			return fmt.Errorf("localstore set %s: %w", key, err)
		}
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("localstore set %s: create dir: %w", key, err)
	}
	// Write to a temp file first so readers never see a partial value.
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o600); err != nil {
		return fmt.Errorf("localstore set %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("localstore set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	var keyringErr error
	if !s.fileMode() {
		keyringErr = keyring.Delete(s.service, key)
		if errors.Is(keyringErr, keyring.ErrNotFound) {
			keyringErr = nil
		}
	}

	// Also remove a file left behind by an earlier fallback run.
	fileErr := os.Remove(s.path(key))
	if errors.Is(fileErr, os.ErrNotExist) {
		fileErr = nil
	}

	if err := errors.Join(keyringErr, fileErr); err != nil {
		return fmt.Errorf("localstore delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) fileMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checked {
		return s.useFile
	}
	s.checked = true

	switch s.backend {
	case config.StorageFile:
		s.useFile = true
	case config.StorageKeyring:
		s.useFile = false
	default:
		if err := keyring.Set(s.service, probeKey, "ok"); err != nil {
			s.log.Warn("keyring unavailable, using file storage",
				slog.String("dir", s.dir),
				slog.String("error", err.Error()),
			)
			s.useFile = true
			break
		}
		_ = keyring.Delete(s.service, probeKey)
	}
	return s.useFile
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}

func checkKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("localstore: invalid key %q", key)
	}
	return nil
}
