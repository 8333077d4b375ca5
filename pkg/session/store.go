package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultPath is the session slot used when none is configured
const DefaultPath = ".aphelion/session"

// ErrStorageRead is returned when the session slot exists but cannot be read
var ErrStorageRead = errors.New("session storage read failed")

// StoreConfig holds session store configuration
type StoreConfig struct {
	Path      string
	Generator Generator // Optional, defaults to LocalGenerator
	Logger    zerolog.Logger
}

// Store is a single durable slot holding one session id
type Store struct {
	path      string
	generator Generator
	logger    zerolog.Logger

	mu      sync.Mutex
	id      string
	created bool
}

// NewStore creates a new session store
func NewStore(cfg StoreConfig) *Store {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	generator := cfg.Generator
	if generator == nil {
		generator = LocalGenerator{}
	}
	return &Store{
		path:      path,
		generator: generator,
		logger:    cfg.Logger,
	}
}

// Path returns the slot file path
func (s *Store) Path() string {
	return s.path
}

// Created reports whether this store generated and persisted a new id
func (s *Store) Created() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// LoadOrCreate returns the persisted session id, creating and persisting one if the slot is empty
func (s *Store) LoadOrCreate(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		return s.id, nil
	}

	id, err := s.read()
	if err != nil {
		return "", err
	}
	if id != "" {
		s.id = id
		s.logger.Info().
			Str("session_id", id).
			Str("path", s.path).
			Msg("Loaded existing session")
		return id, nil
	}

	id, err = s.generator.NewSessionID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	if err := s.write(id); err != nil {
		return "", err
	}

	s.id = id
	s.created = true
	s.logger.Info().
		Str("session_id", id).
		Str("path", s.path).
		Msg("Created new session")

	return id, nil
}

// read returns the trimmed slot content; a missing slot reads as empty
func (s *Store) read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %s: %w", ErrStorageRead, s.path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// write persists id through a temp file and rename so readers never see a partial slot
func (s *Store) write(id string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(id); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set session file mode: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to persist session file: %w", err)
	}

	return nil
}
