package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"airtrack/internal/logging"
)

// KeySelectedDevice stores the operator's preferred capture device.
const KeySelectedDevice = "selected_device"

type entry struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store provides thread-safe access to persisted user preferences.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates a preference store. If path is empty, the store is
// non-functional (all operations become no-ops). The file is created lazily
// on first Set call.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "prefs")

	s := &Store{
		path:    path,
		logger:  logger,
		entries: make(map[string]entry),
	}

	if path == "" {
		return s
	}

	if err := s.load(); err != nil {
		logger.Warn("failed to load preferences",
			logging.String(logging.FieldEventType, "prefs_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "preferences will start empty"),
			logging.String(logging.FieldImpact, "saved device choice will not be restored"))
	}

	return s
}

// Get returns the stored value for a key if present.
func (s *Store) Get(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" || s.path == "" {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, found := s.entries[key]
	return stored.Value, found
}

// Set adds or updates a preference and persists to disk.
func (s *Store) Set(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("preference key cannot be empty")
	}
	if s.path == "" {
		return nil // no-op when path not configured
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{Value: value, UpdatedAt: time.Now().UTC()}

	if err := s.save(); err != nil {
		return fmt.Errorf("persist preferences: %w", err)
	}

	s.logger.Debug("saved preference",
		logging.String("key", key),
		logging.String("value", value))

	return nil
}

// Remove deletes a preference and persists the change. Removing an absent key
// is not an error.
func (s *Store) Remove(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("preference key cannot be empty")
	}
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		return nil
	}

	delete(s.entries, key)

	if err := s.save(); err != nil {
		return fmt.Errorf("persist preferences: %w", err)
	}

	s.logger.Debug("removed preference", logging.String("key", key))
	return nil
}

// SelectedDevice returns the persisted capture device choice, if any.
func (s *Store) SelectedDevice() (string, bool) {
	return s.Get(KeySelectedDevice)
}

// SetSelectedDevice persists the capture device choice.
func (s *Store) SetSelectedDevice(deviceID string) error {
	return s.Set(KeySelectedDevice, deviceID)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read preferences file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var entries map[string]entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse preferences file: %w", err)
	}

	s.entries = make(map[string]entry, len(entries))
	for key, stored := range entries {
		if strings.TrimSpace(key) != "" {
			s.entries[key] = stored
		}
	}

	s.logger.Debug("loaded preferences",
		logging.Int("entry_count", len(s.entries)),
		logging.String("path", s.path))

	return nil
}

// save writes the preferences to disk atomically.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preferences directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
