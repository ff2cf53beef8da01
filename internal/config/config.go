package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	PrefsPath  string `toml:"prefs_path"`
	APIBind    string `toml:"api_bind"`
}

// Traffic contains configuration for the traffic backend voice API.
type Traffic struct {
	BaseURL        string `toml:"base_url"`
	APIToken       string `toml:"api_token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Collaboration contains configuration for the presence channel.
type Collaboration struct {
	URL                  string `toml:"url"`
	Username             string `toml:"username"`
	DocumentID           string `toml:"document_id"`
	PingInterval         int    `toml:"ping_interval"`
	ReconnectBaseSeconds int    `toml:"reconnect_base_seconds"`
	ReconnectMaxSeconds  int    `toml:"reconnect_max_seconds"`
	ReconnectAttempts    int    `toml:"reconnect_attempts"`
}

// Capture contains configuration for audio capture.
type Capture struct {
	Binary       string `toml:"binary"`
	Device       string `toml:"device"`
	SampleRate   int    `toml:"sample_rate"`
	Channels     int    `toml:"channels"`
	ChunkMillis  int    `toml:"chunk_millis"`
	MinFreeBytes int64  `toml:"min_free_bytes"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	UploadPollInterval  int `toml:"upload_poll_interval"`
	UploadRetryInterval int `toml:"upload_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for airtrack.
//
// Configuration sections by subsystem:
//   - Paths: staging/log directories, prefs file, API bind address
//   - Traffic: traffic backend voice API connection
//   - Collaboration: presence channel endpoint and reconnect policy
//   - Capture: audio capture binary and stream format
//   - Workflow: upload retry worker intervals
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Traffic       Traffic       `toml:"traffic"`
	Collaboration Collaboration `toml:"collaboration"`
	Capture       Capture       `toml:"capture"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/airtrack/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("airtrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if prefsDir := filepath.Dir(c.Paths.PrefsPath); prefsDir != "" && prefsDir != "." {
		if err := os.MkdirAll(prefsDir, 0o755); err != nil {
			return fmt.Errorf("create prefs directory %q: %w", prefsDir, err)
		}
	}
	return nil
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "airtrackd.sock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
