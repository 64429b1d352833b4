package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvLogDir overrides the log directory.
const EnvLogDir = "SITESEARCH_LOG_DIR"

// DefaultLogDir returns the default log directory (~/.sitesearch/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	if dir := os.Getenv(EnvLogDir); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".sitesearch", "logs")
	}
	return filepath.Join(home, ".sitesearch", "logs")
}

// DefaultLogPath returns the default log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "sitesearch.log")
}

// FindLogFile attempts to find the log file for viewing.
// An explicit path wins over the default location.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("no log file found. Run a command with --debug first.\nExpected at: %s", path)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}
