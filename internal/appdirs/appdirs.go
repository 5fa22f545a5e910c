// Package appdirs locates the directories duckse keeps its config and logs in.
package appdirs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// HomeEnv replaces the whole duckse directory.
	HomeEnv = "DUCKSE_HOME"
	// LogDirEnv moves only the logs.
	LogDirEnv = "DUCKSE_LOG_DIR"
)

var errNoHome = errors.New("no config or home directory")

// fromEnv returns the cleaned value of name when it is set to something
// other than blanks.
func fromEnv(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", false
	}
	return filepath.Clean(v), true
}

// BaseDir is $DUCKSE_HOME, else <user config dir>/duckse, else ~/.duckse.
func BaseDir() (string, error) {
	if dir, ok := fromEnv(HomeEnv); ok {
		return dir, nil
	}
	if dir, err := os.UserConfigDir(); err == nil && strings.TrimSpace(dir) != "" {
		return filepath.Join(dir, "duckse"), nil
	}
	home, err := os.UserHomeDir()
	switch {
	case err != nil:
		return "", fmt.Errorf("locate duckse directory: %w", err)
	case strings.TrimSpace(home) == "":
		return "", fmt.Errorf("locate duckse directory: %w", errNoHome)
	}
	return filepath.Join(home, ".duckse"), nil
}

// LogsDir is $DUCKSE_LOG_DIR, else the logs directory under BaseDir.
func LogsDir() (string, error) {
	if dir, ok := fromEnv(LogDirEnv); ok {
		return dir, nil
	}
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "logs"), nil
}

// LogFile returns the path of name inside LogsDir, creating the directory.
func LogFile(name string) (string, error) {
	dir, err := LogsDir()
	if err != nil {
		return "", err
	}
	if err := EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create logs dir: %w", err)
	}
	return filepath.Join(dir, name), nil
}

func EnsureDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("ensure dir: empty path")
	}
	return os.MkdirAll(path, 0o755)
}
