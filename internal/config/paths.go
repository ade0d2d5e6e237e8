package config

import (
	"os"
	"path/filepath"
)

const appDirName = ".clawtui"

// DataDir returns the base data directory, honoring CLAWTUI_HOME.
func DataDir() (string, error) {
	if dir := os.Getenv("CLAWTUI_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// ConfigPath returns the path to config.toml.
func ConfigPath() (string, error) {
	return dataPath("config.toml")
}

// TokenPath returns the default gateway token file.
func TokenPath() (string, error) {
	return dataPath("token")
}

// StateDBPath returns the bbolt database holding UI selection state.
func StateDBPath() (string, error) {
	return dataPath("state.db")
}

// AppStatePath and SessionCachePath back the file storage backend.
func AppStatePath() (string, error) {
	return dataPath("state.json")
}

func SessionCachePath() (string, error) {
	return dataPath("sessions.json")
}

// UILogPath returns the log file written while the terminal UI owns stdout.
func UILogPath() (string, error) {
	return dataPath("ui.log")
}

func dataPath(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
