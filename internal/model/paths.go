package model

import (
	"os"
	"path/filepath"
)

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".complyscan/cache"
	}
	return filepath.Join(home, ".complyscan", "cache")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".complyscan/complyscan.db"
	}
	return filepath.Join(home, ".complyscan", "complyscan.db")
}
