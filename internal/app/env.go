package app

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads the given dotenv files, ".env" when none are given.
// Missing files are skipped; variables already set in the environment win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}
