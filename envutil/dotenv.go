package envutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads the given .env files into the process environment.
// Variables already set in the environment are left alone, and files
// that do not exist are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if path == "" {
			continue
		}

		err := godotenv.Load(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("env file not found, skipping", "path", path)

				continue
			}

			return fmt.Errorf("loading env file %s: %w", path, err)
		}

		slog.Debug("loaded env file", "path", path)
	}

	return nil
}
