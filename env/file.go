// Package env loads the .env files into the process environment
// and rewrites single keys of an existing .env file.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultFile is the .env file looked up in the working directory.
const DefaultFile = ".env"

// LoadAnyEnv loads the .env of the current directory if it exists,
// then every path passed by the user. Unlike the default file, the
// user's paths must exist.
//
// Variables already present in the process environment are not overwritten.
func LoadAnyEnv(paths ...string) error {
	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("os.Getwd: %w", err)
	}

	defaultPath := filepath.Join(currentDir, DefaultFile)
	if _, err := os.Stat(defaultPath); err == nil {
		if err := godotenv.Load(defaultPath); err != nil {
			return fmt.Errorf("godotenv.Load(%s): %w", defaultPath, err)
		}
	}

	if len(paths) == 0 {
		return nil
	}

	absPaths := make([]string, len(paths))
	for i, envPath := range paths {
		if filepath.IsAbs(envPath) {
			absPaths[i] = envPath
		} else {
			absPaths[i] = filepath.Join(currentDir, envPath)
		}
	}

	if err := godotenv.Load(absPaths...); err != nil {
		return fmt.Errorf("godotenv.Load: %w", err)
	}
	return nil
}

// SetKey sets key=value in an existing .env file, adding the key if the
// file didn't have it. A missing file is left alone and false is returned.
//
// Only the line of the key changes. The comments, the order and the
// formatting of the other lines are kept.
func SetKey(path string, key string, value string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("os.Stat(%s): %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("os.ReadFile(%s): %w", path, err)
	}
	if _, err := godotenv.Unmarshal(string(content)); err != nil {
		return false, fmt.Errorf("godotenv.Unmarshal(%s): %w", path, err)
	}

	updated := replaceKey(string(content), key, key+"="+value)
	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("os.WriteFile(%s): %w", path, err)
	}

	return true, nil
}

// replaceKey replaces every assignment of the key with the line.
// If the key is not assigned, the line is appended.
func replaceKey(content string, key string, line string) string {
	lines := strings.Split(content, "\n")
	found := false
	for i, raw := range lines {
		if !assigns(raw, key) {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(raw), "export ") {
			lines[i] = "export " + line
		} else {
			lines[i] = line
		}
		found = true
	}
	if found {
		return strings.Join(lines, "\n")
	}

	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + line + "\n"
}

// assigns returns true for "KEY=", "KEY =" and "export KEY=" lines.
func assigns(line string, key string) bool {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "export ")
	rest, ok := strings.CutPrefix(strings.TrimSpace(trimmed), key)
	if !ok {
		return false
	}
	rest = strings.TrimSpace(rest)
	return strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, ":")
}
