package pathutil

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Expand resolves environment variables and a leading "~" in a configured path.
// An empty path stays empty.
func Expand(path string) (string, error) {
	expanded := os.ExpandEnv(strings.TrimSpace(path))
	if expanded == "" {
		return "", nil
	}

	if rest, ok := cutHome(expanded); ok {
		home, err := homeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		expanded = filepath.Join(home, rest)
	}
	return filepath.Clean(expanded), nil
}

func cutHome(p string) (string, bool) {
	if p == "~" {
		return "", true
	}
	return strings.CutPrefix(p, "~/")
}

// homeDir tries os.UserHomeDir, then the passwd entry, then $HOME, skipping any
// candidate that is itself an unexpanded "~".
func homeDir() (string, error) {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, home)
	}
	if current, err := user.Current(); err == nil {
		candidates = append(candidates, current.HomeDir)
	}
	candidates = append(candidates, os.Getenv("HOME"))

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if _, unresolved := cutHome(c); c != "" && !unresolved {
			return c, nil
		}
	}
	return "", fmt.Errorf("no usable home directory (HOME=%q)", os.Getenv("HOME"))
}
