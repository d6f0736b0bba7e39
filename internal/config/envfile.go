package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// envFiles are read in order; a key set by an earlier file is not
// overridden by a later one.
var envFiles = []string{".env.local", ".env"}

// loadEnvFiles fills unset environment variables from .env.local and .env in
// the working directory, then next to the executable. Variables that are
// already set and non-empty always win.
func loadEnvFiles() {
	for _, dir := range envDirs() {
		for _, name := range envFiles {
			f, err := os.Open(filepath.Join(dir, name))
			if err != nil {
				continue
			}
			vars := parseEnvFile(f)
			_ = f.Close()
			for _, kv := range vars {
				if os.Getenv(kv[0]) == "" {
					_ = os.Setenv(kv[0], kv[1])
				}
			}
		}
	}
}

func envDirs() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		if dir := filepath.Dir(exe); dir != "" && (len(dirs) == 0 || dir != dirs[0]) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// parseEnvFile reads KEY=VALUE pairs in file order. Lines may start with
// "export ". A value wrapped in matching single or double quotes is taken
// literally; an unquoted value ends at " #" so portal URLs can carry a note.
// Malformed lines are skipped.
func parseEnvFile(r io.Reader) [][2]string {
	var out [][2]string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			continue
		}
		out = append(out, [2]string{key, envValue(strings.TrimSpace(value))})
	}
	return out
}

func envValue(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') {
		if end := strings.IndexByte(v[1:], v[0]); end >= 0 {
			return v[1 : end+1]
		}
	}
	if i := strings.Index(v, " #"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
