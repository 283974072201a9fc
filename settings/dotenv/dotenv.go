// Package dotenv persists panel settings to a .env style key-value file,
// implementing the panel.SettingsEditor interface. Unrelated lines and
// comments in the file are preserved on update.
package dotenv

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Editor reads and updates a single .env file
type Editor struct {
	mu   sync.Mutex
	path string
}

// New creates an editor for the given path. The file does not need to exist;
// the first WriteOrUpdate creates it.
func New(path string) (*Editor, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &Editor{path: path}, nil
}

// ReadAll implements panel.SettingsEditor. A missing file reads as empty.
func (e *Editor) ReadAll() (map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := os.Open(e.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", e.path, err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", e.path, err)
	}
	return values, nil
}

// WriteOrUpdate implements panel.SettingsEditor. An existing KEY= line is
// rewritten in place; otherwise the key is appended.
func (e *Editor) WriteOrUpdate(key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("key is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var lines []string
	data, err := os.ReadFile(e.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", e.path, err)
	}
	if len(data) > 0 {
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	}

	replaced := false
	for i, line := range lines {
		if lineKey, ok := parseLineKey(line); ok && lineKey == key {
			lines[i] = formatLine(key, value)
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, formatLine(key, value))
	}

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(e.path, []byte(out), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", e.path, err)
	}
	return nil
}

// parseLineKey extracts the key from a KEY=VALUE line, tolerating an
// "export " prefix. Blank lines and comments yield ok=false.
func parseLineKey(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "export "))
	eq := strings.Index(trimmed, "=")
	if eq <= 0 {
		return "", false
	}
	return strings.TrimSpace(trimmed[:eq]), true
}

// formatLine quotes values that would otherwise break the file format
func formatLine(key, value string) string {
	if value == "" ||
		strings.ContainsAny(value, " \t\"'#") {
		return fmt.Sprintf("%s=%q", key, value)
	}
	return fmt.Sprintf("%s=%s", key, value)
}
