//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "leadctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "leadctl-data"
	}
	return filepath.Join(home, ".local", "share", "leadctl")
}

func configFilePath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "leadctl", "config.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "leadctl", "config.json")
	}
	return filepath.Join(home, ".config", "leadctl", "config.json")
}

// fileBackend keeps settings in a flat JSON object under the XDG
// config directory. An unreadable file degrades to defaults with a
// warning rather than blocking the CLI.
type fileBackend struct {
	path   string
	values map[string]any
}

func newPlatformBackend() Backend {
	b := &fileBackend{path: configFilePath(), values: map[string]any{}}
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: unreadable config %s: %v, using defaults\n", b.path, err)
		}
		return b
	}
	if err := json.Unmarshal(data, &b.values); err != nil {
		fmt.Fprintf(os.Stderr, "warning: malformed config %s: %v, using defaults\n", b.path, err)
	}
	return b
}

func (b *fileBackend) flush() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o600)
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return "", false, nil
	}
	if s, ok := v.(string); ok {
		return s, true, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.values[key]
	if !ok {
		return 0, false, nil
	}
	switch val := v.(type) {
	case float64:
		// JSON numbers arrive as float64; reject anything that is not
		// an exact, in-range integer.
		if val != math.Trunc(val) || val < math.MinInt || val > math.MaxInt {
			return 0, true, fmt.Errorf("config %s: %v is not an integer", key, val)
		}
		return int(val), true, nil
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, true, fmt.Errorf("config %s: %w", key, err)
		}
		return n, true, nil
	default:
		return 0, true, fmt.Errorf("config %s: unexpected type %T", key, v)
	}
}

func (b *fileBackend) SetString(key, val string) error {
	b.values[key] = val
	return b.flush()
}

func (b *fileBackend) SetInt(key string, val int) error {
	b.values[key] = val
	return b.flush()
}

func (b *fileBackend) Delete(key string) error {
	delete(b.values, key)
	return b.flush()
}
