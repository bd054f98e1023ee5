//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.coldreach.leadctl"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "leadctl-data"
	}
	return filepath.Join(home, "Library", "Application Support", "leadctl")
}

// defaultsBackend stores values in macOS UserDefaults through the
// `defaults` CLI, so settings live where Mac users expect them.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() Backend {
	return &defaultsBackend{domain: defaultsDomain}
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	out, err := exec.Command("defaults", "read", b.domain, key).CombinedOutput()
	val := strings.TrimSpace(string(out))
	if err != nil {
		// `defaults read` exits 1 when the key does not exist.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading default %s: %w (%s)", key, err, val)
	}
	return val, true, nil
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	val, ok, err := b.GetString(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, true, fmt.Errorf("default %s is not an integer: %w", key, err)
	}
	return n, true, nil
}

func (b *defaultsBackend) SetString(key, val string) error {
	return exec.Command("defaults", "write", b.domain, key, "-string", val).Run()
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	return exec.Command("defaults", "write", b.domain, key, "-int", strconv.Itoa(val)).Run()
}

func (b *defaultsBackend) Delete(key string) error {
	return exec.Command("defaults", "delete", b.domain, key).Run()
}
