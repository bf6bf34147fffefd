// Package credential reads API keys from a netrc file.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bgentry/go-netrc/netrc"
)

var ErrNotFound = errors.New("no matching netrc entry")

// Netrc looks up "machine <host> login <login> password <key>" entries.
type Netrc struct {
	Path string
}

// DefaultNetrcPath honours $NETRC, then ~/.netrc (~/_netrc on Windows).
func DefaultNetrcPath() string {
	if p := os.Getenv("NETRC"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	name := ".netrc"
	if runtime.GOOS == "windows" {
		name = "_netrc"
	}
	return filepath.Join(home, name)
}

func (n Netrc) Lookup(host, login string) (string, error) {
	path := n.Path
	if path == "" {
		path = DefaultNetrcPath()
	}
	if path == "" {
		return "", ErrNotFound
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s does not exist", ErrNotFound, path)
		}
		return "", err
	}

	rc, err := netrc.ParseFile(path)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	m := rc.FindMachine(host)
	if m == nil || m.IsDefault() {
		return "", fmt.Errorf("%w: machine %s", ErrNotFound, host)
	}
	if login != "" && m.Login != login {
		return "", fmt.Errorf("%w: machine %s login %s", ErrNotFound, host, login)
	}
	if m.Password == "" {
		return "", fmt.Errorf("%w: machine %s has no password", ErrNotFound, host)
	}
	return m.Password, nil
}
