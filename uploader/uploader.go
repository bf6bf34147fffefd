// Package uploader sends a recorded artifact to a transcription endpoint
// with curl and decodes the reply.
package uploader

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dictate/proc"
)

var (
	ErrMissingCredential = errors.New("no API credential configured")
	ErrMissingDependency = errors.New("uploader executable not found")
)

const (
	DefaultBinary   = "curl"
	DefaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"
	DefaultModel    = "whisper-1"
)

type Config struct {
	Binary   string
	Model    string
	Language string
	// Timeout bounds the whole transfer. Zero leaves it to curl.
	Timeout time.Duration
}

type Launcher struct {
	cfg     Config
	spawner proc.Spawner
}

func New(cfg Config, spawner proc.Spawner) *Launcher {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Launcher{cfg: cfg, spawner: spawner}
}

func (l *Launcher) Binary() string { return l.cfg.Binary }

func (l *Launcher) Check() error {
	if _, err := l.spawner.LookPath(l.cfg.Binary); err != nil {
		return fmt.Errorf("%w: %s (%v)", ErrMissingDependency, l.cfg.Binary, err)
	}
	return nil
}

// Command builds the curl invocation. The bearer header is read from
// stdin so the credential stays out of the process table.
func (l *Launcher) Command(artifactPath, endpoint, credential string) proc.Command {
	args := []string{
		"--silent", "--show-error",
		"--request", "POST",
		"--header", "@-",
		"--form", "file=@" + quoteFormValue(artifactPath),
		"--form-string", "model=" + l.cfg.Model,
	}
	if l.cfg.Language != "" {
		args = append(args, "--form-string", "language="+l.cfg.Language)
	}
	if l.cfg.Timeout > 0 {
		secs := int(math.Ceil(l.cfg.Timeout.Seconds()))
		args = append(args, "--max-time", strconv.Itoa(secs))
	}
	args = append(args, endpoint)
	return proc.Command{
		Binary: l.cfg.Binary,
		Args:   args,
		Stdin:  strings.NewReader("Authorization: Bearer " + credential + "\n"),
	}
}

// Start fails with ErrMissingCredential before anything is spawned when
// credential is empty.
func (l *Launcher) Start(artifactPath, endpoint, credential string) (proc.Handle, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, ErrMissingCredential
	}
	if err := l.Check(); err != nil {
		return nil, err
	}
	return l.spawner.Spawn(l.Command(artifactPath, endpoint, credential))
}

// quoteFormValue wraps a file name in double quotes so curl does not
// treat ';' or ',' in the path as form options.
func quoteFormValue(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// Host returns the host name of endpoint, used as the credential lookup key.
func Host(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return u.Hostname()
}

// CredentialSource looks up a secret for a machine and login, like a
// netrc file does.
type CredentialSource interface {
	Lookup(host, login string) (string, error)
}

// ResolveCredential prefers the configured value and falls back to src.
func ResolveCredential(configured, endpoint, login string, src CredentialSource) (string, error) {
	if c := strings.TrimSpace(configured); c != "" {
		return c, nil
	}
	if src == nil {
		return "", ErrMissingCredential
	}
	host := Host(endpoint)
	if host == "" {
		return "", fmt.Errorf("%w: invalid endpoint %q", ErrMissingCredential, endpoint)
	}
	secret, err := src.Lookup(host, login)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMissingCredential, host, err)
	}
	if secret = strings.TrimSpace(secret); secret == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingCredential, host)
	}
	return secret, nil
}
