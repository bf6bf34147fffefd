package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"dictate/config"
	"dictate/hotkey"
	"dictate/recorder"
	"dictate/uploader"
)

type Deps struct {
	Config    *config.Config
	ConfigErr error
	Recorder  *recorder.Launcher
	Uploader  *uploader.Launcher
	Creds     uploader.CredentialSource
	Out       io.Writer

	// Clipboard reports whether a clipboard backend is available.
	Clipboard func() bool
	// Hotkey describes global hotkey support.
	Hotkey func() (string, error)
	// NewHotkey, when set, asks the user to press the record chord.
	NewHotkey func() hotkey.Hotkey
	// Record runs the recorder for a second and checks it wrote audio.
	Record bool
}

type check struct {
	name string
	run  func(ctx context.Context, d Deps) (string, error)
}

var checks = []check{
	{"Configuration", checkConfig},
	{"Recorder", checkRecorder},
	{"Uploader", checkUploader},
	{"API credential", checkCredential},
	{"Clipboard", checkClipboard},
	{"Hotkey", checkHotkey},
}

// Run executes diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(ctx context.Context, d Deps) int {
	out := d.Out
	fmt.Fprintln(out, "dictate doctor - system diagnostics")
	fmt.Fprintln(out, "===================================")

	allPass := true
	for i, c := range checks {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(checks), c.name)
		msg, err := c.run(ctx, d)
		switch {
		case errors.Is(err, errSkipped):
			fmt.Fprintf(out, "  SKIP: %s\n", msg)
		case err != nil:
			fmt.Fprintf(out, "  FAIL: %v\n", err)
			allPass = false
		default:
			fmt.Fprintf(out, "  PASS: %s\n", msg)
		}
		if ctx.Err() != nil {
			fmt.Fprintln(out, "\nInterrupted")
			return 1
		}
	}

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

var errSkipped = errors.New("skipped")

func checkConfig(_ context.Context, d Deps) (string, error) {
	if d.ConfigErr != nil {
		return "", d.ConfigErr
	}
	c := d.Config
	return fmt.Sprintf("max %s, target %s, model %s", c.MaxDuration, c.Target, c.Uploader.Model), nil
}

func checkRecorder(ctx context.Context, d Deps) (string, error) {
	if err := d.Recorder.Check(); err != nil {
		return "", err
	}
	if !d.Record {
		return d.Recorder.Binary() + " found", nil
	}

	dir := ""
	if d.Config != nil {
		dir = d.Config.Recorder.TempDir
	}
	ext := "wav"
	if d.Config != nil {
		ext = d.Config.Recorder.Extension
	}
	path, err := recorder.CreateArtifact(dir, "doctor-"+uuid.NewString(), ext)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	h, err := d.Recorder.Start(time.Second, path)
	if err != nil {
		return "", err
	}
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		h.Kill()
		<-h.Done()
		return "", errors.New("recorder did not stop after 1s recording")
	case <-ctx.Done():
		h.Kill()
		<-h.Done()
		return "", ctx.Err()
	}
	ex := h.Exit()
	if !recorder.Succeeded(ex) {
		return "", fmt.Errorf("recorder failed (%s): %s", ex.Describe(), ex.StderrTail(300))
	}
	if err := recorder.ConfirmArtifact(path); err != nil {
		return "", err
	}
	fi, _ := os.Stat(path)
	return fmt.Sprintf("recorded %d bytes in %s", fi.Size(), ex.Duration.Round(time.Millisecond)), nil
}

func checkUploader(_ context.Context, d Deps) (string, error) {
	if err := d.Uploader.Check(); err != nil {
		return "", err
	}
	return d.Uploader.Binary() + " found", nil
}

func checkCredential(_ context.Context, d Deps) (string, error) {
	if d.Config == nil {
		return "no configuration", errSkipped
	}
	key, err := uploader.ResolveCredential(d.Config.APIKey, d.Config.Uploader.Endpoint, d.Config.Login, d.Creds)
	if err != nil {
		return "", fmt.Errorf("%w (set api_key, DICTATE_API_KEY, OPENAI_API_KEY or a netrc entry for %s login %s)",
			err, uploader.Host(d.Config.Uploader.Endpoint), d.Config.Login)
	}
	source := "netrc"
	if strings.TrimSpace(d.Config.APIKey) != "" {
		source = "config"
	}
	return fmt.Sprintf("%s from %s", mask(key), source), nil
}

func mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + strings.Repeat("*", len(key)-7) + key[len(key)-4:]
}

func checkClipboard(_ context.Context, d Deps) (string, error) {
	if d.Clipboard == nil {
		return "not checked", errSkipped
	}
	if !d.Clipboard() {
		return "", errors.New("no clipboard backend (install xclip, xsel or wl-clipboard)")
	}
	return "clipboard available", nil
}

func checkHotkey(ctx context.Context, d Deps) (string, error) {
	if d.Hotkey == nil {
		return "not checked", errSkipped
	}
	msg, err := d.Hotkey()
	if err != nil || d.NewHotkey == nil {
		return msg, err
	}

	fmt.Fprintln(d.Out, "Press Ctrl+Shift+Space...")
	hk := d.NewHotkey()
	if err := hk.Register(); err != nil {
		return "", fmt.Errorf("could not register hotkey: %w", err)
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		// Wait for keyup to avoid triggering next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		resetTerminal()
		return "hotkey detected", nil
	case <-time.After(10 * time.Second):
		return "", errors.New("timeout waiting for hotkey")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
