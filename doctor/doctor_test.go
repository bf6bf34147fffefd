package doctor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dictate/config"
	"dictate/hotkey"
	"dictate/proc"
	"dictate/recorder"
	"dictate/uploader"
)

type noCreds struct{}

func (noCreds) Lookup(string, string) (string, error) { return "", errors.New("none") }

func testConfig() *config.Config {
	return &config.Config{
		MaxDuration: time.Minute,
		Target:      "clipboard",
		Login:       "apikey",
		APIKey:      "sk-test-1234567890",
		Uploader:    config.Uploader{Endpoint: uploader.DefaultEndpoint, Model: "whisper-1"},
	}
}

func deps(sp *proc.FakeSpawner, cfg *config.Config, out *bytes.Buffer) Deps {
	return Deps{
		Config:    cfg,
		Recorder:  recorder.New(nil, sp),
		Uploader:  uploader.New(uploader.Config{}, sp),
		Creds:     noCreds{},
		Out:       out,
		Clipboard: func() bool { return true },
		Hotkey:    func() (string, error) { return "1 keyboard(s) found", nil },
	}
}

func TestRunAllPass(t *testing.T) {
	var out bytes.Buffer
	code := Run(context.Background(), deps(proc.NewFakeSpawner(), testConfig(), &out))
	if code != 0 {
		t.Fatalf("exit code = %d\n%s", code, out.String())
	}
	for _, want := range []string{"[1/6] Configuration", "PASS: rec found", "PASS: curl found", "sk-", "All checks passed!"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "sk-test-1234567890") {
		t.Error("credential printed in full")
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(sp *proc.FakeSpawner, d *Deps)
		want  string
	}{
		{"missing recorder", func(sp *proc.FakeSpawner, d *Deps) { sp.SetMissing("rec", true) }, "recorder executable not found"},
		{"missing curl", func(sp *proc.FakeSpawner, d *Deps) { sp.SetMissing("curl", true) }, "uploader executable not found"},
		{"no credential", func(sp *proc.FakeSpawner, d *Deps) { d.Config.APIKey = "" }, "no API credential"},
		{"no clipboard", func(sp *proc.FakeSpawner, d *Deps) { d.Clipboard = func() bool { return false } }, "no clipboard backend"},
		{"hotkey", func(sp *proc.FakeSpawner, d *Deps) {
			d.Hotkey = func() (string, error) { return "", errors.New("no keyboard devices found") }
		}, "no keyboard devices"},
		{"config", func(sp *proc.FakeSpawner, d *Deps) { d.ConfigErr = config.ErrInvalid }, "invalid configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			sp := proc.NewFakeSpawner()
			d := deps(sp, testConfig(), &out)
			tt.setup(sp, &d)
			if code := Run(context.Background(), d); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(out.String(), "FAIL: ") || !strings.Contains(out.String(), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestHotkeyPress(t *testing.T) {
	var out bytes.Buffer
	d := deps(proc.NewFakeSpawner(), testConfig(), &out)
	fk := hotkey.NewFake()
	d.NewHotkey = func() hotkey.Hotkey { return fk }
	fk.SimKeydown()
	fk.SimKeyup()

	msg, err := checkHotkey(context.Background(), d)
	if err != nil || msg != "hotkey detected" {
		t.Errorf("got %q, %v", msg, err)
	}
}

func TestMask(t *testing.T) {
	for in, want := range map[string]string{
		"":                   "",
		"short":              "*****",
		"sk-abcdefghijklmno": "sk-***********lmno",
	} {
		if got := mask(in); got != want {
			t.Errorf("mask(%q) = %q, want %q", in, got, want)
		}
	}
}
