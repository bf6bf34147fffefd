package recorder

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"dictate/proc"
)

func TestCommandSubstitution(t *testing.T) {
	l := New(nil, proc.NewFakeSpawner())
	cmd := l.Command(90*time.Second, "/tmp/with space/it's.wav")

	if cmd.Binary != "rec" {
		t.Fatalf("binary = %q", cmd.Binary)
	}
	want := []string{"-q", "-c", "1", "-r", "16000", "-b", "16", "/tmp/with space/it's.wav", "trim", "0", "90"}
	if !slices.Equal(cmd.Args, want) {
		t.Errorf("args = %q\nwant   %q", cmd.Args, want)
	}
}

func TestCommandTokensInsideArguments(t *testing.T) {
	l := New([]string{"ffmpeg", "-t", "{duration}", "-y", "file:{output}"}, proc.NewFakeSpawner())
	cmd := l.Command(1500*time.Millisecond, "/tmp/a.wav")
	want := []string{"-t", "2", "-y", "file:/tmp/a.wav"}
	if !slices.Equal(cmd.Args, want) {
		t.Errorf("args = %q, want %q", cmd.Args, want)
	}
}

func TestDurationSeconds(t *testing.T) {
	for _, tt := range []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{300 * time.Millisecond, 1},
		{time.Second, 1},
		{61 * time.Second, 61},
		{61500 * time.Millisecond, 62},
	} {
		if got := durationSeconds(tt.in); got != tt.want {
			t.Errorf("durationSeconds(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStartMissingDependency(t *testing.T) {
	sp := proc.NewFakeSpawner()
	sp.SetMissing("rec", true)
	l := New(nil, sp)

	_, err := l.Start(time.Minute, "/tmp/x.wav")
	if !errors.Is(err, ErrMissingDependency) {
		t.Fatalf("err = %v, want ErrMissingDependency", err)
	}
	if sp.Count() != 0 {
		t.Errorf("spawned %d processes despite missing recorder", sp.Count())
	}
}

func TestStartSpawns(t *testing.T) {
	sp := proc.NewFakeSpawner()
	l := New([]string{"rec", "{output}"}, sp)
	h, err := l.Start(time.Minute, "/tmp/x.wav")
	if err != nil {
		t.Fatal(err)
	}
	if !proc.Alive(h) {
		t.Error("handle should be live")
	}
	if got := sp.Last().Cmd.Args; !slices.Equal(got, []string{"/tmp/x.wav"}) {
		t.Errorf("args = %q", got)
	}
}

func TestValidateTemplate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		command []string
		ok      bool
	}{
		{"default", DefaultCommand, true},
		{"empty", nil, false},
		{"blank binary", []string{" ", OutputToken}, false},
		{"no output", []string{"rec", "trim", "0", DurationToken}, false},
		{"output as binary only", []string{OutputToken}, false},
		{"embedded", []string{"arecord", "--file=" + OutputToken}, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemplate(tt.command)
			if (err == nil) != tt.ok {
				t.Errorf("ValidateTemplate(%q) = %v", tt.command, err)
			}
		})
	}
}

func TestSucceeded(t *testing.T) {
	for _, tt := range []struct {
		name string
		exit proc.Exit
		want bool
	}{
		{"clean", proc.Exit{Code: 0}, true},
		{"sigint", proc.Exit{Code: -1, Signal: os.Interrupt}, true},
		{"shell interrupt code", proc.Exit{Code: 130}, true},
		{"failure", proc.Exit{Code: 1}, false},
		{"killed", proc.Exit{Code: -1, Signal: os.Kill}, false},
		{"wait error", proc.Exit{Code: 0, Err: errors.New("wait")}, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := Succeeded(tt.exit); got != tt.want {
				t.Errorf("Succeeded = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArtifactLifecycle(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateArtifact(dir, "abc", ".flac")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(path) != dir || !strings.HasSuffix(path, "dictate-abc.flac") {
		t.Errorf("path = %q", path)
	}
	if _, err := CreateArtifact(dir, "abc", "flac"); err == nil {
		t.Error("expected error when artifact already exists")
	}

	if err := ConfirmArtifact(path); !errors.Is(err, ErrNoAudio) {
		t.Errorf("empty artifact: err = %v, want ErrNoAudio", err)
	}
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := ConfirmArtifact(path); err != nil {
		t.Errorf("ConfirmArtifact: %v", err)
	}

	if err := RemoveArtifact(path); err != nil {
		t.Fatal(err)
	}
	if err := RemoveArtifact(path); err != nil {
		t.Errorf("second remove: %v", err)
	}
	if err := ConfirmArtifact(path); !errors.Is(err, ErrNoAudio) {
		t.Errorf("missing artifact: err = %v, want ErrNoAudio", err)
	}
}
