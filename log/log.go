package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        = zerolog.Nop()
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: DICTATE_LOG_PATH environment variable
	if envPath := os.Getenv("DICTATE_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	diagLog = zerolog.Nop()
	logReady = false
}

// Logger returns the diagnostics logger, a no-op logger before Init.
func Logger() zerolog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	return diagLog
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func AppStart(version, target string, maxDuration time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("version", version).
		Str("target", target).
		Dur("max_duration", maxDuration).
		Msg("app_start")
}

func TranscriptionText(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if transcribeFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcribeFile.WriteString(line)
}

func Delivered(target string, chars int, err error) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Error().Err(err)
	}
	ev.Str("target", target).Int("chars", chars).Msg("delivered")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
