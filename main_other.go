//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// Global hotkeys on macOS must be registered from the main thread.
	code := 0
	mainthread.Init(func() { code = execute() })
	os.Exit(code)
}
