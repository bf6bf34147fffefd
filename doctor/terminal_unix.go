//go:build !windows

package doctor

import (
	"os"
	"os/exec"
)

// resetTerminal undoes raw mode the keyboard grab may leave behind.
func resetTerminal() {
	cmd := exec.Command("stty", "sane")
	cmd.Stdin = os.Stdin
	cmd.Run()
}
