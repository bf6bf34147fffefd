package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var version = "dev"

type options struct {
	configPath string
	logPath    string
	target     string
	noBeep     bool

	headless  bool
	hotkey    bool
	longPress time.Duration

	record bool
	press  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "dictate",
		Short:         "Record speech, transcribe it, and insert the text",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, opts)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (default: <user config dir>/dictate/config.yaml)")
	pf.StringVar(&opts.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	pf.StringVar(&opts.target, "target", "", "where text goes: clipboard, paste, stdout or file:<path>")
	pf.BoolVar(&opts.noBeep, "no-beep", false, "disable audible cues")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Interactive session (terminal UI, or stdin commands without a TTY)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, opts)
		},
	}
	addRunFlags(runCmd, opts)
	addRunFlags(root, opts)

	onceCmd := &cobra.Command{
		Use:     "once",
		Aliases: []string{"record"},
		Short:   "Record until Enter, transcribe, insert and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts)
		},
	}

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run system diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, opts)
		},
	}
	doctorCmd.Flags().BoolVar(&opts.record, "record", false, "record one second of audio with the configured recorder")
	doctorCmd.Flags().BoolVar(&opts.press, "press", false, "ask for a Ctrl+Shift+Space press to verify the global hotkey")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dictate %s\n", version)
		},
	}

	root.AddCommand(runCmd, onceCmd, doctorCmd, versionCmd)
	return root
}

func addRunFlags(cmd *cobra.Command, opts *options) {
	f := cmd.Flags()
	f.BoolVar(&opts.headless, "headless", false, "read TOGGLE/CANCEL/WAIT/SLEEP/QUIT commands from stdin instead of showing the UI")
	f.BoolVar(&opts.hotkey, "hotkey", false, "listen for Ctrl+Shift+Space (record) and Ctrl+Shift+Escape (cancel) system-wide")
	f.DurationVar(&opts.longPress, "longpress", 350*time.Millisecond, "hold threshold for push-to-talk on the hotkey")
}

func runInteractive(cmd *cobra.Command, opts *options) error {
	if opts.headless || !term.IsTerminal(int(os.Stdin.Fd())) {
		return runHeadless(cmd, opts)
	}
	return runTUI(cmd, opts)
}

// execute runs the command line and returns the process exit code.
func execute() int {
	root := newRootCmd()
	err := root.Execute()
	if err == nil {
		return 0
	}
	var ec exitCode
	if asExitCode(err, &ec) {
		return int(ec)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}
