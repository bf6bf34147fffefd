package main

import (
	"github.com/spf13/cobra"

	"dictate/config"
	"dictate/credential"
	"dictate/doctor"
	"dictate/hotkey"
	"dictate/proc"
	"dictate/recorder"
	"dictate/shutdown"
	"dictate/target"
	"dictate/uploader"
)

// runDoctor checks the environment with the configured tools. A broken
// config is reported and the remaining checks fall back to defaults.
func runDoctor(cmd *cobra.Command, opts *options) error {
	cfg, cfgErr := config.Load(opts.configPath)

	sp := proc.Exec{}
	d := doctor.Deps{
		Config:    cfg,
		ConfigErr: cfgErr,
		Out:       cmd.OutOrStdout(),
		Clipboard: target.ClipboardSupported,
		Hotkey:    hotkey.Diagnose,
		Record:    opts.record,
	}
	if cfg != nil {
		d.Recorder = recorder.New(cfg.Recorder.Command, sp)
		d.Uploader = uploader.New(cfg.UploaderConfig(), sp)
		d.Creds = credential.Netrc{Path: cfg.Netrc}
	} else {
		d.Recorder = recorder.New(nil, sp)
		d.Uploader = uploader.New(uploader.Config{}, sp)
		d.Creds = credential.Netrc{}
	}
	if opts.press {
		d.NewHotkey = hotkey.New
	}

	ctx, stop := shutdown.Context(cmd.Context())
	defer stop()
	if code := doctor.Run(ctx, d); code != 0 {
		return exitCode(code)
	}
	return nil
}
