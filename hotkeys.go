package main

import (
	"context"
	"time"

	"dictate/hotkey"
	"dictate/log"
)

// listenHotkey registers hk and forwards its chords to r until ctx ends.
func listenHotkey(ctx context.Context, hk hotkey.Hotkey, longPress time.Duration, r *running, targets *targetSwitch) error {
	if err := hk.Register(); err != nil {
		return err
	}
	hy := hotkey.NewHybrid(hk, longPress, r.recordingActive)
	go func() {
		defer hk.Unregister()
		defer hy.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-hy.Toggles():
				if err := r.Toggle(targets.Get()); err != nil {
					log.Warnf("hotkey toggle: %v", err)
				}
			case <-hk.Cancel():
				if err := r.Cancel(); err != nil {
					log.Warnf("hotkey cancel: %v", err)
				}
			}
		}
	}()
	return nil
}
