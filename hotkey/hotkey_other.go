//go:build !linux

package hotkey

import (
	"sync"

	"golang.design/x/hotkey"
)

type xHotkey struct {
	hk      *hotkey.Hotkey
	esc     *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	cancel  chan struct{}
	stop    chan struct{}
	once    sync.Once
}

func New() Hotkey {
	mods := []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}
	return &xHotkey{
		hk:      hotkey.New(mods, hotkey.KeySpace),
		esc:     hotkey.New(mods, hotkey.KeyEscape),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		cancel:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	if err := h.esc.Register(); err != nil {
		h.hk.Unregister()
		return err
	}
	go h.forward(h.hk.Keydown(), h.keydown)
	go h.forward(h.hk.Keyup(), h.keyup)
	go h.forward(h.esc.Keydown(), h.cancel)
	return nil
}

func (h *xHotkey) forward(from <-chan hotkey.Event, to chan struct{}) {
	for {
		select {
		case <-from:
			send(to)
		case <-h.stop:
			return
		}
	}
}

func (h *xHotkey) Unregister() {
	h.once.Do(func() {
		close(h.stop)
		h.hk.Unregister()
		h.esc.Unregister()
	})
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func (h *xHotkey) Cancel() <-chan struct{} {
	return h.cancel
}

func Diagnose() (string, error) {
	return "hotkey support available (Ctrl+Shift+Space, Ctrl+Shift+Escape)", nil
}
