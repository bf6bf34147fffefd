package hotkey

// Hotkey reports presses of the global record chord (Ctrl+Shift+Space)
// and of the cancel chord (Ctrl+Shift+Escape).
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
	Cancel() <-chan struct{}
}

func send(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
