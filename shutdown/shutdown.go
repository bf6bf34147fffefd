// Package shutdown turns termination signals into context cancellation.
package shutdown

import (
	"context"
	"os/signal"
)

// Context is cancelled when parent is, or when the process receives an
// interrupt or termination signal. A second signal falls through to the
// default handler once stop has been called.
func Context(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}
