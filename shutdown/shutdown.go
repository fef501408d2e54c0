// Package shutdown wires process signals to graceful exits.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

// Signals returns the signals that end the process on this platform.
func Signals() []os.Signal {
	if runtime.GOOS == "windows" {
		return []os.Signal{os.Interrupt}
	}
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

// Notify relays termination signals to ch.
func Notify(ch chan<- os.Signal) {
	signal.Notify(ch, Signals()...)
}

// Context is canceled on the first termination signal.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, Signals()...)
}
