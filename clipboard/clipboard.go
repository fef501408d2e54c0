// Package clipboard copies interview text to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

// ErrUnsupported means no clipboard utility is installed.
var ErrUnsupported = errors.New("no clipboard utility found (install xclip, xsel or wl-clipboard)")

// ErrTimeout is returned by Verify when the clipboard utility hangs.
var ErrTimeout = errors.New("clipboard timed out")

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	return cb.WriteAll(text)
}

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	return cb.ReadAll()
}

// Verify writes a probe, reads it back and restores the previous content.
func Verify(timeout time.Duration) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	previous, _ := cb.ReadAll()
	probe := fmt.Sprintf("interviewer-doctor-%d", time.Now().UnixNano())

	ch := make(chan error, 1)
	go func() {
		if err := cb.WriteAll(probe); err != nil {
			ch <- err
			return
		}
		got, err := cb.ReadAll()
		if err == nil && got != probe {
			err = fmt.Errorf("clipboard mismatch: wrote %q, got %q", probe, got)
		}
		ch <- err
	}()

	select {
	case err := <-ch:
		if previous != "" {
			cb.WriteAll(previous)
		}
		return err
	case <-time.After(timeout):
		return ErrTimeout
	}
}
