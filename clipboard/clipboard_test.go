package clipboard

import (
	"errors"
	"testing"

	cb "github.com/atotto/clipboard"
)

func TestUnsupportedHost(t *testing.T) {
	if !cb.Unsupported {
		t.Skip("clipboard utility present")
	}
	if err := Copy("x"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Copy: %v", err)
	}
	if _, err := Read(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Read: %v", err)
	}
	if err := Verify(0); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Verify: %v", err)
	}
}
