package shutdown

import (
	"context"
	"os"
	"testing"
)

func TestSignalsIncludeInterrupt(t *testing.T) {
	for _, s := range Signals() {
		if s == os.Interrupt {
			return
		}
	}
	t.Fatal("os.Interrupt missing")
}

func TestContextCancelsWithParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := Context(parent)
	defer stop()
	cancel()
	<-ctx.Done()
}
