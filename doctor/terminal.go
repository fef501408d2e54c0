package doctor

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"interviewer/shutdown"
)

// PrepareTerminal makes sure an interrupt during a check restores the
// terminal before exiting. Call it before Run when answers come from a
// real terminal.
func PrepareTerminal() {
	fd := int(os.Stdin.Fd())
	var restore func()
	if term.IsTerminal(fd) {
		if st, err := term.GetState(fd); err == nil {
			restore = func() { term.Restore(fd, st) }
		}
	}

	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	go func() {
		<-sig
		if restore != nil {
			restore()
		}
		fmt.Fprintln(os.Stderr, "\nInterrupted")
		os.Exit(1)
	}()
}
