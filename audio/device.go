package audio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

type pickAction int

const (
	pickNone pickAction = iota
	pickConfirm
	pickAbort
)

// pickKey applies one terminal key sequence to the picker cursor.
func pickKey(cursor, n int, key []byte) (int, pickAction) {
	switch {
	case len(key) == 1:
		switch key[0] {
		case 13: // Enter
			return cursor, pickConfirm
		case 3, 'q': // Ctrl+C
			return cursor, pickAbort
		case 'j':
			return min(cursor+1, n-1), pickNone
		case 'k':
			return max(cursor-1, 0), pickNone
		}
	case len(key) == 3 && key[0] == 0x1b && key[1] == '[':
		switch key[2] {
		case 'A':
			return max(cursor-1, 0), pickNone
		case 'B':
			return min(cursor+1, n-1), pickNone
		}
	}
	return cursor, pickNone
}

// SelectDevice presents an interactive microphone picker. With a single
// device it returns that device without prompting. A nil device and nil
// error mean the user backed out and the system default should be used.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}

	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}

	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	renderList := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select the microphone for the interview (↑/↓, Enter to confirm, q for default):\r\n\r\n")
		for i, d := range devices {
			btTag := ""
			if IsBluetooth(d.Name) {
				btTag = " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, btTag)
			} else {
				fmt.Printf("    %s%s\r\n", d.Name, btTag)
			}
		}
	}

	renderList()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		var action pickAction
		cursor, action = pickKey(cursor, len(devices), buf[:n])
		switch action {
		case pickConfirm:
			fmt.Print("\r\n")
			return &devices[cursor], nil
		case pickAbort:
			fmt.Print("\r\n")
			return nil, nil
		}

		fmt.Printf("\x1b[%dA", len(devices)+2)
		renderList()
	}
}
