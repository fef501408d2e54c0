// Package audio puts the platform sound server behind a small capture
// and playback interface. Linux talks to PulseAudio directly; every other
// platform goes through miniaudio.
package audio

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
)

const WAVHeaderSize = 44

const defaultDeviceName = "system default"

// wirelessHints match headsets whose microphone drops to the narrowband
// hands-free profile while audio is playing.
var wirelessHints = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000", "jabra",
	"galaxy buds", "pixel buds", "sennheiser momentum", "plantronics",
	"tozo", "soundcore", "skullcandy", "bluetooth",
}

// IsBluetooth guesses from a device name whether it is a wireless headset.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return strings.ContainsRune(" ()[]-_", r)
	})
	for _, w := range words {
		if w == "bt" || w == "jbl" {
			return true
		}
	}
	for _, hint := range wirelessHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

// PlaybackConfig describes the PCM16 little-endian stream handed to Play.
type PlaybackConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	NewPlayback(config PlaybackConfig) (PlaybackDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// PlaybackDevice renders PCM to the default output.
type PlaybackDevice interface {
	// Play blocks until pcm is exhausted and drained, or ctx is done.
	// Calls are serialized.
	Play(ctx context.Context, pcm io.Reader) error
	Close()
}

// callbackSlot holds the capture callback. The device thread reads it
// while the caller swaps it between listening windows.
type callbackSlot struct {
	cb atomic.Pointer[DataCallback]
}

func (s *callbackSlot) SetCallback(cb DataCallback) { s.cb.Store(&cb) }

func (s *callbackSlot) ClearCallback() { s.cb.Store(nil) }

func (s *callbackSlot) wanted() bool { return s.cb.Load() != nil }

func (s *callbackSlot) deliver(data []byte, frames uint32) {
	if cb := s.cb.Load(); cb != nil {
		(*cb)(data, frames)
	}
}

func deviceName(d *DeviceInfo) string {
	if d == nil {
		return defaultDeviceName
	}
	return d.Name
}

// readPCM fills buf from r. A short or empty read at the end of r sets
// done without an error; any other read failure is returned with done.
func readPCM(r io.Reader, buf []byte) (n int, done bool, err error) {
	n, err = io.ReadFull(r, buf)
	switch {
	case err == nil:
		return n, false, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, true, nil
	default:
		return n, true, err
	}
}
