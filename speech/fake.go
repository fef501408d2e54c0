package speech

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeCapture is a scripted Capture. Tests "speak" into an open window
// with Say; Stop delivers the buffer through OnFinal asynchronously.
type FakeCapture struct {
	// FinalErr, when set, is reported by the next OnFinal.
	FinalErr error

	mu          sync.Mutex
	unavailable string
	listening   bool
	ev          CaptureEvents
	buffer      string
	starts      int
	stops       int
}

func NewFakeCapture() *FakeCapture { return &FakeCapture{} }

// SetUnavailable makes Available fail with reason.
func (f *FakeCapture) SetUnavailable(reason string) {
	f.mu.Lock()
	f.unavailable = reason
	f.mu.Unlock()
}

func (f *FakeCapture) Available() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable != "" {
		return fmt.Errorf("%w: %s", ErrCapabilityUnavailable, f.unavailable)
	}
	return nil
}

func (f *FakeCapture) Start(_ context.Context, _ CaptureOptions, ev CaptureEvents) error {
	if err := f.Available(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listening {
		return ErrAlreadyListening
	}
	f.listening = true
	f.ev = ev
	f.starts++
	return nil
}

// Say appends text to the buffer while listening and reports false when
// no window is open.
func (f *FakeCapture) Say(text string) bool {
	f.mu.Lock()
	if !f.listening {
		f.mu.Unlock()
		return false
	}
	f.buffer = joinText(f.buffer, text)
	snap, ev := f.buffer, f.ev
	f.mu.Unlock()
	if ev.OnLevel != nil {
		ev.OnLevel(0.2)
	}
	if ev.OnTranscript != nil {
		ev.OnTranscript(snap)
	}
	return true
}

// Silence fires OnSilence while listening and reports false when no
// window is open.
func (f *FakeCapture) Silence(silent bool) bool {
	f.mu.Lock()
	listening, ev := f.listening, f.ev
	f.mu.Unlock()
	if !listening {
		return false
	}
	if ev.OnSilence != nil {
		ev.OnSilence(silent)
	}
	return true
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.listening {
		f.mu.Unlock()
		return
	}
	f.listening = false
	f.stops++
	text, ev, err := f.buffer, f.ev, f.FinalErr
	f.FinalErr = nil
	f.mu.Unlock()
	if ev.OnFinal != nil {
		go ev.OnFinal(text, err)
	}
}

func (f *FakeCapture) Transcript() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buffer
}

func (f *FakeCapture) Reset() {
	f.mu.Lock()
	f.buffer = ""
	f.mu.Unlock()
}

func (f *FakeCapture) Listening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening
}

// Counts returns how many windows were started and stopped.
func (f *FakeCapture) Counts() (starts, stops int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

// FakePlayback records utterances. With a zero delay they stay active
// until Finish or Cancel; otherwise each finishes on its own after delay.
type FakePlayback struct {
	delay time.Duration

	mu      sync.Mutex
	cur     *fakeUtterance
	spoken  []string
	cancels int
	err     error
}

type fakeUtterance struct {
	text string
	once sync.Once
	done func(error)
}

func (u *fakeUtterance) finish(err error) {
	u.once.Do(func() {
		if u.done != nil {
			u.done(err)
		}
	})
}

func NewFakePlayback(delay time.Duration) *FakePlayback {
	return &FakePlayback{delay: delay}
}

// FailNext makes the next auto-finished utterance report err.
func (f *FakePlayback) FailNext(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *FakePlayback) Speak(text string, done func(error)) {
	u := &fakeUtterance{text: text, done: done}
	f.mu.Lock()
	prev := f.cur
	f.cur = u
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	if prev != nil {
		prev.finish(ErrCanceled)
	}
	if f.delay > 0 {
		time.AfterFunc(f.delay, func() {
			f.mu.Lock()
			if f.cur != u {
				f.mu.Unlock()
				return
			}
			f.cur = nil
			err := f.err
			f.err = nil
			f.mu.Unlock()
			u.finish(err)
		})
	}
}

// Finish completes the active utterance with err and reports whether
// one was active.
func (f *FakePlayback) Finish(err error) bool {
	f.mu.Lock()
	u := f.cur
	f.cur = nil
	f.mu.Unlock()
	if u == nil {
		return false
	}
	u.finish(err)
	return true
}

func (f *FakePlayback) Cancel() {
	f.mu.Lock()
	u := f.cur
	f.cur = nil
	f.cancels++
	f.mu.Unlock()
	if u != nil {
		u.finish(ErrCanceled)
	}
}

func (f *FakePlayback) Speaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur != nil
}

func (f *FakePlayback) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *FakePlayback) Cancels() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}
