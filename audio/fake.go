package audio

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"interviewer/encoder"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays fixed PCM as microphone input and swallows playback.
type FakeContext struct {
	pcm      []byte
	realtime bool

	// Playback is shared by every NewPlayback call so tests can inspect it.
	Playback *FakePlayback
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime, Playback: &FakePlayback{Realtime: realtime}}
}

func NewFakeContextFromWAV(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return NewFakeContext(data, realtime), nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewPlayback(config PlaybackConfig) (PlaybackDevice, error) {
	f.Playback.mu.Lock()
	f.Playback.config = config
	f.Playback.mu.Unlock()
	return f.Playback, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm, realtime: f.realtime}, nil
}

// FakeCapture feeds its PCM to the callback once per Start, then silence
// until Stop.
type FakeCapture struct {
	pcm      []byte
	realtime bool

	mu        sync.Mutex
	cb        DataCallback
	stopCh    chan struct{}
	feedDone  chan struct{}
	audioDone chan struct{}
}

// AudioDone is closed once the current Start has delivered all of its PCM.
func (f *FakeCapture) AudioDone() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.audioDone == nil {
		f.audioDone = make(chan struct{})
	}
	return f.audioDone
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) callback() DataCallback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	if f.stopCh != nil {
		f.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	feedDone := make(chan struct{})
	if f.audioDone == nil {
		f.audioDone = make(chan struct{})
	}
	audioDone := f.audioDone
	f.stopCh, f.feedDone = stop, feedDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(fakeFrameSize) * time.Second / time.Duration(encoder.SampleRate)
	}

	go func() {
		defer close(feedDone)
		silence := make([]byte, chunkBytes)
		pos := 0
		finished := false
		for {
			advanced := false
			if cb := f.callback(); cb != nil {
				if pos < len(f.pcm) {
					advanced = true
					end := min(pos+chunkBytes, len(f.pcm))
					chunk := make([]byte, end-pos)
					copy(chunk, f.pcm[pos:end])
					cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
					pos = end
				} else {
					cb(silence, fakeFrameSize)
				}
			}
			if pos >= len(f.pcm) && !finished {
				finished = true
				close(audioDone)
			}
			if !f.realtime && advanced {
				select {
				case <-stop:
					return
				default:
				}
				continue
			}
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stop, feedDone := f.stopCh, f.feedDone
	f.stopCh, f.feedDone = nil, nil
	f.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-feedDone
	f.mu.Lock()
	f.audioDone = nil // reset for replay
	f.mu.Unlock()
}

func (f *FakeCapture) Close() { f.Stop() }

// FakePlayback consumes PCM without a sound device. With Realtime set,
// Play takes as long as the audio would.
type FakePlayback struct {
	Realtime bool
	Err      error

	mu     sync.Mutex
	config PlaybackConfig
	calls  int
	bytes  int
}

func (p *FakePlayback) Play(ctx context.Context, pcm io.Reader) error {
	n, err := io.Copy(io.Discard, pcm)
	p.mu.Lock()
	p.calls++
	p.bytes += int(n)
	rate := p.config.SampleRate * max(p.config.Channels, 1) * 2
	p.mu.Unlock()
	if err != nil {
		return err
	}
	if p.Realtime && rate > 0 {
		select {
		case <-time.After(time.Duration(n) * time.Second / time.Duration(rate)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Err
}

func (p *FakePlayback) Close() {}

// Stats returns the number of Play calls and total bytes consumed.
func (p *FakePlayback) Stats() (calls, bytes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls, p.bytes
}
