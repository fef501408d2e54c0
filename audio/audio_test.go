package audio

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"
)

func TestIsBluetooth(t *testing.T) {
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"AirPods Pro", true},
		{"Jabra Evolve2 65", true},
		{"JBL Tune 510BT", true},
		{"JBL Flip", true},
		{"Headset (BT)", true},
		{"Subtitle Mic", false},
		{"Built-in Microphone", false},
		{"USB Audio Device", false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBluetooth(tt.name); got != tt.want {
				t.Errorf("IsBluetooth(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestReadPCM(t *testing.T) {
	buf := make([]byte, 4)
	n, done, err := readPCM(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}), buf)
	if n != 4 || done || err != nil {
		t.Errorf("full read = (%d, %v, %v)", n, done, err)
	}

	n, done, err = readPCM(bytes.NewReader([]byte{1, 2}), buf)
	if n != 2 || !done || err != nil {
		t.Errorf("short read = (%d, %v, %v)", n, done, err)
	}

	boom := errors.New("boom")
	_, done, err = readPCM(iotest.ErrReader(boom), buf)
	if !done || !errors.Is(err, boom) {
		t.Errorf("failed read = (%v, %v)", done, err)
	}
}

func TestCallbackSlot(t *testing.T) {
	var slot callbackSlot
	slot.deliver([]byte{1}, 1) // no callback set

	var frames uint32
	slot.SetCallback(func(_ []byte, n uint32) { frames += n })
	if !slot.wanted() {
		t.Fatal("callback not stored")
	}
	slot.deliver([]byte{1, 0}, 1)
	slot.ClearCallback()
	slot.deliver([]byte{1, 0}, 1)
	if frames != 1 {
		t.Errorf("frames = %d, want 1", frames)
	}
	if deviceName(nil) != defaultDeviceName {
		t.Errorf("deviceName(nil) = %q", deviceName(nil))
	}
}

func TestPickKey(t *testing.T) {
	for _, tt := range []struct {
		name       string
		cursor     int
		key        []byte
		wantCursor int
		wantAction pickAction
	}{
		{"down", 0, []byte("j"), 1, pickNone},
		{"down clamps", 2, []byte("j"), 2, pickNone},
		{"up clamps", 0, []byte("k"), 0, pickNone},
		{"arrow up", 2, []byte{0x1b, '[', 'A'}, 1, pickNone},
		{"arrow down", 1, []byte{0x1b, '[', 'B'}, 2, pickNone},
		{"enter", 1, []byte{13}, 1, pickConfirm},
		{"ctrl-c", 1, []byte{3}, 1, pickAbort},
		{"other", 1, []byte("x"), 1, pickNone},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cursor, action := pickKey(tt.cursor, 3, tt.key)
			if cursor != tt.wantCursor || action != tt.wantAction {
				t.Errorf("pickKey = (%d, %v), want (%d, %v)", cursor, action, tt.wantCursor, tt.wantAction)
			}
		})
	}
}

func TestFakeCaptureFeedsPCM(t *testing.T) {
	pcm := bytes.Repeat([]byte{1, 0}, fakeFrameSize*3)
	ctx := NewFakeContext(pcm, false)
	dev, err := ctx.NewCapture(nil, CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	fc := dev.(*FakeCapture)

	var got atomic.Int64
	fc.SetCallback(func(data []byte, _ uint32) {
		if data[0] == 1 {
			got.Add(int64(len(data)))
		}
	})
	if err := fc.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-fc.AudioDone():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for audio done")
	}
	fc.Stop()
	fc.Stop() // idempotent

	if got.Load() != int64(len(pcm)) {
		t.Errorf("fed %d bytes, want %d", got.Load(), len(pcm))
	}
}

func TestFakeCaptureStopWithoutStart(t *testing.T) {
	fc := &FakeCapture{}
	fc.Stop() // should not panic or block
}

func TestFakePlayback(t *testing.T) {
	ctx := NewFakeContext(nil, false)
	pb, err := ctx.NewPlayback(PlaybackConfig{SampleRate: 24000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := pb.Play(context.Background(), bytes.NewReader(make([]byte, 480))); err != nil {
		t.Fatalf("Play: %v", err)
	}
	calls, n := ctx.Playback.Stats()
	if calls != 1 || n != 480 {
		t.Errorf("Stats = (%d, %d), want (1, 480)", calls, n)
	}
}

func TestFakePlaybackRealtimeCancel(t *testing.T) {
	ctx := NewFakeContext(nil, true)
	pb, _ := ctx.NewPlayback(PlaybackConfig{SampleRate: 24000, Channels: 1})

	cctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		// ten seconds of audio
		done <- pb.Play(cctx, bytes.NewReader(make([]byte, 24000*2*10)))
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Play err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Play did not return after cancel")
	}
}
