// Package doctor runs interactive checks of everything an interview needs:
// the backend, the microphone with transcription, speech playback and the
// clipboard.
package doctor

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"interviewer/audio"
	"interviewer/beep"
	"interviewer/chat"
	"interviewer/clipboard"
	"interviewer/encoder"
	"interviewer/synth"
	"interviewer/transcriber"
)

type Options struct {
	Backend     *chat.Client
	Audio       audio.Context
	Transcriber transcriber.Transcriber
	Synth       synth.Synthesizer
	SynthConfig synth.Config

	// RecordFor is how long the microphone check records. Zero means 3s.
	RecordFor time.Duration
	// SkipClipboard leaves out the clipboard check (headless hosts).
	SkipClipboard bool

	In  io.Reader
	Out io.Writer
}

type checker struct {
	opts Options
	in   *bufio.Reader
	out  io.Writer
}

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	if opts.RecordFor == 0 {
		opts.RecordFor = 3 * time.Second
	}
	c := &checker{opts: opts, in: bufio.NewReader(opts.In), out: opts.Out}

	c.printf("interviewer doctor - interactive system diagnostics\n")
	c.printf("===================================================\n")

	allPass := true
	if !c.checkBackend() {
		allPass = false
	}
	if !c.checkMicAndTranscription() {
		allPass = false
	}
	if allPass && !c.checkPlayback() {
		allPass = false
	}
	if !opts.SkipClipboard {
		c.checkClipboard()
	}

	c.printf("\n")
	if allPass {
		c.printf("All checks passed!\n")
		return 0
	}
	c.printf("Some checks failed. See details above.\n")
	return 1
}

func (c *checker) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *checker) confirm(question string) bool {
	c.printf("%s [y/n]: ", question)
	answer, _ := c.in.ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func (c *checker) checkBackend() bool {
	c.printf("\n[1/4] Interview backend\n")
	if c.opts.Backend == nil {
		c.printf("  FAIL: no backend configured\n")
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	if err := c.opts.Backend.Ping(ctx); err != nil {
		c.printf("  FAIL: %s: %v\n", c.opts.Backend.BaseURL(), err)
		return false
	}
	c.printf("  PASS: %s answered in %dms\n", c.opts.Backend.BaseURL(), time.Since(start).Milliseconds())
	return true
}

func (c *checker) checkMicAndTranscription() bool {
	c.printf("\n[2/4] Microphone and transcription\n")
	if c.opts.Audio == nil {
		c.printf("  FAIL: no audio context\n")
		return false
	}
	if c.opts.Transcriber == nil {
		c.printf("  FAIL: %v\n", transcriber.ErrNoProvider)
		return false
	}

	devices, err := c.opts.Audio.Devices()
	if err != nil {
		c.printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		c.printf("  FAIL: no capture devices found\n")
		return false
	}

	device := &devices[0]
	if len(devices) > 1 {
		c.printf("\nSelect input device:\n")
		for i, d := range devices {
			c.printf("  %d. %s\n", i+1, d.Name)
		}
		c.printf("Choice [1-%d]: ", len(devices))
		choice, _ := c.in.ReadString('\n')
		idx := 0
		if choice = strings.TrimSpace(choice); choice != "" {
			fmt.Sscanf(choice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			c.printf("  FAIL: invalid choice\n")
			return false
		}
		device = &devices[idx]
	}
	c.printf("Using device: %s\n", device.Name)

	c.printf("\nPress Enter and answer for %s: what is your name?", c.opts.RecordFor)
	c.in.ReadString('\n')

	pcm, err := c.record(device)
	if err != nil {
		c.printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		c.printf("  FAIL: no audio captured\n")
		return false
	}
	c.printf("  Recorded %.1f KB (level %.3f), transcribing with %s...\n",
		float64(len(pcm))/1024, encoder.RMS(pcm), c.opts.Transcriber.Name())

	sess, err := c.opts.Transcriber.NewSession(context.Background(), transcriber.SessionConfig{Format: "flac"})
	if err != nil {
		c.printf("  FAIL: session error: %v\n", err)
		return false
	}
	sess.Feed(pcm)
	result, err := sess.Close()
	if err != nil {
		c.printf("  FAIL: transcription error: %v\n", err)
		return false
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	c.printf("\n  Transcribed text: %s\n\n", text)

	if c.confirm("Is this correct?") {
		c.printf("  PASS: transcription verified by user\n")
		return true
	}
	c.printf("  FAIL: transcription not confirmed\n")
	return false
}

func (c *checker) record(device *audio.DeviceInfo) ([]byte, error) {
	var (
		mu      sync.Mutex
		buf     []byte
		stopped bool
	)
	dev, err := c.opts.Audio.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, err
	}
	defer dev.Close()

	dev.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		defer mu.Unlock()
		if !stopped {
			buf = append(buf, data...)
		}
	})
	if err := dev.Start(); err != nil {
		return nil, err
	}

	c.printf("  Recording")
	deadline := time.After(c.opts.RecordFor)
	dots := time.NewTicker(500 * time.Millisecond)
	defer dots.Stop()
wait:
	for {
		select {
		case <-dots.C:
			c.printf(".")
		case <-deadline:
			break wait
		}
	}
	dev.Stop()
	dev.ClearCallback()
	c.printf(" done\n")

	mu.Lock()
	defer mu.Unlock()
	stopped = true
	return buf, nil
}

func (c *checker) checkPlayback() bool {
	c.printf("\n[3/4] Speech playback\n")
	if c.opts.Audio == nil {
		c.printf("  FAIL: no audio context\n")
		return false
	}
	dev, err := c.opts.Audio.NewPlayback(audio.PlaybackConfig{SampleRate: synth.SampleRate, Channels: synth.Channels})
	if err != nil {
		c.printf("  FAIL: cannot open playback: %v\n", err)
		return false
	}
	defer dev.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if c.opts.Synth == nil {
		c.printf("  No speech synthesizer configured, playing a tone instead\n")
		if err := beep.New(dev, synth.SampleRate).PlaySync(ctx, beep.Start); err != nil {
			c.printf("  FAIL: tone playback: %v\n", err)
			return false
		}
	} else {
		rc, err := c.opts.Synth.Synthesize(ctx, "This is the interviewer voice check.", c.opts.SynthConfig)
		if err != nil {
			c.printf("  FAIL: %s synthesis: %v\n", c.opts.Synth.Name(), err)
			return false
		}
		pcm, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			c.printf("  FAIL: reading synthesized audio: %v\n", err)
			return false
		}
		if err := dev.Play(ctx, bytes.NewReader(pcm)); err != nil {
			c.printf("  FAIL: playback: %v\n", err)
			return false
		}
	}

	if c.confirm("Did you hear it?") {
		c.printf("  PASS: playback verified by user\n")
		return true
	}
	c.printf("  FAIL: playback not confirmed\n")
	return false
}

// checkClipboard only warns; copying questions and code is a convenience.
func (c *checker) checkClipboard() bool {
	c.printf("\n[4/4] Clipboard\n")
	if err := clipboard.Verify(3 * time.Second); err != nil {
		c.printf("  WARN: %v\n", err)
		return false
	}
	c.printf("  PASS: clipboard write/read verified\n")
	return true
}
