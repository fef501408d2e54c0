package speech

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"interviewer/audio"
	"interviewer/encoder"
	"interviewer/log"
	"interviewer/transcriber"
)

// Recognizer streams microphone audio into a transcriber session per
// listening window and keeps the text buffer across windows until Reset.
type Recognizer struct {
	device audio.CaptureDevice
	tr     transcriber.Transcriber
	format string

	newDetector func() (voiceDetector, error)
	tick        time.Duration

	mu     sync.Mutex
	buffer string // finalized text not yet reset
	live   string // buffer plus the open window's text
	active *window
}

type window struct {
	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	stopped bool
}

func (w *window) close() { w.stopOnce.Do(func() { close(w.stop) }) }

// NewRecognizer returns a Recognizer. A nil device or transcriber makes
// Available report ErrCapabilityUnavailable.
func NewRecognizer(device audio.CaptureDevice, tr transcriber.Transcriber, format string) *Recognizer {
	return &Recognizer{
		device:      device,
		tr:          tr,
		format:      format,
		newDetector: newEnergyDetector,
		tick:        silenceTick,
	}
}

func (r *Recognizer) Available() error {
	if r.device == nil {
		return fmt.Errorf("%w: no microphone", ErrCapabilityUnavailable)
	}
	if r.tr == nil {
		return fmt.Errorf("%w: %v", ErrCapabilityUnavailable, transcriber.ErrNoProvider)
	}
	return nil
}

func (r *Recognizer) Start(ctx context.Context, opts CaptureOptions, ev CaptureEvents) error {
	if err := r.Available(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.active != nil {
		r.mu.Unlock()
		return ErrAlreadyListening
	}
	sess, err := r.tr.NewSession(ctx, transcriber.SessionConfig{
		Stream:   r.tr.Streaming() && opts.Continuous,
		Format:   r.format,
		Language: opts.Language,
		Interim:  opts.InterimResults,
	})
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("open transcription session: %w", err)
	}
	w := &window{stop: make(chan struct{})}
	r.active = w
	base := r.buffer
	r.mu.Unlock()

	updatesDone := make(chan struct{})
	go func() {
		defer close(updatesDone)
		for text := range sess.Updates() {
			snap := joinText(base, strings.TrimSpace(text))
			r.mu.Lock()
			r.live = snap
			r.mu.Unlock()
			if ev.OnTranscript != nil {
				ev.OnTranscript(snap)
			}
		}
	}()

	var vad voiceDetector
	if ev.OnSilence != nil {
		if vad, err = r.newDetector(); err != nil {
			log.Warnf("voice detection disabled: %v", err)
			vad = nil
		}
	}

	r.device.SetCallback(func(data []byte, _ uint32) {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.stopped || len(data) == 0 {
			return
		}
		pcm := make([]byte, len(data))
		copy(pcm, data)
		sess.Feed(pcm)
		if vad != nil {
			vad.Process(pcm)
		}
		if ev.OnLevel != nil {
			ev.OnLevel(encoder.RMS(data))
		}
	})

	if err := r.device.Start(); err != nil {
		r.device.ClearCallback()
		sess.Close()
		<-updatesDone
		r.mu.Lock()
		r.active = nil
		r.mu.Unlock()
		return fmt.Errorf("start capture: %w", err)
	}
	log.Info("listening_start")
	if vad != nil {
		go watchSilence(w.stop, ctx.Done(), r.tick, vad, ev.OnSilence)
	}

	go func() {
		select {
		case <-w.stop:
		case <-ctx.Done():
		}
		r.device.Stop()
		r.device.ClearCallback()
		w.mu.Lock()
		w.stopped = true
		w.mu.Unlock()

		res, closeErr := sess.Close()
		<-updatesDone

		r.mu.Lock()
		text := r.live
		if closeErr == nil {
			text = joinText(base, res.Text)
		} else if text == "" {
			text = base
		}
		r.buffer = text
		r.live = text
		r.active = nil
		r.mu.Unlock()

		if closeErr != nil {
			log.Errorf("transcription: %v", closeErr)
		} else {
			log.Info("listening_stop")
		}
		if ev.OnFinal != nil {
			ev.OnFinal(text, closeErr)
		}
	}()
	return nil
}

func (r *Recognizer) Stop() {
	r.mu.Lock()
	w := r.active
	r.mu.Unlock()
	if w != nil {
		w.close()
	}
}

func (r *Recognizer) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

func (r *Recognizer) Reset() {
	r.mu.Lock()
	r.buffer = ""
	r.live = ""
	r.mu.Unlock()
}

func watchSilence(stop <-chan struct{}, done <-chan struct{}, every time.Duration, vad voiceDetector, onSilence func(bool)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	mon := newSilenceMonitor()
	for {
		select {
		case <-stop:
			return
		case <-done:
			return
		case <-ticker.C:
			switch mon.Tick(vad.HasSpeechTick()) {
			case silenceWarn:
				log.Info("no_voice_detected")
				onSilence(true)
			case silenceClear:
				onSilence(false)
			}
		}
	}
}
