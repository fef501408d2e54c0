package speech

import (
	"context"
	"sync"
	"time"

	"interviewer/audio"
	"interviewer/log"
	"interviewer/synth"
)

// Speaker renders interviewer text through a synthesizer to a playback
// device. One utterance is active at a time.
type Speaker struct {
	parent context.Context
	synth  synth.Synthesizer
	dev    audio.PlaybackDevice
	cfg    synth.Config

	mu  sync.Mutex
	cur *utterance

	// serializes device Play calls
	playMu sync.Mutex
}

type utterance struct {
	cancel context.CancelFunc
	once   sync.Once
	done   func(error)
}

func (u *utterance) finish(err error) {
	u.once.Do(func() {
		u.cancel()
		if u.done != nil {
			u.done(err)
		}
	})
}

func NewSpeaker(ctx context.Context, s synth.Synthesizer, dev audio.PlaybackDevice, cfg synth.Config) *Speaker {
	return &Speaker{parent: ctx, synth: s, dev: dev, cfg: cfg}
}

func (s *Speaker) Speak(text string, done func(error)) {
	ctx, cancel := context.WithCancel(s.parent)
	u := &utterance{cancel: cancel, done: done}

	s.mu.Lock()
	prev := s.cur
	s.cur = u
	s.mu.Unlock()
	if prev != nil {
		prev.finish(ErrCanceled)
	}

	go s.play(ctx, u, text)
}

func (s *Speaker) play(ctx context.Context, u *utterance, text string) {
	start := time.Now()
	err := s.render(ctx, text)
	if ctx.Err() != nil {
		err = ErrCanceled
	}
	log.Playback(len(text), time.Since(start), err)

	s.mu.Lock()
	if s.cur == u {
		s.cur = nil
	}
	s.mu.Unlock()
	u.finish(err)
}

func (s *Speaker) render(ctx context.Context, text string) error {
	pcm, err := s.synth.Synthesize(ctx, text, s.cfg)
	if err != nil {
		return err
	}
	defer pcm.Close()

	s.playMu.Lock()
	defer s.playMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dev.Play(ctx, pcm)
}

func (s *Speaker) Cancel() {
	s.mu.Lock()
	u := s.cur
	s.cur = nil
	s.mu.Unlock()
	if u != nil {
		u.finish(ErrCanceled)
	}
}
