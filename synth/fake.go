package synth

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Fake renders a fixed number of silent samples per character.
type Fake struct {
	SamplesPerChar int
	Err            error

	mu    sync.Mutex
	texts []string
}

func NewFake() *Fake {
	return &Fake{SamplesPerChar: 240}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Synthesize(_ context.Context, text string, _ Config) (io.ReadCloser, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	pcm := make([]byte, len(text)*f.SamplesPerChar*2)
	return io.NopCloser(bytes.NewReader(pcm)), nil
}

// Texts returns every text passed to Synthesize, in order.
func (f *Fake) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}
