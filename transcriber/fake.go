package transcriber

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// FakeTranscriber returns canned text. In streaming mode the words are
// published one by one on Updates as audio arrives.
type FakeTranscriber struct {
	baseTranscriber
	text   string
	err    error
	stream bool

	mu       sync.Mutex
	sessions int
}

func NewFake(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err}
}

// NewFakeStream is NewFake with interim word-by-word updates.
func NewFakeStream(text string, err error) *FakeTranscriber {
	return &FakeTranscriber{text: text, err: err, stream: true}
}

func (f *FakeTranscriber) Name() string    { return "fake" }
func (f *FakeTranscriber) Streaming() bool { return f.stream }

// Sessions reports how many sessions were opened.
func (f *FakeTranscriber) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}

func (f *FakeTranscriber) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	f.mu.Lock()
	f.sessions++
	f.mu.Unlock()

	s := &fakeSession{
		text:    f.text,
		err:     f.err,
		updates: make(chan string, 16),
		done:    make(chan struct{}),
	}
	if f.stream && cfg.Stream {
		s.wg.Add(1)
		go s.publishWords(ctx)
	} else {
		close(s.updates)
	}
	return s, nil
}

type fakeSession struct {
	text    string
	err     error
	updates chan string
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func (s *fakeSession) publishWords(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.updates)
	var sofar []string
	for _, w := range strings.Fields(s.text) {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
		sofar = append(sofar, w)
		select {
		case s.updates <- strings.Join(sofar, " "):
		default:
		}
	}
}

func (s *fakeSession) Feed([]byte) {}

func (s *fakeSession) Updates() <-chan string { return s.updates }

func (s *fakeSession) Close() (SessionResult, error) {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	if s.err != nil {
		return SessionResult{Provider: "fake"}, fmt.Errorf("fake transcriber error: %w", s.err)
	}
	return SessionResult{
		Text:     s.text,
		Provider: "fake",
		Audio:    time.Second,
	}, nil
}
