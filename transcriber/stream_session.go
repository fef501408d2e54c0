package transcriber

import (
	"bytes"
	"strings"
	"sync"
	"time"

	"interviewer/encoder"
	"interviewer/log"
)

const (
	streamChunkMs      = 200
	streamChunkBytes   = encoder.BytesPerSecond * streamChunkMs / 1000
	streamFinalizeIdle = 200 * time.Millisecond
	streamFinalizeMax  = time.Second
	streamDrainMax     = 2 * time.Second
)

// upstream is one provider connection carrying PCM up and recognition
// segments down.
type upstream interface {
	Send(pcm []byte) error
	// CloseSend asks the provider to flush whatever it still holds.
	CloseSend() error
	Recv() (segment, error)
	Close() error
}

type segment struct {
	Text  string
	Final bool
	// Flushed marks the provider's answer to CloseSend.
	Flushed bool
}

// transcript accumulates final segments. Interim text is shown on top of
// the committed prefix but never stored.
type transcript struct {
	mu        sync.Mutex
	committed string
	finals    int
}

// apply folds seg in and returns the text to publish, or "" when there is
// nothing new to show.
func (t *transcript) apply(seg segment, interim bool) string {
	text := strings.TrimSpace(seg.Text)
	if text == "" {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !seg.Final && !seg.Flushed {
		if !interim {
			return ""
		}
		return joinText(t.committed, text)
	}
	t.committed = joinText(t.committed, text)
	t.finals++
	return t.committed
}

func (t *transcript) snapshot() (string, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed, t.finals
}

// streamSession forwards PCM in fixed chunks while the provider answers
// with segments. Dialing happens in the background so the first Feed
// never waits on the network.
type streamSession struct {
	provider string
	interim  bool
	conn     upstream
	ready    chan struct{} // closed once dialing returned

	chunks   chan []byte
	sent     chan struct{}
	received chan struct{}
	flushed  chan struct{}
	flush    sync.Once

	pendMu  sync.Mutex
	pending []byte

	text transcript

	mu        sync.Mutex
	updates   chan string
	published bool // updates closed
	closing   bool
	err       error
	connect   time.Duration
	sentBytes int
}

func newStreamSession(provider string, interim bool, dial func() (upstream, error)) *streamSession {
	s := &streamSession{
		provider: provider,
		interim:  interim,
		ready:    make(chan struct{}),
		chunks:   make(chan []byte, 128),
		sent:     make(chan struct{}),
		received: make(chan struct{}),
		flushed:  make(chan struct{}),
		updates:  make(chan string, 16),
	}
	go s.dial(dial)
	return s
}

func (s *streamSession) dial(dial func() (upstream, error)) {
	start := time.Now()
	conn, err := dial()
	s.mu.Lock()
	s.connect = time.Since(start)
	s.mu.Unlock()
	if err != nil {
		s.fail(err)
		close(s.sent)
		close(s.received)
		close(s.ready)
		return
	}
	s.conn = conn
	close(s.ready)
	go s.send()
	go s.receive()
}

func (s *streamSession) Feed(pcm []byte) {
	if s.failure() != nil {
		return
	}
	for _, chunk := range s.split(pcm) {
		select {
		case s.chunks <- chunk:
		case <-s.sent:
			return
		}
	}
}

func (s *streamSession) split(pcm []byte) [][]byte {
	s.pendMu.Lock()
	defer s.pendMu.Unlock()
	s.pending = append(s.pending, pcm...)
	var out [][]byte
	for len(s.pending) >= streamChunkBytes {
		out = append(out, bytes.Clone(s.pending[:streamChunkBytes]))
		s.pending = s.pending[streamChunkBytes:]
	}
	return out
}

func (s *streamSession) rest() []byte {
	s.pendMu.Lock()
	defer s.pendMu.Unlock()
	rest := s.pending
	s.pending = nil
	return rest
}

func (s *streamSession) Updates() <-chan string { return s.updates }

func (s *streamSession) Close() (SessionResult, error) {
	<-s.ready
	if s.conn == nil {
		s.rest()
		close(s.chunks)
		s.closeUpdates("")
		return SessionResult{Provider: s.provider}, s.failure()
	}

	if tail := s.rest(); len(tail) > 0 {
		select {
		case s.chunks <- tail:
		case <-s.sent:
		}
	}
	close(s.chunks)
	flushStart := time.Now()
	<-s.sent

	// Wait for the flush answer, then a short quiet period for stragglers.
	select {
	case <-s.flushed:
		time.Sleep(streamFinalizeIdle)
	case <-time.After(streamFinalizeMax):
	}
	finalize := time.Since(flushStart)

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.conn.Close()
	select {
	case <-s.received:
	case <-time.After(streamDrainMax):
		log.Warnf("%s: receiver did not stop after close", s.provider)
	}

	text, finals := s.text.snapshot()
	// The last publish may have been dropped on a full channel.
	s.closeUpdates(text)

	s.mu.Lock()
	err := s.err
	sentBytes := s.sentBytes
	connect := s.connect
	s.mu.Unlock()

	res := SessionResult{Text: text, Provider: s.provider, Audio: audioDuration(sentBytes)}
	log.Transcription(log.TranscriptionStats{
		Provider: s.provider,
		Mode:     "stream",
		Audio:    res.Audio,
		SentKB:   float64(sentBytes) / 1024,
		Connect:  connect,
		Finalize: finalize,
		Finals:   finals,
		Err:      err,
	})
	return res, err
}

func (s *streamSession) send() {
	defer close(s.sent)
	for chunk := range s.chunks {
		if err := s.conn.Send(chunk); err != nil {
			s.fail(err)
			return
		}
		s.mu.Lock()
		s.sentBytes += len(chunk)
		s.mu.Unlock()
	}
	if err := s.conn.CloseSend(); err != nil {
		s.fail(err)
	}
}

func (s *streamSession) receive() {
	defer close(s.received)
	for {
		seg, err := s.conn.Recv()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing {
				s.fail(err)
			}
			return
		}
		if seg.Flushed {
			s.flush.Do(func() { close(s.flushed) })
		}
		if text := s.text.apply(seg, s.interim); text != "" {
			s.publish(text)
		}
	}
}

// publish never blocks; consumers only care about the latest text.
func (s *streamSession) publish(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.published {
		return
	}
	select {
	case s.updates <- text:
	default:
	}
}

func (s *streamSession) closeUpdates(final string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if final != "" {
		select {
		case s.updates <- final:
		default:
		}
	}
	s.published = true
	close(s.updates)
}

func (s *streamSession) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// fail keeps the first error and tears the connection down.
func (s *streamSession) fail(err error) {
	s.mu.Lock()
	first := s.err == nil
	if first {
		s.err = err
	}
	s.mu.Unlock()
	if first && s.conn != nil {
		s.conn.Close()
	}
}
