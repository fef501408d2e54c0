package transcriber

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"interviewer/encoder"
)

func tone(seconds float64) []byte {
	n := int(seconds * encoder.SampleRate)
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/encoder.SampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func TestBaseLanguage(t *testing.T) {
	for _, tt := range []struct{ in, want string }{
		{"en-IN", "en"},
		{"pt_BR", "pt"},
		{"de", "de"},
		{"", ""},
	} {
		if got := baseLanguage(tt.in); got != tt.want {
			t.Errorf("baseLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJoinText(t *testing.T) {
	for _, tt := range []struct{ a, b, want string }{
		{"", "hello", "hello"},
		{"hello", "", "hello"},
		{"hello", "world", "hello world"},
	} {
		if got := joinText(tt.a, tt.b); got != tt.want {
			t.Errorf("joinText(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNewProviderSelection(t *testing.T) {
	ctx := context.Background()

	tr, err := New(ctx, "", Keys{Groq: "g", OpenAI: "o"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Name() != "groq" {
		t.Errorf("auto picked %q, want groq", tr.Name())
	}

	tr, err = New(ctx, "", Keys{Deepgram: "d", Groq: "g"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Name() != "deepgram" || !tr.Streaming() {
		t.Errorf("auto picked %q streaming=%v, want deepgram streaming", tr.Name(), tr.Streaming())
	}

	if _, err := New(ctx, "", Keys{}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("no keys: err = %v, want ErrNoProvider", err)
	}
	if _, err := New(ctx, "openai", Keys{Groq: "g"}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("openai without key: err = %v, want ErrNoProvider", err)
	}
	if _, err := New(ctx, "bogus", Keys{}); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestDeepgramListenURL(t *testing.T) {
	d := NewDeepgram("key")
	raw, err := d.listenURL("en-IN", true)
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	for k, want := range map[string]string{
		"model":           "nova-2",
		"encoding":        "linear16",
		"sample_rate":     "16000",
		"channels":        "1",
		"interim_results": "true",
		"language":        "en-IN",
	} {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}

	raw, _ = d.listenURL("", false)
	u, _ = url.Parse(raw)
	if u.Query().Has("interim_results") || u.Query().Has("language") {
		t.Errorf("unexpected params in %s", raw)
	}
}

func TestBatchSessionFeedAndClose(t *testing.T) {
	var gotFormat string
	var gotBytes int
	upload := func(_ context.Context, audio []byte, format string) (*Result, error) {
		gotFormat = format
		gotBytes = len(audio)
		return &Result{Text: "  tell me about goroutines  "}, nil
	}

	s, err := newBatchSession(context.Background(), "test", SessionConfig{Format: "flac"}, upload)
	if err != nil {
		t.Fatal(err)
	}
	s.Feed(tone(1))
	r, err := s.Close()
	if err != nil {
		t.Fatal(err)
	}

	if gotFormat != "flac" || gotBytes == 0 {
		t.Errorf("upload format=%q bytes=%d", gotFormat, gotBytes)
	}
	if r.Text != "tell me about goroutines" || r.Empty() {
		t.Errorf("result = %+v", r)
	}
	if r.Provider != "test" {
		t.Errorf("provider = %q", r.Provider)
	}
	if r.Audio != time.Second {
		t.Errorf("Audio = %v, want 1s", r.Audio)
	}
}

func TestBatchSessionNoAudioSkipsUpload(t *testing.T) {
	called := false
	s, err := newBatchSession(context.Background(), "test", SessionConfig{}, func(context.Context, []byte, string) (*Result, error) {
		called = true
		return &Result{}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := s.Close()
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("upload called with no audio")
	}
	if !r.Empty() {
		t.Error("expected an empty result")
	}
}

func TestBatchSessionUpdatesClosed(t *testing.T) {
	s, err := newBatchSession(context.Background(), "test", SessionConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := <-s.Updates(); ok {
		t.Error("batch updates should be closed")
	}
	if _, err := newBatchSession(context.Background(), "test", SessionConfig{Format: "ogg"}, nil); err == nil {
		t.Error("ogg upload should be rejected")
	}
}

func TestBatchSessionTranscribeError(t *testing.T) {
	boom := errors.New("upstream down")
	s, _ := newBatchSession(context.Background(), "test", SessionConfig{}, func(context.Context, []byte, string) (*Result, error) {
		return nil, boom
	})
	s.Feed(tone(0.2))
	if _, err := s.Close(); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestWhisperUpload(t *testing.T) {
	var mu sync.Mutex
	fields := map[string]string{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		auth = r.Header.Get("Authorization")
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		mu.Unlock()
		w.Header().Set("x-ratelimit-remaining-requests", "99")
		w.Header().Set("x-ratelimit-limit-requests", "100")
		w.Write([]byte(`{"text":"I would use a channel","duration":1.0}`))
	}))
	defer srv.Close()

	wh := NewGroq("secret").WithURL(srv.URL)
	s, err := wh.NewSession(context.Background(), SessionConfig{Format: "flac", Language: "en-IN"})
	if err != nil {
		t.Fatal(err)
	}
	s.Feed(tone(0.5))
	r, err := s.Close()
	if err != nil {
		t.Fatal(err)
	}

	if r.Text != "I would use a channel" {
		t.Errorf("Text = %q", r.Text)
	}
	if r.RateLimit != "99/100" {
		t.Errorf("RateLimit = %q", r.RateLimit)
	}
	mu.Lock()
	defer mu.Unlock()
	if auth != "Bearer secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if fields["model"] != "whisper-large-v3-turbo" || fields["language"] != "en" {
		t.Errorf("fields = %v", fields)
	}
}

func TestWhisperRejectsStreaming(t *testing.T) {
	wh := NewOpenAI("k").WithURL("http://127.0.0.1:1")
	if _, err := wh.NewSession(context.Background(), SessionConfig{Stream: true}); err == nil {
		t.Error("expected streaming to be rejected")
	}
}

func TestWhisperAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	wh := NewOpenAI("k").WithURL(srv.URL)
	s, _ := wh.NewSession(context.Background(), SessionConfig{})
	s.Feed(tone(0.2))
	if _, err := s.Close(); err == nil {
		t.Error("expected API error")
	}
}

// scriptedStream replays queued segments and answers CloseSend with a
// finalize result.
type scriptedStream struct {
	mu       sync.Mutex
	sent     int
	final    string
	segments chan segment
	closed   chan struct{}
	closeOne sync.Once
}

func newScriptedStream(final string, pre ...segment) *scriptedStream {
	s := &scriptedStream{
		final:    final,
		segments: make(chan segment, len(pre)+1),
		closed:   make(chan struct{}),
	}
	for _, seg := range pre {
		s.segments <- seg
	}
	return s
}

func (s *scriptedStream) Send(pcm []byte) error {
	s.mu.Lock()
	s.sent += len(pcm)
	s.mu.Unlock()
	return nil
}

func (s *scriptedStream) CloseSend() error {
	s.segments <- segment{Text: s.final, Final: true, Flushed: true}
	return nil
}

func (s *scriptedStream) Recv() (segment, error) {
	select {
	case seg := <-s.segments:
		return seg, nil
	case <-s.closed:
		return segment{}, errors.New("closed")
	}
}

func (s *scriptedStream) Close() error {
	s.closeOne.Do(func() { close(s.closed) })
	return nil
}

func TestStreamSessionCommitsFinals(t *testing.T) {
	raw := newScriptedStream("world",
		segment{Text: "hel"},
		segment{Text: "hello", Final: true},
	)
	s := newStreamSession("scripted", true, func() (upstream, error) { return raw, nil })

	pcm := tone(0.5)
	s.Feed(pcm)
	r, err := s.Close()
	if err != nil {
		t.Fatal(err)
	}
	if r.Text != "hello world" || r.Provider != "scripted" {
		t.Errorf("result = %q from %q", r.Text, r.Provider)
	}
	if r.Audio != 500*time.Millisecond {
		t.Errorf("Audio = %v, want 500ms", r.Audio)
	}

	raw.mu.Lock()
	sent := raw.sent
	raw.mu.Unlock()
	if sent != len(pcm) {
		t.Errorf("sent %d bytes, want %d", sent, len(pcm))
	}

	var last string
	for u := range s.Updates() {
		last = u
	}
	if last != "hello world" {
		t.Errorf("last update = %q", last)
	}
}

func TestStreamSessionInterimSuppressed(t *testing.T) {
	raw := newScriptedStream("", segment{Text: "partial"})
	s := newStreamSession("scripted", false, func() (upstream, error) { return raw, nil })
	r, err := s.Close()
	if err != nil {
		t.Fatal(err)
	}
	for u := range s.Updates() {
		t.Errorf("unexpected update %q", u)
	}
	if !r.Empty() {
		t.Errorf("expected an empty result, got %q", r.Text)
	}
}

func TestStreamSessionDialError(t *testing.T) {
	boom := errors.New("dial failed")
	s := newStreamSession("scripted", false, func() (upstream, error) { return nil, boom })
	s.Feed(tone(0.1))
	r, err := s.Close()
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if !r.Empty() {
		t.Error("expected an empty result on dial failure")
	}
}

func TestTranscriptApply(t *testing.T) {
	var tr transcript
	if got := tr.apply(segment{Text: "  "}, true); got != "" {
		t.Errorf("blank segment published %q", got)
	}
	if got := tr.apply(segment{Text: "tell"}, false); got != "" {
		t.Errorf("interim published %q with interim off", got)
	}
	if got := tr.apply(segment{Text: "tell me"}, true); got != "tell me" {
		t.Errorf("interim = %q", got)
	}
	if got := tr.apply(segment{Text: "tell me about", Final: true}, true); got != "tell me about" {
		t.Errorf("final = %q", got)
	}
	if got := tr.apply(segment{Text: "yourself"}, true); got != "tell me about yourself" {
		t.Errorf("interim over committed = %q", got)
	}
	if got := tr.apply(segment{Text: "yourself", Flushed: true}, false); got != "tell me about yourself" {
		t.Errorf("flushed = %q", got)
	}
	text, finals := tr.snapshot()
	if text != "tell me about yourself" || finals != 2 {
		t.Errorf("snapshot = %q, %d", text, finals)
	}
}

func TestStreamSessionSendError(t *testing.T) {
	boom := errors.New("broken pipe")
	raw := &failingStream{err: boom, closed: make(chan struct{})}
	s := newStreamSession("scripted", false, func() (upstream, error) { return raw, nil })
	s.Feed(tone(1))
	if _, err := s.Close(); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

// failingStream rejects every send.
type failingStream struct {
	err    error
	closed chan struct{}
	once   sync.Once
}

func (f *failingStream) Send([]byte) error { return f.err }
func (f *failingStream) CloseSend() error  { return nil }

func (f *failingStream) Recv() (segment, error) {
	<-f.closed
	return segment{}, errors.New("closed")
}

func (f *failingStream) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func TestFakeStreamPublishesWords(t *testing.T) {
	f := NewFakeStream("explain the event loop", nil)
	s, err := f.NewSession(context.Background(), SessionConfig{Stream: true})
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 4 {
		select {
		case u, ok := <-s.Updates():
			if !ok {
				t.Fatalf("updates closed early after %v", got)
			}
			got = append(got, u)
		case <-timeout:
			t.Fatalf("timeout, got %v", got)
		}
	}
	if got[0] != "explain" || got[3] != "explain the event loop" {
		t.Errorf("updates = %v", got)
	}

	r, err := s.Close()
	if err != nil || r.Text != "explain the event loop" {
		t.Errorf("Close = %+v, %v", r, err)
	}
	if f.Sessions() != 1 {
		t.Errorf("Sessions = %d", f.Sessions())
	}
}

func TestFakeError(t *testing.T) {
	boom := errors.New("boom")
	s, _ := NewFake("", boom).NewSession(context.Background(), SessionConfig{})
	if _, err := s.Close(); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
