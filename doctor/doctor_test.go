package doctor

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"interviewer/audio"
	"interviewer/chat"
	"interviewer/synth"
	"interviewer/transcriber"
)

func healthyBackend(t *testing.T) *chat.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return chat.New(srv.URL, time.Second)
}

func baseOptions(t *testing.T, answers string) (Options, *bytes.Buffer, *audio.FakeContext) {
	out := &bytes.Buffer{}
	actx := audio.NewFakeContext(make([]byte, 8192), false)
	return Options{
		Backend:       healthyBackend(t),
		Audio:         actx,
		Transcriber:   transcriber.NewFake("my name is Ada", nil),
		Synth:         synth.NewFake(),
		RecordFor:     50 * time.Millisecond,
		SkipClipboard: true,
		In:            strings.NewReader(answers),
		Out:           out,
	}, out, actx
}

func TestRunAllPass(t *testing.T) {
	opts, out, actx := baseOptions(t, "\ny\ny\n")
	if code := Run(opts); code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	for _, want := range []string{"my name is Ada", "PASS: transcription verified", "PASS: playback verified", "All checks passed!"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if calls, _ := actx.Playback.Stats(); calls != 1 {
		t.Errorf("playback calls = %d, want 1", calls)
	}
}

func TestRunBackendDown(t *testing.T) {
	opts, out, _ := baseOptions(t, "\ny\ny\n")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	opts.Backend = chat.New(srv.URL, time.Second)

	if code := Run(opts); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "FAIL: "+srv.URL) {
		t.Errorf("missing backend failure:\n%s", out)
	}
}

func TestRunTranscriptionNotConfirmed(t *testing.T) {
	opts, out, actx := baseOptions(t, "\nn\n")
	if code := Run(opts); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "FAIL: transcription not confirmed") {
		t.Errorf("output:\n%s", out)
	}
	if calls, _ := actx.Playback.Stats(); calls != 0 {
		t.Errorf("playback ran after a failed check")
	}
}

func TestRunTranscriptionError(t *testing.T) {
	opts, out, _ := baseOptions(t, "\n")
	opts.Transcriber = transcriber.NewFake("", errors.New("quota exceeded"))
	if code := Run(opts); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "quota exceeded") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRunNoTranscriber(t *testing.T) {
	opts, out, _ := baseOptions(t, "")
	opts.Transcriber = nil
	if code := Run(opts); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), transcriber.ErrNoProvider.Error()) {
		t.Errorf("output:\n%s", out)
	}
}

func TestPlaybackFallsBackToTone(t *testing.T) {
	opts, out, actx := baseOptions(t, "\ny\ny\n")
	opts.Synth = nil
	if code := Run(opts); code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out)
	}
	if !strings.Contains(out.String(), "playing a tone instead") {
		t.Errorf("output:\n%s", out)
	}
	if _, n := actx.Playback.Stats(); n == 0 {
		t.Error("tone not played")
	}
}
