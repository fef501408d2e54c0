package synth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAISynthesize(t *testing.T) {
	var got openAIRequest
	var path, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write(make([]byte, 4800))
	}))
	defer srv.Close()

	o := NewOpenAI("key", WithBaseURL(srv.URL))
	rc, err := o.Synthesize(context.Background(), "Tell me about yourself.", Config{Voice: "nova"})
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	pcm, _ := io.ReadAll(rc)

	if len(pcm) != 4800 {
		t.Errorf("read %d bytes, want 4800", len(pcm))
	}
	if path != "/audio/speech" || auth != "Bearer key" {
		t.Errorf("path=%q auth=%q", path, auth)
	}
	if got.Voice != "nova" || got.Model != ModelTTS1 || got.ResponseFormat != "pcm" || got.Speed != 1.0 {
		t.Errorf("request = %+v", got)
	}
}

func TestOpenAIDefaults(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	o := NewOpenAI("key", WithBaseURL(srv.URL), WithModel("tts-1-hd"))
	rc, err := o.Synthesize(context.Background(), "hi", Config{})
	if err != nil {
		t.Fatal(err)
	}
	rc.Close()
	if got.Voice != DefaultVoice || got.Model != "tts-1-hd" {
		t.Errorf("request = %+v", got)
	}
}

func TestOpenAIEmptyText(t *testing.T) {
	o := NewOpenAI("key", WithBaseURL("http://127.0.0.1:1"))
	if _, err := o.Synthesize(context.Background(), "", Config{}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
}

func TestOpenAIErrors(t *testing.T) {
	for _, tt := range []struct {
		name      string
		status    int
		retryable bool
		rateLimit bool
	}{
		{"unauthorized", http.StatusUnauthorized, false, false},
		{"rate limited", http.StatusTooManyRequests, true, true},
		{"server", http.StatusBadGateway, true, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope","code":"x"}}`))
			}))
			defer srv.Close()

			_, err := NewOpenAI("key", WithBaseURL(srv.URL)).Synthesize(context.Background(), "hi", Config{})
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if se.Status != tt.status || se.Retryable != tt.retryable || se.Message != "nope" {
				t.Errorf("error = %+v", se)
			}
			if errors.Is(err, ErrRateLimited) != tt.rateLimit {
				t.Errorf("rate limit mismatch: %v", err)
			}
		})
	}
}

func TestFake(t *testing.T) {
	f := NewFake()
	rc, err := f.Synthesize(context.Background(), "abc", Config{})
	if err != nil {
		t.Fatal(err)
	}
	pcm, _ := io.ReadAll(rc)
	if len(pcm) != 3*240*2 {
		t.Errorf("len = %d", len(pcm))
	}
	if got := f.Texts(); len(got) != 1 || got[0] != "abc" {
		t.Errorf("Texts = %v", got)
	}
}
