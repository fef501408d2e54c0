package nettrace

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMetricsSum(t *testing.T) {
	m := &Metrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
		Download:   25 * time.Millisecond,
	}
	got := m.Sum()
	want := 195 * time.Millisecond
	if got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := FirstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := FirstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func TestDoReadsBodyAndMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.Write([]byte("pong"))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(resp.Body) != "pong" {
		t.Errorf("body = %q, want pong", resp.Body)
	}
	if resp.Header.Get("X-Test") != "yes" {
		t.Error("missing response header")
	}
	if resp.Metrics == nil || resp.Metrics.Total <= 0 {
		t.Errorf("expected positive total, got %+v", resp.Metrics)
	}

	c.Warm()
	resp, err = c.Do(req.Clone(req.Context()))
	if err != nil {
		t.Fatalf("second Do: %v", err)
	}
	if !resp.Metrics.ConnReused {
		t.Error("expected pooled connection to be reused")
	}
}

func TestLogNil(t *testing.T) {
	var m *Metrics
	if m.Log() != nil {
		t.Error("nil metrics should map to nil")
	}
}
