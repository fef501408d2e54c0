// Package chat talks to the interview backend that produces the
// interviewer's next utterance.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"interviewer/internal/nettrace"
	"interviewer/log"
)

// ErrBackend wraps every non-2xx answer from the backend.
var ErrBackend = errors.New("backend error")

const DefaultTimeout = 60 * time.Second

type Reply struct {
	Content string
}

type Client struct {
	baseURL string
	http    *nettrace.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{baseURL: baseURL, http: nettrace.New(baseURL+"/healthz", timeout)}
}

func (c *Client) BaseURL() string { return c.baseURL }

type chatRequest struct {
	Transcript string `json:"transcript"`
}

type chatResponse struct {
	Content string `json:"content"`
}

// RequestNextTurn posts the candidate's transcript once, without retry.
// An empty transcript asks for the opening question.
func (c *Client) RequestNextTurn(ctx context.Context, transcript string) (Reply, error) {
	kind := "turn"
	if transcript == "" {
		kind = "bootstrap"
	}
	var out chatResponse
	m, err := c.post(ctx, "/api/chat", chatRequest{Transcript: transcript}, &out)
	log.Exchange(kind, m.Log(), err)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: strings.TrimSpace(out.Content)}, nil
}

type categoryRequest struct {
	Data struct {
		Topic      string `json:"topic"`
		Difficulty string `json:"difficulty"`
	} `json:"data"`
}

type categoryResponse struct {
	Message string `json:"message"`
}

// Configure tells the backend which topic and difficulty to interview on.
func (c *Client) Configure(ctx context.Context, topic, difficulty string) (string, error) {
	var req categoryRequest
	req.Data.Topic = topic
	req.Data.Difficulty = difficulty
	var out categoryResponse
	m, err := c.post(ctx, "/api/category", req, &out)
	log.Exchange("configure", m.Log(), err)
	return out.Message, err
}

// Ping checks that the backend answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach backend: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: healthz returned %d", ErrBackend, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) (*nettrace.Metrics, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Metrics, fmt.Errorf("%w: %s returned %d: %s", ErrBackend, path, resp.StatusCode, snippet(resp.Body))
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return resp.Metrics, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.Metrics, nil
}

const snippetMax = 200

// snippet trims a response body for error messages, cutting on a rune
// boundary.
func snippet(b []byte) string {
	r := []rune(strings.TrimSpace(string(b)))
	if len(r) > snippetMax {
		return string(r[:snippetMax]) + "..."
	}
	return string(r)
}
