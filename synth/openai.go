package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	openAIBaseURL   = "https://api.openai.com/v1"
	openAISpeechURL = "/audio/speech"

	ModelTTS1    = "tts-1"
	DefaultVoice = "alloy"
)

// OpenAI calls the /audio/speech endpoint with response_format=pcm,
// which is 24kHz mono PCM16.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type OpenAIOption func(*OpenAI)

// WithBaseURL points the client at a proxy or test server.
func WithBaseURL(u string) OpenAIOption {
	return func(o *OpenAI) { o.baseURL = u }
}

func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) { o.client = c }
}

func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		model:   ModelTTS1,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *OpenAI) Name() string { return "openai" }

type openAIRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (o *OpenAI) Synthesize(ctx context.Context, text string, cfg Config) (io.ReadCloser, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	model := cfg.Model
	if model == "" {
		model = o.model
	}
	speed := cfg.Speed
	if speed == 0 {
		speed = 1.0
	}

	body, err := json.Marshal(openAIRequest{
		Model:          model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: "pcm",
		Speed:          speed,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+openAISpeechURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &Error{Provider: o.Name(), Message: "request failed", Retryable: true, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, o.handleError(resp)
	}
	return resp.Body, nil
}

func (o *OpenAI) handleError(resp *http.Response) error {
	e := &Error{
		Provider:  o.Name(),
		Status:    resp.StatusCode,
		Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
	}
	var errResp openAIErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp); err == nil {
		e.Message = errResp.Error.Message
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		e.Cause = ErrRateLimited
	}
	return e
}

func httpStatus(code int) string {
	if t := http.StatusText(code); t != "" {
		return strconv.Itoa(code) + " " + t
	}
	return strconv.Itoa(code)
}
