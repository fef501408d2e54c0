package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"interviewer/internal/nettrace"
)

const (
	groqTranscriptionsURL   = "https://api.groq.com/openai/v1/audio/transcriptions"
	openaiTranscriptionsURL = "https://api.openai.com/v1/audio/transcriptions"
)

// Whisper is a batch transcriber for OpenAI-compatible
// /audio/transcriptions endpoints. The answer is recorded in full, then
// FLAC-encoded and uploaded once on Close.
type Whisper struct {
	baseTranscriber
	name           string
	apiURL         string
	apiKey         string
	model          string
	responseFormat string
	client         *nettrace.Client
}

func NewGroq(apiKey string) *Whisper {
	return newWhisper("groq", groqTranscriptionsURL, apiKey, "whisper-large-v3-turbo", "verbose_json")
}

func NewOpenAI(apiKey string) *Whisper {
	return newWhisper("openai", openaiTranscriptionsURL, apiKey, "gpt-4o-transcribe", "json")
}

func newWhisper(name, apiURL, apiKey, model, responseFormat string) *Whisper {
	return &Whisper{
		name:           name,
		apiURL:         apiURL,
		apiKey:         apiKey,
		model:          model,
		responseFormat: responseFormat,
		client:         nettrace.New(apiURL, 60*time.Second),
	}
}

// WithURL points the transcriber at another endpoint.
func (w *Whisper) WithURL(apiURL string) *Whisper {
	w.apiURL = apiURL
	w.client = nettrace.New(apiURL, 60*time.Second)
	return w
}

func (w *Whisper) Name() string { return w.name }

func (w *Whisper) Streaming() bool { return false }

func (w *Whisper) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	go w.client.Warm()
	if cfg.Stream {
		return nil, fmt.Errorf("%s does not support streaming transcription", w.name)
	}
	if cfg.Language != "" {
		w.SetLanguage(cfg.Language)
	}
	bs, err := newBatchSession(ctx, w.name, cfg, w.upload)
	if err != nil {
		return nil, err
	}
	return bs, nil
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

func (w *Whisper) upload(ctx context.Context, audioData []byte, format string) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, err
	}

	writer.WriteField("model", w.model)
	writer.WriteField("response_format", w.responseFormat)
	if w.lang != "" {
		// whisper accepts ISO-639-1 only
		writer.WriteField("language", baseLanguage(w.lang))
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, &body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error %d: %s", w.name, resp.StatusCode, string(resp.Body))
	}

	var wResp whisperResponse
	if err := json.Unmarshal(resp.Body, &wResp); err != nil {
		return nil, fmt.Errorf("%s response parse error: %w", w.name, err)
	}

	remaining := nettrace.FirstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := nettrace.FirstNonEmpty(resp.Header, "x-ratelimit-limit-requests")

	return &Result{
		Text:      wResp.Text,
		Metrics:   resp.Metrics,
		RateLimit: remaining + "/" + limit,
		Duration:  wResp.Duration,
	}, nil
}
