package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"interviewer/encoder"

	"nhooyr.io/websocket"
)

const deepgramListenURL = "wss://api.deepgram.com/v1/listen"

// Deepgram streams PCM over a websocket and receives incremental results.
type Deepgram struct {
	baseTranscriber
	apiKey string
	model  string
	url    string
}

func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{apiKey: apiKey, model: "nova-2", url: deepgramListenURL}
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) Streaming() bool { return true }

func (d *Deepgram) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	if cfg.Language != "" {
		d.SetLanguage(cfg.Language)
	}
	lang := d.GetLanguage()
	return newStreamSession(d.Name(), cfg.Interim, func() (upstream, error) {
		return d.startStream(ctx, lang, cfg.Interim)
	}), nil
}

type deepgramStreamResponse struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type deepgramConn struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

func (d *Deepgram) listenURL(lang string, interim bool) (string, error) {
	endpoint, err := url.Parse(d.url)
	if err != nil {
		return "", err
	}

	q := endpoint.Query()
	q.Set("model", d.model)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", fmt.Sprintf("%d", encoder.SampleRate))
	q.Set("channels", fmt.Sprintf("%d", encoder.Channels))
	q.Set("smart_format", "true")
	if interim {
		q.Set("interim_results", "true")
	}
	if lang != "" {
		q.Set("language", lang)
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

func (d *Deepgram) startStream(ctx context.Context, lang string, interim bool) (upstream, error) {
	endpoint, err := d.listenURL(lang, interim)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	streamCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(streamCtx, endpoint, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("deepgram dial: %w", err)
	}

	return &deepgramConn{conn: conn, ctx: streamCtx, cancel: cancel}, nil
}

func (s *deepgramConn) Send(pcm []byte) error {
	return s.conn.Write(s.ctx, websocket.MessageBinary, pcm)
}

func (s *deepgramConn) CloseSend() error {
	msg := []byte(`{"type":"Finalize"}`)
	return s.conn.Write(s.ctx, websocket.MessageText, msg)
}

func (s *deepgramConn) Recv() (segment, error) {
	_, data, err := s.conn.Read(s.ctx)
	if err != nil {
		return segment{}, err
	}

	var resp deepgramStreamResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return segment{}, err
	}

	transcript := ""
	if len(resp.Channel.Alternatives) > 0 {
		transcript = resp.Channel.Alternatives[0].Transcript
	}

	return segment{
		Text:    strings.TrimSpace(transcript),
		Final:   resp.IsFinal || resp.SpeechFinal,
		Flushed: resp.FromFinalize,
	}, nil
}

func (s *deepgramConn) Close() error {
	s.cancel()
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
