package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"interviewer/encoder"
	"interviewer/log"
)

type uploadFunc func(ctx context.Context, audio []byte, format string) (*Result, error)

// batchSession records the whole answer and uploads it once on Close.
type batchSession struct {
	ctx      context.Context
	provider string
	format   string
	upload   uploadFunc
	updates  chan string

	mu  sync.Mutex
	pcm bytes.Buffer
}

func newBatchSession(ctx context.Context, provider string, cfg SessionConfig, upload uploadFunc) (*batchSession, error) {
	format := cfg.Format
	if format == "" {
		format = "flac"
	}
	if !encoder.Supported(format) {
		return nil, fmt.Errorf("%s: unsupported upload format %q", provider, format)
	}
	updates := make(chan string)
	close(updates)
	return &batchSession{
		ctx:      ctx,
		provider: provider,
		format:   format,
		upload:   upload,
		updates:  updates,
	}, nil
}

func (bs *batchSession) Feed(pcm []byte) {
	bs.mu.Lock()
	bs.pcm.Write(pcm)
	bs.mu.Unlock()
}

// Updates is closed from the start: batch providers only answer once.
func (bs *batchSession) Updates() <-chan string { return bs.updates }

func (bs *batchSession) Close() (SessionResult, error) {
	bs.mu.Lock()
	pcm := bs.pcm.Bytes()
	bs.mu.Unlock()

	res := SessionResult{Provider: bs.provider, Audio: audioDuration(len(pcm))}
	if len(pcm) < 2 {
		return res, nil
	}

	start := time.Now()
	audio, err := encoder.Encode(bs.format, pcm)
	encodeTook := time.Since(start)
	if err != nil {
		return res, err
	}

	out, err := bs.upload(bs.ctx, audio, bs.format)
	st := log.TranscriptionStats{
		Provider: bs.provider,
		Mode:     "batch",
		Audio:    res.Audio,
		SentKB:   float64(len(audio)) / 1024,
		Encode:   encodeTook,
		Err:      err,
	}
	if err != nil {
		log.Transcription(st)
		return res, err
	}

	res.Text = strings.TrimSpace(out.Text)
	res.RateLimit = out.RateLimit
	res.Network = out.Metrics
	st.RateLimit = out.RateLimit
	st.Network = out.Metrics.Log()
	log.Transcription(st)
	return res, nil
}
