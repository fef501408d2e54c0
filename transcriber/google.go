package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"interviewer/encoder"
)

// Google streams PCM to Cloud Speech-to-Text over gRPC.
type Google struct {
	baseTranscriber
	client *speech.Client
}

// NewGoogle dials Cloud Speech. An empty credentialsFile falls back to
// application default credentials.
func NewGoogle(ctx context.Context, credentialsFile string) (*Google, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google speech client: %w", err)
	}
	return &Google{client: c}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Streaming() bool { return true }

func (g *Google) Close() error { return g.client.Close() }

func (g *Google) NewSession(ctx context.Context, cfg SessionConfig) (Session, error) {
	if cfg.Language != "" {
		g.SetLanguage(cfg.Language)
	}
	lang := g.GetLanguage()
	if lang == "" {
		lang = "en-US"
	}
	return newStreamSession(g.Name(), cfg.Interim, func() (upstream, error) {
		return g.startStream(ctx, lang, cfg.Interim)
	}), nil
}

func (g *Google) startStream(ctx context.Context, lang string, interim bool) (upstream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := g.client.StreamingRecognize(streamCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            encoder.SampleRate,
					AudioChannelCount:          encoder.Channels,
					LanguageCode:               lang,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: interim,
			},
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("google streaming config: %w", err)
	}
	return &googleConn{stream: stream, ctx: streamCtx, cancel: cancel}, nil
}

type googleConn struct {
	stream speechpb.Speech_StreamingRecognizeClient
	ctx    context.Context
	cancel context.CancelFunc

	// receiver goroutine only
	pending []segment
	eof     bool
}

func (s *googleConn) Send(pcm []byte) error {
	return s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: pcm,
		},
	})
}

func (s *googleConn) CloseSend() error {
	return s.stream.CloseSend()
}

// Recv flattens response results into segments. The server closes the
// stream after the last final result; that EOF is reported once as the
// finalize acknowledgement, then Recv blocks until Close.
func (s *googleConn) Recv() (segment, error) {
	for len(s.pending) == 0 {
		if s.eof {
			<-s.ctx.Done()
			return segment{}, s.ctx.Err()
		}
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.eof = true
			return segment{Flushed: true}, nil
		}
		if err != nil {
			return segment{}, err
		}
		for _, r := range resp.Results {
			if len(r.Alternatives) == 0 {
				continue
			}
			s.pending = append(s.pending, segment{
				Text:  r.Alternatives[0].Transcript,
				Final: r.IsFinal,
			})
		}
	}
	u := s.pending[0]
	s.pending = s.pending[1:]
	return u, nil
}

func (s *googleConn) Close() error {
	s.cancel()
	return nil
}
