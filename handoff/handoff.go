// Package handoff publishes finished interview sessions for the
// feedback pipeline.
package handoff

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"interviewer/log"
	"interviewer/session"
)

type Config struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// Recorder receives publish outcomes. metrics.Metrics implements it.
type Recorder interface {
	RecordHandoff(err error, d time.Duration)
}

// Publisher writes one message per finished session, keyed by session
// ID. Without brokers it only logs.
type Publisher struct {
	writer   *kafka.Writer
	topic    string
	enabled  bool
	recorder Recorder
}

func New(cfg Config, rec Recorder) *Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info("handoff: kafka disabled, log-only mode")
		return &Publisher{topic: cfg.Topic, recorder: rec}
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{DialTimeout: 10 * time.Second},
	}
	l := log.Logger()
	l.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("handoff publisher initialized")
	return &Publisher{writer: w, topic: cfg.Topic, enabled: true, recorder: rec}
}

type TurnEvent struct {
	Index      int       `json:"index"`
	Speaker    string    `json:"speaker"`
	Text       string    `json:"text"`
	ProducedAt time.Time `json:"produced_at"`
}

// Event is the wire form of a finished session.
type Event struct {
	SessionID      string      `json:"session_id"`
	Reason         string      `json:"reason"`
	StartedAt      time.Time   `json:"started_at"`
	ElapsedSeconds int         `json:"elapsed_seconds"`
	Turns          []TurnEvent `json:"turns"`
}

func NewEvent(s session.Summary) Event {
	ev := Event{
		SessionID:      s.ID,
		Reason:         s.Reason,
		StartedAt:      s.StartedAt,
		ElapsedSeconds: s.Elapsed,
		Turns:          make([]TurnEvent, 0, len(s.Turns)),
	}
	for _, t := range s.Turns {
		ev.Turns = append(ev.Turns, TurnEvent{
			Index:      t.Index,
			Speaker:    t.Speaker.String(),
			Text:       t.Text,
			ProducedAt: t.ProducedAt,
		})
	}
	return ev
}

func (p *Publisher) Enabled() bool { return p.enabled }

func (p *Publisher) Publish(ctx context.Context, s session.Summary) error {
	start := time.Now()
	payload, err := json.Marshal(NewEvent(s))
	if err != nil {
		return err
	}
	l := log.Logger()
	l.Debug().
		Str("topic", p.topic).
		Str("key", s.ID).
		RawJSON("payload", payload).
		Msg("publishing session")

	if !p.enabled || p.writer == nil {
		p.record(nil, time.Since(start))
		return nil
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(s.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte("session." + s.Reason)},
		},
	})
	p.record(err, time.Since(start))
	if err != nil {
		log.Errorf("handoff publish %s: %v", s.ID, err)
		return err
	}
	return nil
}

func (p *Publisher) record(err error, d time.Duration) {
	if p.recorder != nil {
		p.recorder.RecordHandoff(err, d)
	}
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
