package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"interviewer/chat"
	"interviewer/config"
	"interviewer/handoff"
	"interviewer/log"
	"interviewer/metrics"
	"interviewer/session"
	"interviewer/speech"
)

const (
	testUtteranceTime = 20 * time.Millisecond
	testWaitTimeout   = 10 * time.Second
)

// runTestMode drives an interview against the configured backend with
// scripted speech. Commands are read from in, one per line:
//
//	START | STOP | END | EDITOR     candidate actions
//	SAY <text>                      speak into the open listening window
//	WAIT <state>                    block until the controller is in state
//	SLEEP <ms>
//	QUIT
//
// Controller output and command results are written to out.
func runTestMode(cfg config.Config, backend *chat.Client, noSpeech bool, in io.Reader, out io.Writer) int {
	capture := speech.NewFakeCapture()
	if noSpeech {
		capture.SetUnavailable("speech recognition disabled")
	}
	playback := speech.NewFakePlayback(testUtteranceTime)
	sink := &lineSink{w: out}

	obs := metrics.New(prometheus.NewRegistry())
	pub := handoff.New(handoff.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Enabled: len(cfg.KafkaBrokers) > 0,
	}, obs)
	defer pub.Close()

	sc := controllerConfig(cfg)
	sc.BootstrapDelay = 0
	sc.Labels = session.Labels{Backend: backend.BaseURL(), STT: "fake", TTS: "fake"}

	var handoffs sync.WaitGroup
	ctrl := session.New(sc, session.Deps{
		Capture:   capture,
		Playback:  playback,
		Chat:      backend,
		Sink:      sink,
		Navigator: navigators{sink, publishNavigator(pub, &handoffs)},
		Observer:  obs,
	})

	if msg := configure(backend, cfg.Topic, cfg.Difficulty); msg != "" {
		sink.printf("SETUP %s", msg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- ctrl.Run(ctx) }()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		switch cmd {
		case "START":
			reportAction(sink, session.StartListening, ctrl.StartListening())
		case "STOP":
			reportAction(sink, session.StopListening, ctrl.StopListening())
		case "END":
			reportAction(sink, session.EndInterview, ctrl.EndInterview())
		case "EDITOR":
			reportAction(sink, session.OpenEditor, ctrl.OpenEditor())
		case "SAY":
			if !capture.Say(arg) {
				sink.printf("ERROR not listening")
			}
		case "WAIT":
			want, ok := session.ParseState(arg)
			if !ok {
				sink.printf("ERROR unknown state %q", arg)
				continue
			}
			if !waitState(ctrl, want) {
				sink.printf("TIMEOUT %s (state %s)", want, ctrl.State())
			}
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			return finishTestMode(ctrl, cancel, runErr, &handoffs, sink)
		default:
			sink.printf("ERROR unknown command %q", cmd)
		}
	}
	return finishTestMode(ctrl, cancel, runErr, &handoffs, sink)
}

func reportAction(sink *lineSink, a session.Action, err error) {
	if err != nil {
		sink.printf("REJECTED %s: %v", a, err)
		return
	}
	sink.printf("OK %s", a)
}

func waitState(ctrl *session.Controller, want session.State) bool {
	deadline := time.Now().Add(testWaitTimeout)
	for time.Now().Before(deadline) {
		if ctrl.State() == want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func finishTestMode(ctrl *session.Controller, cancel context.CancelFunc, runErr <-chan error, handoffs *sync.WaitGroup, sink *lineSink) int {
	cancel()
	err := <-runErr
	handoffs.Wait()
	sink.printf("EXIT %s", ctrl.State())
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("test mode: %v", err)
		if errors.Is(err, speech.ErrCapabilityUnavailable) {
			return 2
		}
		return 1
	}
	return 0
}
