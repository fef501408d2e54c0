// Command stubbackend serves a scripted interview backend on localhost.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"interviewer/session"
	"interviewer/shutdown"
	"interviewer/stub"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:3000", "Listen address")
	sentinel := flag.String("sentinel", session.DefaultSentinel, "Closing line of the last question")
	failFirst := flag.Int("fail", 0, "Answer the first N chat requests with 500")
	delay := flag.Duration("delay", 0, "Delay every chat response")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "stubbackend").Logger()

	s := stub.New(stub.DefaultQuestions(*sentinel), logger)
	s.FailNext(*failFirst)
	s.SetDelay(*delay)

	go func() {
		logger.Info().Str("addr", *addr).Msg("listening")
		if err := s.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCtx, stop := shutdown.Context(context.Background())
	defer stop()
	<-sigCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
