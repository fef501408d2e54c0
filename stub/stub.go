// Package stub serves a scripted interview backend for local development
// and end-to-end tests.
package stub

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// DefaultQuestions is a short interview ending with the closing line.
func DefaultQuestions(sentinel string) []string {
	return []string{
		"Hello, welcome to your mock interview. Could you start by introducing yourself?",
		"Tell me about a project you are proud of and the hardest problem you solved in it.",
		"How would you design a rate limiter for a public API?",
		"That covers everything I wanted to ask. " + sentinel + ".",
	}
}

// Category is the interview setup posted before a session.
type Category struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

type chatRequest struct {
	Transcript string `json:"transcript"`
}

type chatResponse struct {
	Content string `json:"content"`
}

type categoryRequest struct {
	Data Category `json:"data"`
}

type categoryResponse struct {
	Message string `json:"message"`
}

// Server answers /api/chat with the scripted questions in order. Once the
// script is exhausted the last question repeats.
type Server struct {
	e      *echo.Echo
	logger zerolog.Logger

	mu          sync.Mutex
	questions   []string
	next        int
	failures    int
	delay       time.Duration
	category    Category
	transcripts []string
}

func New(questions []string, logger zerolog.Logger) *Server {
	s := &Server{
		e:         echo.New(),
		logger:    logger,
		questions: append([]string(nil), questions...),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	s.register()
	return s
}

func (s *Server) register() {
	health := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	s.e.GET("/healthz", health)
	s.e.HEAD("/healthz", health)
	s.e.POST("/api/chat", s.chat)
	s.e.POST("/api/category", s.configure)
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error { return s.e.Start(addr) }

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

// FailNext makes the next n chat requests answer 500.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	s.failures = n
	s.mu.Unlock()
}

// SetDelay holds every chat response for d.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Transcripts returns the candidate answers received so far. The bootstrap
// request is not included.
func (s *Server) Transcripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.transcripts...)
}

func (s *Server) Category() Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	s.mu.Lock()
	delay := s.delay
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		s.logger.Warn().Msg("scripted failure")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "scripted failure"})
	}
	if t := strings.TrimSpace(req.Transcript); t != "" {
		s.transcripts = append(s.transcripts, t)
	}
	var content string
	if len(s.questions) > 0 {
		i := s.next
		if i >= len(s.questions) {
			i = len(s.questions) - 1
		} else {
			s.next++
		}
		content = s.questions[i]
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}
	return c.JSON(http.StatusOK, chatResponse{Content: content})
}

func (s *Server) configure(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	s.category = req.Data
	s.mu.Unlock()
	s.logger.Info().Str("topic", req.Data.Topic).Str("difficulty", req.Data.Difficulty).Msg("category set")
	return c.JSON(http.StatusOK, categoryResponse{
		Message: "Interview configured: " + req.Data.Topic + " (" + req.Data.Difficulty + ")",
	})
}
