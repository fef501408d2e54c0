package stub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interviewer/chat"
)

func newTestServer(t *testing.T, questions []string) (*Server, *chat.Client) {
	t.Helper()
	s := New(questions, zerolog.Nop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, chat.New(srv.URL, time.Second)
}

func TestScriptedQuestionsInOrder(t *testing.T) {
	s, c := newTestServer(t, []string{"first", "second", "bye"})
	ctx := context.Background()

	var got []string
	for _, answer := range []string{"", "my answer", "  ", "again"} {
		r, err := c.RequestNextTurn(ctx, answer)
		require.NoError(t, err)
		got = append(got, r.Content)
	}
	assert.Equal(t, []string{"first", "second", "bye", "bye"}, got)
	assert.Equal(t, []string{"my answer", "again"}, s.Transcripts())
}

func TestDefaultQuestionsEndWithSentinel(t *testing.T) {
	qs := DefaultQuestions("Thank you for interviewing with EduPath AI")
	require.NotEmpty(t, qs)
	assert.Contains(t, qs[len(qs)-1], "Thank you for interviewing with EduPath AI")
	for _, q := range qs[:len(qs)-1] {
		assert.NotContains(t, q, "Thank you for interviewing")
	}
}

func TestFailNext(t *testing.T) {
	s, c := newTestServer(t, []string{"q1", "q2"})
	s.FailNext(1)

	_, err := c.RequestNextTurn(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, chat.ErrBackend))

	r, err := c.RequestNextTurn(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "q1", r.Content)
}

func TestDelayHonoursClientTimeout(t *testing.T) {
	s := New([]string{"slow"}, zerolog.Nop())
	s.SetDelay(time.Second)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	c := chat.New(srv.URL, 50*time.Millisecond)
	_, err := c.RequestNextTurn(context.Background(), "")
	require.Error(t, err)
}

func TestConfigure(t *testing.T) {
	s, c := newTestServer(t, nil)
	msg, err := c.Configure(context.Background(), "Go", "Hard")
	require.NoError(t, err)
	assert.Contains(t, msg, "Go")
	assert.Equal(t, Category{Topic: "Go", Difficulty: "Hard"}, s.Category())
}

func TestHealth(t *testing.T) {
	_, c := newTestServer(t, nil)
	require.NoError(t, c.Ping(context.Background()))

	s := New(nil, zerolog.Nop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatRejectsBadBody(t *testing.T) {
	s := New(nil, zerolog.Nop())
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmptyScriptAnswersEmptyContent(t *testing.T) {
	_, c := newTestServer(t, nil)
	r, err := c.RequestNextTurn(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, r.Content)
}
