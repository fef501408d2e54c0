package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"interviewer/log"
	"interviewer/speech"
)

const DefaultSentinel = "Thank you for interviewing with EduPath AI"

type Config struct {
	// Sentinel in an interviewer utterance ends the interview once that
	// utterance has been played.
	Sentinel string
	// BootstrapDelay postpones the opening request after mount.
	BootstrapDelay time.Duration
	ClockPeriod    time.Duration
	// NewTicker overrides the clock's tick source.
	NewTicker      func(time.Duration) Ticker
	RequestTimeout time.Duration
	Capture        speech.CaptureOptions
	// Labels are written to the diagnostics log when the session starts.
	Labels Labels
}

type Labels struct {
	Backend string
	STT     string
	TTS     string
}

func DefaultConfig() Config {
	return Config{
		Sentinel:       DefaultSentinel,
		BootstrapDelay: 2 * time.Second,
		ClockPeriod:    time.Second,
		RequestTimeout: 60 * time.Second,
		Capture:        speech.DefaultCaptureOptions(),
	}
}

type Deps struct {
	Capture   speech.Capture
	Playback  speech.Playback
	Chat      Conversation
	Sink      Sink
	Navigator Navigator
	Observer  Observer
}

// Controller owns the interview state. All state lives on the goroutine
// running Run; other goroutines talk to it through the mailbox.
type Controller struct {
	cfg  Config
	deps Deps
	mb   *mailbox

	running atomic.Bool
	done    chan struct{}
	current atomic.Int32 // mirror of state for lock-free reads

	snapMu sync.Mutex
	snap   Session

	// loop-owned
	ctx          context.Context
	cancel       context.CancelFunc
	state        State
	sess         Session
	clock        *Clock
	life         lifetime
	bootstrapped bool
	inFlight     bool
	reqGen       uint64
	playGen      uint64
	listenGen    uint64
	aiText       string
	armedGen     uint64 // playGen of the sentinel utterance, 0 if none
	finished     bool
}

func New(cfg Config, deps Deps) *Controller {
	if cfg.Sentinel == "" {
		cfg.Sentinel = DefaultSentinel
	}
	if deps.Sink == nil {
		deps.Sink = nopSink{}
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Navigator == nil {
		deps.Navigator = NavigatorFunc(func(Summary) {})
	}
	return &Controller{
		cfg:  cfg,
		deps: deps,
		mb:   newMailbox(),
		done: make(chan struct{}),
	}
}

// Run mounts the session and processes events until it completes or ctx
// is done. It returns an error wrapping speech.ErrCapabilityUnavailable
// when the host cannot recognize speech.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("controller already ran")
	}
	defer close(c.done)

	if err := c.deps.Capture.Available(); err != nil {
		c.mb.close()
		c.finished = true
		c.setState(Degraded)
		c.deps.Sink.Degraded(DegradedNotice)
		log.Errorf("speech capability: %v", err)
		return fmt.Errorf("interview unavailable: %w", err)
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.sess = Session{ID: uuid.NewString(), StartedAt: time.Now(), Status: Active}
	log.SessionStart(c.sess.ID, c.cfg.Labels.Backend, c.cfg.Labels.STT, c.cfg.Labels.TTS)
	c.publish()
	c.setState(Bootstrapping)

	c.clock = NewClock(c.cfg.ClockPeriod, c.cfg.NewTicker, func(n int) {
		c.mb.post(func() { c.onTick(n) })
	})
	c.life.add(c.deps.Capture.Stop)
	c.life.add(c.deps.Playback.Cancel)
	c.life.add(c.clock.Stop)
	c.life.add(c.cancel)
	c.clock.Start()

	if c.cfg.BootstrapDelay > 0 {
		t := time.AfterFunc(c.cfg.BootstrapDelay, func() { c.mb.post(c.bootstrap) })
		c.life.add(func() { t.Stop() })
	} else {
		c.mb.post(c.bootstrap)
	}

	for {
		select {
		case <-ctx.Done():
			c.teardown("canceled")
			return ctx.Err()
		case <-c.mb.wake:
		}
		for _, f := range c.mb.drain() {
			f()
			if c.finished {
				return nil
			}
		}
	}
}

// DegradedNotice is shown when the host cannot recognize speech.
const DegradedNotice = "Speech recognition is not supported on this system. Check your microphone and transcription provider, then restart."

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} { return c.done }

// State is safe to call from any goroutine.
func (c *Controller) State() State { return State(c.current.Load()) }

func (c *Controller) Flags() Flags { return c.State().Flags() }

// Snapshot returns a copy of the session record.
func (c *Controller) Snapshot() Session {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	return c.snap.clone()
}

func (c *Controller) StartListening() error {
	return c.act(StartListening, c.startListening)
}

func (c *Controller) StopListening() error {
	return c.act(StopListening, c.stopListening)
}

func (c *Controller) EndInterview() error {
	return c.act(EndInterview, func() error {
		if c.state == Listening {
			c.deps.Capture.Stop()
		}
		c.complete(evEndInterview, "ended")
		return nil
	})
}

// OpenEditor only checks permission; the editor itself is a UI concern.
func (c *Controller) OpenEditor() error {
	return c.act(OpenEditor, func() error { return nil })
}

func (c *Controller) act(a Action, f func() error) error {
	if s := c.State(); s.Terminal() {
		return fmt.Errorf("%w: %s while %s", ErrActionNotAllowed, a, s)
	}
	return c.call(func() error {
		if c.finished || !c.state.Allows(a) {
			c.deps.Observer.ActionRejected(a, c.state)
			return fmt.Errorf("%w: %s while %s", ErrActionNotAllowed, a, c.state)
		}
		return f()
	})
}

// call runs f on the loop and waits for its result.
func (c *Controller) call(f func() error) error {
	res := make(chan error, 1)
	if !c.mb.post(func() { res <- f() }) {
		return ErrDisposed
	}
	select {
	case err := <-res:
		return err
	case <-c.done:
		select {
		case err := <-res:
			return err
		default:
			return ErrDisposed
		}
	}
}

func (c *Controller) setState(s State) {
	from := c.state
	c.state = s
	c.current.Store(int32(s))
	if from == s && s == Bootstrapping {
		return
	}
	log.Transition(from.String(), s.String())
	c.deps.Observer.StateChanged(from, s)
	c.deps.Sink.StateChanged(from, s)
}

func (c *Controller) fire(ev event) bool {
	to, ok := next(c.state, ev)
	if !ok {
		log.Warnf("ignored %s in %s", ev, c.state)
		return false
	}
	c.setState(to)
	return true
}

func (c *Controller) publish() {
	c.snapMu.Lock()
	c.snap = c.sess.clone()
	c.snapMu.Unlock()
}

func (c *Controller) onTick(n int) {
	if c.finished {
		return
	}
	c.sess.Elapsed = n
	c.publish()
	c.deps.Sink.Tick(n)
}

func (c *Controller) bootstrap() {
	if c.bootstrapped || c.finished {
		return
	}
	c.bootstrapped = true
	if err := c.request(""); err != nil {
		c.deps.Sink.Notice("Could not start the interview: " + err.Error())
		c.fire(evBootstrapFailed)
	}
}

// request posts transcript to the backend. Only one request may be in
// flight; the reply is delivered to onReply on the loop.
func (c *Controller) request(transcript string) error {
	if c.inFlight {
		return ErrBusy
	}
	c.inFlight = true
	c.reqGen++
	gen := c.reqGen

	ctx := c.ctx
	cancel := context.CancelFunc(func() {})
	if c.cfg.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
	}
	start := time.Now()
	go func() {
		defer cancel()
		reply, err := c.deps.Chat.RequestNextTurn(ctx, transcript)
		took := time.Since(start)
		c.mb.post(func() { c.onReply(gen, transcript, reply.Content, err, took) })
	}()
	return nil
}

func (c *Controller) onReply(gen uint64, transcript, content string, err error, took time.Duration) {
	if c.finished || gen != c.reqGen {
		return
	}
	c.inFlight = false
	bootstrap := transcript == ""
	kind := "turn"
	if bootstrap {
		kind = "bootstrap"
	}
	c.deps.Observer.RequestFinished(kind, took, err)

	if err != nil {
		log.Warnf("%s request failed: %v", kind, err)
		c.deps.Sink.Notice("The interviewer could not be reached. Try again.")
		if bootstrap {
			c.fire(evBootstrapFailed)
		} else {
			c.fire(evRequestFailed)
		}
		return
	}

	if !bootstrap {
		c.appendTurn(Candidate, transcript)
		c.deps.Capture.Reset()
		c.deps.Sink.Transcript("")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		c.fire(evReplyEmpty)
		return
	}
	c.appendTurn(Interviewer, content)

	armed := false
	if content != c.aiText {
		c.aiText = content
		armed = strings.Contains(content, c.cfg.Sentinel)
	}
	c.deps.Sink.Question(content)

	if bootstrap {
		c.fire(evBootstrapOK)
	} else {
		c.fire(evReplyOK)
	}
	c.speak(content, armed)
}

func (c *Controller) appendTurn(sp Speaker, text string) {
	t := Turn{Index: len(c.sess.Turns), Speaker: sp, Text: text, ProducedAt: time.Now()}
	c.sess.Turns = append(c.sess.Turns, t)
	c.publish()
	c.deps.Observer.TurnAppended(t)
}

func (c *Controller) speak(text string, armed bool) {
	c.playGen++
	gen := c.playGen
	if armed {
		c.armedGen = gen
	}
	c.deps.Playback.Speak(text, func(err error) {
		c.mb.post(func() { c.onPlaybackDone(gen, err) })
	})
}

func (c *Controller) onPlaybackDone(gen uint64, err error) {
	if c.finished || gen != c.playGen {
		return
	}
	c.deps.Observer.PlaybackFinished(err)
	if err != nil {
		log.Warnf("playback: %v", err)
	}
	if c.armedGen != 0 && c.armedGen == gen {
		c.complete(evSentinelSpoken, "completed")
		return
	}
	c.fire(evPlaybackDone)
}

const noVoiceNotice = "No voice detected. Check your microphone."

func (c *Controller) startListening() error {
	c.listenGen++
	gen := c.listenGen
	err := c.deps.Capture.Start(c.ctx, c.cfg.Capture, speech.CaptureEvents{
		OnTranscript: func(text string) {
			c.mb.post(func() {
				if !c.finished && c.state == Listening && gen == c.listenGen {
					c.deps.Sink.Transcript(text)
				}
			})
		},
		OnLevel: func(rms float64) {
			c.mb.post(func() {
				if !c.finished && c.state == Listening {
					c.deps.Sink.AudioLevel(rms)
				}
			})
		},
		OnSilence: func(silent bool) {
			c.mb.post(func() {
				if c.finished || c.state != Listening || gen != c.listenGen {
					return
				}
				if silent {
					c.deps.Sink.Notice(noVoiceNotice)
				} else {
					c.deps.Sink.Notice("")
				}
			})
		},
		OnFinal: func(text string, err error) {
			c.mb.post(func() { c.onFinal(gen, text, err) })
		},
	})
	if err != nil {
		log.Errorf("start listening: %v", err)
		c.deps.Sink.Notice("Could not start the microphone: " + err.Error())
		return err
	}
	c.fire(evStartListening)
	return nil
}

func (c *Controller) stopListening() error {
	c.fire(evStopListening)
	c.deps.Capture.Stop()
	return nil
}

func (c *Controller) onFinal(gen uint64, text string, err error) {
	if c.finished || gen != c.listenGen || c.state != Thinking {
		return
	}
	if err != nil {
		log.Warnf("transcription failed: %v", err)
		c.deps.Sink.Notice("Your answer could not be transcribed. Please try again.")
		c.fire(evNothingHeard)
		return
	}
	text = strings.TrimSpace(text)
	c.deps.Sink.Transcript(text)
	if text == "" {
		c.deps.Sink.Notice("No answer was heard. Start listening and speak again.")
		c.fire(evNothingHeard)
		return
	}
	if err := c.request(text); err != nil {
		c.deps.Sink.Notice("Still waiting for the previous answer to be processed.")
		c.fire(evRequestFailed)
	}
}

// complete enters Completed, releases resources and navigates. It runs
// at most once.
func (c *Controller) complete(ev event, reason string) {
	if c.finished {
		return
	}
	c.fire(ev)
	c.teardown(reason)
	c.deps.Navigator.Navigate(Summary{Session: c.sess.clone(), Reason: reason})
}

func (c *Controller) teardown(reason string) {
	if c.finished {
		return
	}
	c.finished = true
	c.mb.close()
	c.life.release()
	c.reqGen++
	c.playGen++
	c.listenGen++

	if c.clock != nil {
		c.sess.Elapsed = c.clock.Elapsed()
	}
	if c.state == Completed {
		c.sess.Status = Finished
	}
	c.publish()
	c.deps.Observer.SessionEnded(reason, c.sess.Elapsed, len(c.sess.Turns))
	log.SessionEnd(c.sess.ID, reason, time.Duration(c.sess.Elapsed)*time.Second, len(c.sess.Turns))
}
