package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"interviewer/audio"
	"interviewer/beep"
	"interviewer/chat"
	"interviewer/config"
	"interviewer/doctor"
	"interviewer/encoder"
	"interviewer/handoff"
	"interviewer/log"
	"interviewer/metrics"
	"interviewer/session"
	"interviewer/shutdown"
	"interviewer/speech"
	"interviewer/synth"
	"interviewer/transcriber"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	envFlag := flag.String("env", "", "Path to a .env file (default ./.env)")
	backendFlag := flag.String("backend", "", "Interview backend base URL")
	langFlag := flag.String("lang", "", "Recognition and voice locale (e.g. en-IN)")
	voiceFlag := flag.String("voice", "", "Interviewer voice")
	sttFlag := flag.String("stt", "", "Transcription provider: deepgram, google, groq or openai")
	topicFlag := flag.String("topic", "", "Interview topic sent to the backend before starting")
	difficultyFlag := flag.String("difficulty", "", "Interview difficulty sent with -topic")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	metricsFlag := flag.String("metrics", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	kafkaFlag := flag.String("kafka", "", "Comma-separated Kafka brokers for session hand-off events")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	noSpeechFlag := flag.Bool("nospeech", false, "Test mode: behave as a host without speech recognition")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("interviewer %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	cfg, err := config.Load(*envFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	override(&cfg.BackendURL, *backendFlag)
	override(&cfg.Language, *langFlag)
	override(&cfg.Voice, *voiceFlag)
	override(&cfg.STTProvider, *sttFlag)
	override(&cfg.Topic, *topicFlag)
	override(&cfg.Difficulty, *difficultyFlag)
	override(&cfg.MetricsAddr, *metricsFlag)
	if *kafkaFlag != "" {
		cfg.KafkaBrokers = strings.Split(*kafkaFlag, ",")
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	backend := chat.New(cfg.BackendURL, cfg.RequestTimeout)

	if *testFlag {
		return runTestMode(cfg, backend, *noSpeechFlag, os.Stdin, os.Stdout)
	}

	bg := context.Background()
	tr, trErr := transcriber.New(bg, cfg.STTProvider, cfg.Keys)
	if trErr != nil {
		// Typed nil pointers must not reach the Recognizer.
		tr = nil
		log.Errorf("transcriber: %v", trErr)
	} else {
		tr.SetLanguage(cfg.Language)
		if c, ok := tr.(io.Closer); ok {
			defer c.Close()
		}
	}
	var synthesizer synth.Synthesizer
	if cfg.OpenAIKey != "" {
		synthesizer = synth.NewOpenAI(cfg.OpenAIKey, synth.WithModel(cfg.TTSModel))
	}
	voice := synth.Config{Voice: cfg.Voice, Model: cfg.TTSModel, Language: cfg.Language}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		return 1
	}
	defer actx.Close()

	if *doctorFlag {
		doctor.PrepareTerminal()
		return doctor.Run(doctor.Options{
			Backend:     backend,
			Audio:       actx,
			Transcriber: tr,
			Synth:       synthesizer,
			SynthConfig: voice,
			In:          os.Stdin,
			Out:         os.Stdout,
		})
	}

	if synthesizer == nil {
		fmt.Println("Error: OPENAI_API_KEY is required for the interviewer voice")
		return 1
	}

	selected := pickDevice(actx, *deviceFlag, *setupFlag)

	var captureDev audio.CaptureDevice
	if dev, err := actx.NewCapture(selected, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}); err != nil {
		// Without a microphone the controller enters Degraded.
		log.Errorf("capture device init error: %v", err)
	} else {
		captureDev = dev
		defer dev.Close()
		log.Info("recording_device: " + dev.DeviceName())
	}

	playbackDev, err := actx.NewPlayback(audio.PlaybackConfig{SampleRate: synth.SampleRate, Channels: synth.Channels})
	if err != nil {
		log.Errorf("playback device init error: %v", err)
		fmt.Printf("Error initializing playback device: %v\n", err)
		return 1
	}
	defer playbackDev.Close()

	reg := prometheus.NewRegistry()
	obs := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, reg)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(bg, 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	pub := handoff.New(handoff.Config{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		Enabled: len(cfg.KafkaBrokers) > 0,
	}, obs)
	defer pub.Close()

	setup := configure(backend, cfg.Topic, cfg.Difficulty)

	runCtx, cancel := context.WithCancel(bg)
	defer cancel()

	recognizer := speech.NewRecognizer(captureDev, tr, cfg.AudioFormat)
	speaker := speech.NewSpeaker(runCtx, synthesizer, playbackDev, voice)
	cues := beep.New(playbackDev, synth.SampleRate)

	var prog *tea.Program
	send := func(m tea.Msg) { prog.Send(m) }

	var handoffs sync.WaitGroup
	sc := controllerConfig(cfg)
	sc.Labels = session.Labels{Backend: backend.BaseURL(), STT: recognizerName(tr), TTS: synthesizer.Name()}
	ctrl := session.New(sc, session.Deps{
		Capture:  recognizer,
		Playback: speaker,
		Chat:     backend,
		Sink:     &programSink{send: send, cues: cues},
		Navigator: navigators{
			publishNavigator(pub, &handoffs),
			session.NavigatorFunc(func(s session.Summary) { send(feedbackMsg{Summary: s}) }),
		},
		Observer: obs,
	})
	prog = NewTUIProgram(newTUIModel(ctrl, cfg.LoaderDelay, setup))

	go func() {
		err := ctrl.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("interview: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		prog.Quit()
	}()

	if _, err := prog.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		cancel()
		return 1
	}

	cancel()
	<-ctrl.Done()
	handoffs.Wait()
	cues.Wait()
	return 0
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}

func controllerConfig(cfg config.Config) session.Config {
	sc := session.DefaultConfig()
	sc.Sentinel = cfg.Sentinel
	sc.BootstrapDelay = cfg.BootstrapDelay
	sc.ClockPeriod = cfg.ClockPeriod
	sc.RequestTimeout = cfg.RequestTimeout
	sc.Capture.Language = cfg.Language
	return sc
}

func recognizerName(tr transcriber.Transcriber) string {
	if tr == nil {
		return "none"
	}
	return tr.Name()
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

// pickDevice resolves -device or -setup into a capture device. Nil means
// the system default.
func pickDevice(actx audio.Context, name string, setup bool) *audio.DeviceInfo {
	if name != "" {
		devices, err := actx.Devices()
		if err != nil {
			log.Warnf("listing devices: %v", err)
			return nil
		}
		for i := range devices {
			if devices[i].Name == name {
				return &devices[i]
			}
		}
		fmt.Printf("Warning: device %q not found, using default\n", name)
		return nil
	}
	if !setup {
		return nil
	}
	dev, err := audio.SelectDevice(actx)
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Printf("Warning: device selection failed: %v\n", err)
		fmt.Println("Falling back to default device")
		return nil
	}
	if dev != nil && audio.IsBluetooth(dev.Name) {
		fmt.Println("Warning: Bluetooth microphones lower recognition quality")
	}
	return dev
}

// configure posts the interview setup. Failures are logged and the
// interview goes ahead with the backend's defaults.
func configure(backend *chat.Client, topic, difficulty string) string {
	if topic == "" && difficulty == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	msg, err := backend.Configure(ctx, topic, difficulty)
	if err != nil {
		log.Warnf("interview setup: %v", err)
		return ""
	}
	return msg
}

// publishNavigator sends the session summary to the hand-off topic
// without holding up the controller.
func publishNavigator(pub *handoff.Publisher, wg *sync.WaitGroup) session.Navigator {
	return session.NavigatorFunc(func(s session.Summary) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := pub.Publish(ctx, s); err != nil {
				log.Warnf("hand-off: %v", err)
			}
		}()
	})
}
