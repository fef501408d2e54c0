package speech

import "testing"

func feedN(m *silenceMonitor, speech bool, n int) silenceEvent {
	var last silenceEvent
	for i := 0; i < n; i++ {
		last = m.Tick(speech)
	}
	return last
}

func warnTicks() int { return int(silenceWarnAfter / silenceTick) }

func TestSilenceWarnAfterWindow(t *testing.T) {
	m := newSilenceMonitor()
	for i := 0; i < warnTicks()-1; i++ {
		if ev := m.Tick(false); ev != silenceNone {
			t.Fatalf("unexpected event at tick %d: %d", i, ev)
		}
	}
	if ev := m.Tick(false); ev != silenceWarn {
		t.Fatalf("expected silenceWarn at tick %d, got %d", warnTicks(), ev)
	}
}

func TestSilenceWarnClearsOnSpeech(t *testing.T) {
	m := newSilenceMonitor()
	feedN(m, false, warnTicks())

	for i := 0; i < warnTicks(); i++ {
		if m.Tick(true) == silenceClear {
			return
		}
	}
	t.Fatal("expected silenceClear after speech")
}

func TestNoWarnDuringSpeech(t *testing.T) {
	m := newSilenceMonitor()
	for i := 0; i < 200; i++ {
		if ev := m.Tick(true); ev == silenceWarn {
			t.Fatalf("unexpected warn during speech at tick %d", i)
		}
	}
}

func TestWarnOnlyOnce(t *testing.T) {
	m := newSilenceMonitor()
	warns := 0
	for i := 0; i < 300; i++ {
		if m.Tick(false) == silenceWarn {
			warns++
		}
	}
	if warns != 1 {
		t.Fatalf("expected exactly 1 warning, got %d", warns)
	}
}

func TestWarnStaysDuringNoise(t *testing.T) {
	m := newSilenceMonitor()
	feedN(m, false, warnTicks())

	// isolated false positives stay below the clear threshold
	for i := 0; i < warnTicks(); i++ {
		if m.Tick(i%10 == 0) == silenceClear {
			t.Fatalf("warning cleared at tick %d with 10%% speech", i)
		}
	}
}

func TestWarnAgainAfterClear(t *testing.T) {
	m := newSilenceMonitor()
	feedN(m, false, warnTicks())
	feedN(m, true, warnTicks())

	warned := false
	for i := 0; i < 2*warnTicks(); i++ {
		if m.Tick(false) == silenceWarn {
			warned = true
			break
		}
	}
	if !warned {
		t.Fatal("expected a second warning after speech stopped again")
	}
}
