package speech

import "time"

const (
	silenceTick      = 100 * time.Millisecond
	silenceWarnAfter = 8 * time.Second
	speechMinRatio   = 0.10
	speechClearRatio = 0.25 // hysteresis
)

type silenceEvent int

const (
	silenceNone silenceEvent = iota
	silenceWarn
	silenceClear
)

// silenceMonitor watches per-tick speech flags over a sliding window and
// reports when the candidate goes quiet and when they resume.
type silenceMonitor struct {
	window []bool
	ticks  int
	warned bool
}

func newSilenceMonitor() *silenceMonitor {
	return &silenceMonitor{window: make([]bool, int(silenceWarnAfter/silenceTick))}
}

func (m *silenceMonitor) ratio() float64 {
	n := len(m.window)
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+len(m.window))%len(m.window)] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *silenceMonitor) Tick(hasSpeech bool) silenceEvent {
	m.window[m.ticks%len(m.window)] = hasSpeech
	m.ticks++

	r := m.ratio()
	if !m.warned && m.ticks >= len(m.window) && r < speechMinRatio {
		m.warned = true
		return silenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return silenceClear
	}
	return silenceNone
}
