// Package beep renders short cue tones that mark the candidate's
// listening window.
package beep

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"interviewer/audio"
	"interviewer/log"
)

type Cue int

const (
	// Start: high pitch, short
	Start Cue = iota
	// End: medium pitch, slightly longer
	End
	// Error: low pitch double-beep
	Error
)

type tone struct {
	freq   float64
	dur    float64
	volume float64
	decay  float64
	double bool
}

var tones = map[Cue]tone{
	Start: {freq: 1200, dur: 0.2, volume: 0.5, decay: 60},
	End:   {freq: 900, dur: 0.2, volume: 0.5, decay: 40},
	Error: {freq: 350, dur: 0.08, volume: 0.6, decay: 30, double: true},
}

const gapDur = 0.05

// Player plays cues on a playback device. A nil device or a disabled
// player is silent.
type Player struct {
	dev  audio.PlaybackDevice
	rate int

	mu       sync.Mutex
	disabled bool
	cache    map[Cue][]byte
	wg       sync.WaitGroup
}

func New(dev audio.PlaybackDevice, sampleRate int) *Player {
	return &Player{dev: dev, rate: sampleRate, cache: make(map[Cue][]byte)}
}

func (p *Player) Disable() {
	p.mu.Lock()
	p.disabled = true
	p.mu.Unlock()
}

// Play renders c asynchronously.
func (p *Player) Play(c Cue) {
	pcm := p.samples(c)
	if pcm == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := p.dev.Play(ctx, bytes.NewReader(pcm)); err != nil {
			log.Warnf("cue playback: %v", err)
		}
	}()
}

// PlaySync renders c and waits for it to drain.
func (p *Player) PlaySync(ctx context.Context, c Cue) error {
	pcm := p.samples(c)
	if pcm == nil {
		return nil
	}
	return p.dev.Play(ctx, bytes.NewReader(pcm))
}

// Wait blocks until asynchronous cues have finished.
func (p *Player) Wait() { p.wg.Wait() }

func (p *Player) samples(c Cue) []byte {
	if p == nil || p.dev == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disabled {
		return nil
	}
	if pcm, ok := p.cache[c]; ok {
		return pcm
	}
	t, ok := tones[c]
	if !ok {
		return nil
	}
	pcm := render(t, p.rate)
	p.cache[c] = pcm
	return pcm
}

// render produces mono PCM16 little-endian samples for t.
func render(t tone, sampleRate int) []byte {
	s := tick(sampleRate, t)
	if t.double {
		gap := make([]int16, int(float64(sampleRate)*gapDur))
		s = append(append(append(make([]int16, 0, len(s)*2+len(gap)), s...), gap...), s...)
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, s)
	return buf.Bytes()
}

func tick(sampleRate int, t tone) []int16 {
	n := int(float64(sampleRate) * t.dur)
	samples := make([]int16, n)
	for i := range samples {
		x := float64(i) / float64(sampleRate)
		envelope := math.Exp(-x * t.decay)
		samples[i] = int16(math.Sin(2*math.Pi*t.freq*x) * 32767 * t.volume * envelope)
	}
	return samples
}
