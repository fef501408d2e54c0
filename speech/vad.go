package speech

import (
	"sync"

	"interviewer/encoder"
)

const (
	vadFrameMs     = 20
	vadFrameBytes  = encoder.SampleRate * vadFrameMs / 1000 * 2
	vadMinVolume   = 0.02 // smoothed RMS below this is silence
	vadSmoothAlpha = 0.3
	tickSpeechMin  = 0.10 // share of frames in a tick that counts as speaking
)

// voiceDetector classifies PCM16LE mono audio at encoder.SampleRate.
type voiceDetector interface {
	Process(pcm []byte)
	// HasSpeechTick reports whether the audio since the previous call
	// contained speech.
	HasSpeechTick() bool
}

// energyDetector marks 20ms frames as speech when their smoothed RMS
// clears vadMinVolume.
type energyDetector struct {
	mu           sync.Mutex
	buf          []byte
	smoothed     float64
	totalFrames  int
	speechFrames int
	tickTotal    int
	tickSpeech   int
}

func newEnergyDetector() (voiceDetector, error) {
	return &energyDetector{}, nil
}

func (d *energyDetector) Process(data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.buf = append(d.buf, data...)
	for len(d.buf) >= vadFrameBytes {
		frame := d.buf[:vadFrameBytes]
		d.buf = d.buf[vadFrameBytes:]

		d.smoothed = vadSmoothAlpha*encoder.RMS(frame) + (1-vadSmoothAlpha)*d.smoothed
		d.totalFrames++
		if d.smoothed >= vadMinVolume {
			d.speechFrames++
		}
	}
}

func (d *energyDetector) HasSpeechTick() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.totalFrames - d.tickTotal
	s := d.speechFrames - d.tickSpeech
	d.tickTotal, d.tickSpeech = d.totalFrames, d.speechFrames
	if t == 0 {
		return false
	}
	return float64(s)/float64(t) >= tickSpeechMin
}
