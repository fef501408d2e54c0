package speech

import (
	"encoding/binary"
	"math"
	"testing"

	"interviewer/encoder"
)

func genTone(freq float64, durationMs int) []byte {
	n := encoder.SampleRate * durationMs / 1000
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		sample := int16(16000 * math.Sin(2*math.Pi*freq*float64(i)/encoder.SampleRate))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return buf
}

func genSilence(durationMs int) []byte {
	return make([]byte, encoder.SampleRate*durationMs/1000*2)
}

func TestVADDetectsTone(t *testing.T) {
	vp, err := newEnergyDetector()
	if err != nil {
		t.Fatal(err)
	}
	vp.Process(genTone(440, 200))
	if !vp.HasSpeechTick() {
		t.Error("expected speech on a loud tone")
	}
}

func TestVADSilence(t *testing.T) {
	vp, err := newEnergyDetector()
	if err != nil {
		t.Fatal(err)
	}
	vp.Process(genSilence(200))
	if vp.HasSpeechTick() {
		t.Error("expected no speech on silence")
	}
}

func TestVADOddChunkSizes(t *testing.T) {
	vp, err := newEnergyDetector()
	if err != nil {
		t.Fatal(err)
	}
	// 100-byte chunks never line up with frame boundaries
	silence := genSilence(200)
	for i := 0; i < len(silence); i += 100 {
		vp.Process(silence[i:min(i+100, len(silence))])
	}
	if vp.HasSpeechTick() {
		t.Error("expected no speech on silence with odd chunks")
	}
}

func TestVADTickIsDelta(t *testing.T) {
	vp, err := newEnergyDetector()
	if err != nil {
		t.Fatal(err)
	}
	vp.Process(genTone(440, 200))
	vp.HasSpeechTick()
	// nothing new since the previous tick
	if vp.HasSpeechTick() {
		t.Error("expected an empty tick to report no speech")
	}
}
