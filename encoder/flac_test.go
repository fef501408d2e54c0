package encoder

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/mewkiz/flac"
)

// tone renders n samples of a sine wave as capture PCM.
func tone(n int, freq float64) []byte {
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(math.Sin(2*math.Pi*freq*float64(i)/SampleRate) * 8000)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm
}

func TestFLACHeader(t *testing.T) {
	data, err := FLAC(tone(SampleRate, 440))
	if err != nil {
		t.Fatalf("FLAC: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}

	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if stream.Info.SampleRate != SampleRate {
		t.Errorf("SampleRate = %d, want %d", stream.Info.SampleRate, SampleRate)
	}
	if stream.Info.NSamples != SampleRate {
		t.Errorf("NSamples = %d, want %d", stream.Info.NSamples, SampleRate)
	}
}

func TestFLACEmpty(t *testing.T) {
	data, err := FLAC(nil)
	if err != nil {
		t.Fatalf("FLAC(nil): %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Error("empty input should still produce a stream header")
	}
}

func TestFLACPartialBlock(t *testing.T) {
	pcm := tone(BlockSize/4, 220)
	short, err := FLAC(pcm)
	if err != nil {
		t.Fatalf("FLAC partial: %v", err)
	}
	full, err := FLAC(tone(BlockSize*2, 220))
	if err != nil {
		t.Fatalf("FLAC full: %v", err)
	}
	if len(short) >= len(full) {
		t.Errorf("partial block output %d bytes, want fewer than %d", len(short), len(full))
	}
}

func TestEncode(t *testing.T) {
	for _, format := range []string{"flac", ""} {
		if !Supported(format) {
			t.Errorf("Supported(%q) = false", format)
		}
		data, err := Encode(format, tone(100, 440))
		if err != nil {
			t.Fatalf("Encode(%q): %v", format, err)
		}
		if string(data[:4]) != "fLaC" {
			t.Errorf("Encode(%q) is not FLAC", format)
		}
	}
	if Supported("ogg") {
		t.Error("ogg should not be supported")
	}
	if _, err := Encode("ogg", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSamplesAndRMS(t *testing.T) {
	// Two full-scale negative samples and a stray odd byte.
	pcm := []byte{0x00, 0x80, 0x00, 0x80, 0x7f}

	s := Samples(pcm)
	if len(s) != 2 || s[0] != -32768 {
		t.Fatalf("Samples = %v", s)
	}
	if got := RMS(pcm[:4]); math.Abs(got-1) > 1e-9 {
		t.Errorf("RMS full scale = %v, want 1", got)
	}
	if RMS(nil) != 0 {
		t.Error("RMS(nil) should be 0")
	}
	if got := Duration(BytesPerSecond * 2); got != 2 {
		t.Errorf("Duration = %v, want 2", got)
	}
}
