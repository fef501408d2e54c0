package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FLAC encodes little-endian mono PCM into an in-memory FLAC stream.
// The sample count is written up front since a bytes.Buffer cannot be
// rewound to patch the header on close.
func FLAC(pcm []byte) ([]byte, error) {
	samples := Samples(pcm)

	var buf bytes.Buffer
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
		NSamples:      uint64(len(samples)),
	}
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	for off := 0; off < len(samples); off += BlockSize {
		block := samples[off:min(off+BlockSize, len(samples))]
		if err := enc.WriteFrame(monoFrame(block)); err != nil {
			return nil, fmt.Errorf("writing flac frame at sample %d: %w", off, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing flac encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func monoFrame(block []int16) *frame.Frame {
	wide := make([]int32, len(block))
	for i, s := range block {
		wide[i] = int32(s)
	}
	return &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   wide,
			NSamples:  len(block),
		}},
	}
}
