// Package encoder holds the capture PCM format and the compressed
// container used for batch transcription uploads.
package encoder

import "fmt"

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096

	// BytesPerSecond of capture PCM.
	BytesPerSecond = SampleRate * Channels * BitsPerSample / 8
)

// Supported reports whether Encode accepts format.
func Supported(format string) bool {
	return format == "flac" || format == ""
}

// Encode compresses a complete PCM recording into the named upload
// format. The empty format selects FLAC.
func Encode(format string, pcm []byte) ([]byte, error) {
	if !Supported(format) {
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return FLAC(pcm)
}
