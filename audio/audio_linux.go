//go:build linux

package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

const (
	// Pulse sources are often configured well below full scale; the
	// capture path boosts both the server volume and the samples.
	pulseSourceBoost = 3
	pulseSampleGain  = 8

	pulseRecordLatency   = 0.05
	pulsePlaybackLatency = 0.1
)

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	client, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: client}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	out := make([]DeviceInfo, 0, len(sources))
	for _, src := range sources {
		out = append(out, DeviceInfo{ID: src.ID(), Name: src.Name()})
	}
	return out, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &pulseCapture{client: p.client, device: device, rate: int(config.SampleRate)}, nil
}

func (p *pulseContext) NewPlayback(config PlaybackConfig) (PlaybackDevice, error) {
	switch config.Channels {
	case 0, 1, 2:
		return &pulsePlayback{client: p.client, config: config}, nil
	default:
		return nil, fmt.Errorf("pulse playback: unsupported channel count %d", config.Channels)
	}
}

func (p *pulseContext) Close() { p.client.Close() }

// amplify converts samples to little-endian PCM with a fixed gain,
// clipping at the int16 range.
func amplify(samples []int16, gain int32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := min(max(int32(s)*gain, -32768), 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

type pulseCapture struct {
	callbackSlot
	client *pulse.Client
	device *DeviceInfo
	rate   int

	mu      sync.Mutex
	running chan struct{} // closed to stop the record stream
	stopped chan struct{}
}

func (c *pulseCapture) options() []pulse.RecordOption {
	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(c.rate),
		pulse.RecordLatency(pulseRecordLatency),
		pulse.RecordRawOption(func(r *proto.CreateRecordStream) {
			r.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm) * pulseSourceBoost}
		}),
	}
	if c.device == nil {
		return opts
	}
	// An unplugged source falls back to the server default.
	if src, err := c.client.SourceByID(c.device.ID); err == nil && src != nil {
		opts = append(opts, pulse.RecordSource(src))
	}
	return opts
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sink := pulse.Int16Writer(func(buf []int16) (int, error) {
		if len(buf) > 0 && c.wanted() {
			c.deliver(amplify(buf, pulseSampleGain), uint32(len(buf)))
		}
		return len(buf), nil
	})
	stream, err := c.client.NewRecord(sink, c.options()...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}

	running, stopped := make(chan struct{}), make(chan struct{})
	c.running, c.stopped = running, stopped
	go func() {
		defer close(stopped)
		stream.Start()
		<-running
		stream.Stop()
		stream.Close()
	}()
	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running == nil {
		return
	}
	close(c.running)
	<-c.stopped
	c.running, c.stopped = nil, nil
}

func (c *pulseCapture) Close() { c.Stop() }

func (c *pulseCapture) DeviceName() string { return deviceName(c.device) }

type pulsePlayback struct {
	client *pulse.Client
	config PlaybackConfig
	mu     sync.Mutex
}

// pcmSource adapts a byte reader to pulse's int16 pull callback.
type pcmSource struct {
	r   io.Reader
	raw []byte
	err error
}

func (s *pcmSource) read(buf []int16) (int, error) {
	if cap(s.raw) < len(buf)*2 {
		s.raw = make([]byte, len(buf)*2)
	}
	n, done, err := readPCM(s.r, s.raw[:len(buf)*2])
	frames := n / 2
	for i := range frames {
		buf[i] = int16(binary.LittleEndian.Uint16(s.raw[i*2:]))
	}
	if err != nil {
		s.err = err
	}
	if done && (frames == 0 || err != nil) {
		return frames, pulse.EndOfData
	}
	return frames, nil
}

func (pb *pulsePlayback) Play(ctx context.Context, pcm io.Reader) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	layout := pulse.PlaybackMono
	if pb.config.Channels == 2 {
		layout = pulse.PlaybackStereo
	}
	src := &pcmSource{r: pcm}
	stream, err := pb.client.NewPlayback(pulse.Int16Reader(src.read),
		layout,
		pulse.PlaybackSampleRate(int(pb.config.SampleRate)),
		pulse.PlaybackLatency(pulsePlaybackLatency),
	)
	if err != nil {
		return fmt.Errorf("pulse playback: %w", err)
	}
	defer stream.Close()

	stream.Start()
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		stream.Drain()
	}()

	select {
	case <-drained:
		stream.Stop()
	case <-ctx.Done():
		stream.Stop()
		return ctx.Err()
	}
	if src.err != nil {
		return fmt.Errorf("playback source: %w", src.err)
	}
	return stream.Error()
}

func (pb *pulsePlayback) Close() {}
