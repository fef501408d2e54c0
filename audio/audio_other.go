//go:build !linux

package audio

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("miniaudio: %w", err)
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("miniaudio devices: %w", err)
	}
	out := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, DeviceInfo{ID: hex.EncodeToString(info.ID[:]), Name: info.Name()})
	}
	return out, nil
}

// deviceConfig builds a PCM16 config for kind. A nil device selects the
// system default.
func deviceConfig(kind malgo.DeviceType, rate, channels uint32, device *DeviceInfo) (malgo.DeviceConfig, error) {
	cfg := malgo.DefaultDeviceConfig(kind)
	cfg.SampleRate = rate
	sub := &cfg.Playback
	if kind == malgo.Capture {
		sub = &cfg.Capture
	}
	sub.Format = malgo.FormatS16
	sub.Channels = channels
	if device == nil {
		return cfg, nil
	}
	raw, err := hex.DecodeString(device.ID)
	if err != nil {
		return cfg, fmt.Errorf("invalid device ID %q: %w", device.ID, err)
	}
	var id malgo.DeviceID
	copy(id[:], raw)
	sub.DeviceID = id.Pointer()
	return cfg, nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	cfg, err := deviceConfig(malgo.Capture, config.SampleRate, config.Channels, device)
	if err != nil {
		return nil, err
	}
	c := &malgoCapture{info: device}
	dev, err := malgo.InitDevice(m.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, in []byte, frames uint32) { c.deliver(in, frames) },
	})
	if err != nil {
		return nil, fmt.Errorf("miniaudio capture: %w", err)
	}
	c.device = dev
	return c, nil
}

func (m *malgoContext) NewPlayback(config PlaybackConfig) (PlaybackDevice, error) {
	return &malgoPlayback{ctx: m.ctx, config: config}, nil
}

func (m *malgoContext) Close() {
	_ = m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	callbackSlot
	device *malgo.Device
	info   *DeviceInfo
}

func (c *malgoCapture) Start() error { return c.device.Start() }

func (c *malgoCapture) Stop() { _ = c.device.Stop() }

func (c *malgoCapture) Close() { c.device.Uninit() }

func (c *malgoCapture) DeviceName() string { return deviceName(c.info) }

type malgoPlayback struct {
	ctx    *malgo.AllocatedContext
	config PlaybackConfig
	mu     sync.Mutex
}

func (p *malgoPlayback) Play(ctx context.Context, pcm io.Reader) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg, err := deviceConfig(malgo.Playback, p.config.SampleRate, p.config.Channels, nil)
	if err != nil {
		return err
	}

	var (
		finished = make(chan struct{})
		finish   sync.Once
		srcErr   error
	)
	dev, err := malgo.InitDevice(p.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			n, done, err := readPCM(pcm, out)
			clear(out[n:])
			if done {
				srcErr = err
				finish.Do(func() { close(finished) })
			}
		},
	})
	if err != nil {
		return fmt.Errorf("miniaudio playback: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("miniaudio playback start: %w", err)
	}
	select {
	case <-finished:
		_ = dev.Stop()
	case <-ctx.Done():
		_ = dev.Stop()
		return ctx.Err()
	}
	if srcErr != nil {
		return fmt.Errorf("playback source: %w", srcErr)
	}
	return nil
}

func (p *malgoPlayback) Close() {}
