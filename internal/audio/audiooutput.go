package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"

	"github.com/mgoltzsche/readaloud/internal/model"
)

type Fragment = model.Fragment

// Speaker plays decoded audio. Play returns once the audio has been handed to the output.
type Speaker interface {
	Play(ctx context.Context, buf *audio.IntBuffer) error
}

// Player decodes fragments and plays them one after another.
type Player struct {
	Format  string
	Speaker Speaker
}

// Consume decodes the given fragment and plays it before the next fragment is accepted.
// A fragment that cannot be decoded is skipped: the returned error wraps model.ErrFragmentSkipped.
func (p *Player) Consume(ctx context.Context, f Fragment) error {
	decode, err := DecoderFor(p.Format)
	if err != nil {
		return err
	}

	buf, err := decode(f.Audio)
	if err != nil {
		return fmt.Errorf("%w: decode %s audio of chunk %d: %w", model.ErrFragmentSkipped, p.Format, f.Index, err)
	}

	slog.Debug(fmt.Sprintf("playing chunk %d (%s)", f.Index, duration(buf)))

	err = p.Speaker.Play(ctx, buf)
	if err != nil {
		return fmt.Errorf("play audio of chunk %d: %w", f.Index, err)
	}

	return nil
}

func duration(buf *audio.IntBuffer) time.Duration {
	channels := buf.Format.NumChannels
	if channels < 1 || buf.Format.SampleRate <= 0 {
		return 0
	}

	frames := len(buf.Data) / channels

	return time.Duration(frames) * time.Second / time.Duration(buf.Format.SampleRate)
}

// DeviceSpeaker plays audio on an output device using PortAudio.
// It keeps a single output stream open across fragments so that consecutive fragments play without a gap.
// PortAudio must have been initialized before.
type DeviceSpeaker struct {
	device *portaudio.DeviceInfo
	stream *portaudio.Stream
	frames *frameBuffer
}

// NewDeviceSpeaker looks up the output device by name or ID. An empty string selects the default device.
func NewDeviceSpeaker(deviceNameOrID string) (*DeviceSpeaker, error) {
	device, err := outputDevice(deviceNameOrID)
	if err != nil {
		return nil, err
	}

	return &DeviceSpeaker{device: device}, nil
}

// Play converts the audio into mono at the device's sample rate and writes it into the output stream.
// It returns when the last samples have been queued; Close waits for them to be played.
func (s *DeviceSpeaker) Play(ctx context.Context, buf *audio.IntBuffer) error {
	err := s.open()
	if err != nil {
		return err
	}

	samples := resampleInt16(toMono(buf), buf.Format.SampleRate, int(s.device.DefaultSampleRate))

	return s.frames.Write(ctx, samples)
}

func (s *DeviceSpeaker) open() error {
	if s.stream != nil {
		return nil
	}

	out := make([]int16, 512*9)

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   s.device,
			Channels: 1,
			Latency:  s.device.DefaultLowOutputLatency,
		},
		SampleRate:      s.device.DefaultSampleRate,
		FramesPerBuffer: len(out),
	}, &out)
	if err != nil {
		return fmt.Errorf("open audio output stream: %w", err)
	}

	err = stream.Start()
	if err != nil {
		_ = stream.Close()
		return fmt.Errorf("start audio output stream: %w", err)
	}

	s.stream = stream
	s.frames = &frameBuffer{out: out, write: stream.Write}

	return nil
}

// Close plays the remaining buffered samples and closes the output stream.
func (s *DeviceSpeaker) Close() error {
	if s.stream == nil {
		return nil
	}

	s.frames.Flush()

	// Stop returns after the queued buffers have been played.
	stopErr := s.stream.Stop()
	if stopErr != nil {
		stopErr = fmt.Errorf("stop audio output stream: %w", stopErr)
	}

	closeErr := s.stream.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close audio output stream: %w", closeErr)
	}

	s.stream = nil
	s.frames = nil

	return errors.Join(stopErr, closeErr)
}

// frameBuffer fills the fixed-size stream buffer with the samples of consecutive fragments.
// A buffer is only written when it is full, except for the last one which Flush pads with silence.
type frameBuffer struct {
	out   []int16
	n     int
	write func() error
}

func (b *frameBuffer) Write(ctx context.Context, samples []int16) error {
	for len(samples) > 0 {
		c := copy(b.out[b.n:], samples)
		b.n += c
		samples = samples[c:]

		if b.n < len(b.out) {
			break
		}

		b.writeBuffer()

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

func (b *frameBuffer) Flush() {
	if b.n == 0 {
		return
	}

	for i := b.n; i < len(b.out); i++ {
		b.out[i] = 0
	}

	b.writeBuffer()
}

func (b *frameBuffer) writeBuffer() {
	err := b.write()
	if err != nil {
		// Occasional underflows don't impact the playback significantly.
		slog.Warn("play audio: write buffer", "err", err)
	}

	b.n = 0
}
