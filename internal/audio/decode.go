package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// PCMSampleRate is the sample rate of the raw pcm response format of the speech API.
const PCMSampleRate = 24000

// Decoder decodes an encoded audio file into 16-bit PCM samples.
type Decoder func(data []byte) (*audio.IntBuffer, error)

var decoders = map[string]Decoder{
	"wav": decodeWAV,
	"mp3": decodeMP3,
	"pcm": decodePCM,
}

// DecoderFor returns the decoder for the given response format.
func DecoderFor(format string) (Decoder, error) {
	d, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("playback of audio format %q is not supported, supported formats: mp3, wav, pcm", format)
	}

	return d, nil
}

func decodeWAV(data []byte) (*audio.IntBuffer, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("read wave file headers: %w", err)
	}

	if decoder.SampleBitDepth() != 16 {
		return nil, fmt.Errorf("wave data with unsupported bit depth of %d provided, expected 16", decoder.SampleBitDepth())
	}

	if decoder.NumChans < 1 || decoder.SampleRate == 0 {
		return nil, errors.New("wave data without channels or sample rate provided")
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read full pcm buffer: %w", err)
	}

	if buffer == nil || len(buffer.Data) == 0 {
		return nil, errors.New("wave data without samples provided")
	}

	return buffer, nil
}

func decodeMP3(data []byte) (*audio.IntBuffer, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read mp3 stream: %w", err)
	}

	// go-mp3 always emits 16-bit little-endian stereo samples.
	b, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("decode mp3 stream: %w", err)
	}

	buffer, err := int16LEToBuffer(b, decoder.SampleRate(), 2)
	if err != nil {
		return nil, fmt.Errorf("decode mp3 stream: %w", err)
	}

	return buffer, nil
}

func decodePCM(data []byte) (*audio.IntBuffer, error) {
	return int16LEToBuffer(data, PCMSampleRate, 1)
}

func int16LEToBuffer(b []byte, sampleRate, channels int) (*audio.IntBuffer, error) {
	if len(b) == 0 {
		return nil, errors.New("no audio samples provided")
	}

	if len(b)%(2*channels) != 0 {
		return nil, fmt.Errorf("truncated pcm data: %d bytes is not a multiple of the frame size %d", len(b), 2*channels)
	}

	samples := make([]int, len(b)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(b[2*i:])))
	}

	return &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: channels},
		Data:           samples,
		SourceBitDepth: 16,
	}, nil
}

// toMono averages the channels of the given interleaved buffer.
func toMono(buf *audio.IntBuffer) []int16 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	out := make([]int16, len(buf.Data)/channels)

	for i := range out {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}

		out[i] = int16(sum / channels)
	}

	return out
}

// resampleInt16 converts the samples from one sample rate into another using linear interpolation.
func resampleInt16(input []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(input) == 0 {
		return input
	}

	outLen := int(int64(len(input)) * int64(toRate) / int64(fromRate))
	out := make([]int16, outLen)
	ratio := float64(fromRate) / float64(toRate)

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(input)-1 {
			out[i] = input[len(input)-1]
			continue
		}

		frac := pos - float64(idx)
		out[i] = int16(float64(input[idx])*(1-frac) + float64(input[idx+1])*frac)
	}

	return out
}
