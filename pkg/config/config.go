package config

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	Voices  = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}
	Formats = []string{"mp3", "opus", "aac", "flac", "wav", "pcm"}
	// PlayableFormats are the formats that can be played back instead of being written into a file.
	PlayableFormats = []string{"mp3", "wav", "pcm"}
)

const (
	ModelStandard = "tts-1"
	ModelHD       = "tts-1-hd"
)

type Configuration struct {
	ServerURL      string  `json:"serverURL"`
	APIKey         string  `json:"apiKey,omitempty"`
	Model          string  `json:"model,omitempty"`
	HD             bool    `json:"hd,omitempty"`
	Voice          string  `json:"voice,omitempty"`
	Format         string  `json:"format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
	OutputFile     string  `json:"outputFile,omitempty"`
	OutputDevice   string  `json:"outputDevice,omitempty"`
	MaxChunkLength int     `json:"maxChunkLength,omitempty"`
	// ChannelCapacity is the number of synthesized chunks buffered between the requests and the consumer.
	ChannelCapacity int `json:"channelCapacity,omitempty"`
	// MaxConcurrency limits the number of concurrent requests. 0 means unlimited.
	MaxConcurrency int      `json:"maxConcurrency,omitempty"`
	Timeout        Duration `json:"timeout,omitempty"`
}

// Duration is a time.Duration that is written as string, e.g. "90s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}

	*d = Duration(v)

	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) Set(s string) error {
	return d.UnmarshalText([]byte(s))
}

func Defaults() Configuration {
	return Configuration{
		ServerURL:       "https://api.openai.com",
		Voice:           "alloy",
		Format:          "mp3",
		Speed:           1.0,
		MaxChunkLength:  4096,
		ChannelCapacity: 32,
		Timeout:         Duration(90 * time.Second),
	}
}

// ModelName returns the configured model or the standard/HD model depending on the HD flag.
func (c *Configuration) ModelName() string {
	if c.Model != "" {
		return c.Model
	}

	if c.HD {
		return ModelHD
	}

	return ModelStandard
}

// Validate checks the configuration for values the speech API or the pipeline would reject.
func (c *Configuration) Validate() error {
	var errs []error

	if c.ServerURL == "" {
		errs = append(errs, errors.New("no server URL specified"))
	}

	if !slices.Contains(Voices, c.Voice) {
		errs = append(errs, fmt.Errorf("unsupported voice %q, supported voices: %v", c.Voice, Voices))
	}

	if !slices.Contains(Formats, c.Format) {
		errs = append(errs, fmt.Errorf("unsupported format %q, supported formats: %v", c.Format, Formats))
	} else if c.OutputFile == "" && !slices.Contains(PlayableFormats, c.Format) {
		errs = append(errs, fmt.Errorf("format %q cannot be played back, write it into a file or use one of %v", c.Format, PlayableFormats))
	}

	if c.Speed < 0.25 || c.Speed > 4 {
		errs = append(errs, fmt.Errorf("speed %v is out of range [0.25, 4.0]", c.Speed))
	}

	if c.MaxChunkLength < 1 {
		errs = append(errs, fmt.Errorf("max chunk length must be at least 1 but was %d", c.MaxChunkLength))
	}

	if c.ChannelCapacity < 1 {
		errs = append(errs, fmt.Errorf("channel capacity must be at least 1 but was %d", c.ChannelCapacity))
	}

	if c.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("max concurrency must not be negative but was %d", c.MaxConcurrency))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative but was %s", c.Timeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}

	return nil
}
