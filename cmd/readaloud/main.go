package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/mgoltzsche/readaloud/internal/audio"
	"github.com/mgoltzsche/readaloud/internal/cli"
	"github.com/mgoltzsche/readaloud/internal/input"
	"github.com/mgoltzsche/readaloud/internal/output"
	"github.com/mgoltzsche/readaloud/internal/pipeline"
	"github.com/mgoltzsche/readaloud/internal/text"
	"github.com/mgoltzsche/readaloud/internal/tts"
	"github.com/mgoltzsche/readaloud/pkg/config"
)

const (
	exitCodeError   = 1
	exitCodePartial = 2
)

func main() {
	cfg := config.Defaults()
	err := config.LoadDefault(&cfg)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(exitCodeError)
	}

	src := input.Source{}
	listDevices := false

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [FLAGS] [FILE]\n\nReads the text from FILE (or stdin if FILE is -) aloud.\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	addFlags(flag.CommandLine, &cfg, &src, &listDevices)

	err = cli.ParseFlagsWithEnvVars(flag.CommandLine, "READALOUD_", os.Args[1:], os.Environ())
	if err != nil {
		flag.Usage()
		slog.Error(err.Error())
		os.Exit(exitCodeError)
	}

	if listDevices {
		err = portaudio.Initialize()
		if err != nil {
			slog.Error(fmt.Sprintf("initialize portaudio: %s", err))
			os.Exit(exitCodeError)
		}

		audio.PrintAvailableDevices()
		_ = portaudio.Terminate()

		return
	}

	switch flag.NArg() {
	case 0:
	case 1:
		src.File = flag.Arg(0)
	default:
		flag.Usage()
		slog.Error("more than one input file specified")
		os.Exit(exitCodeError)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcome, err := run(ctx, cfg, src)
	if err != nil {
		slog.Error(err.Error())
		stop()
		os.Exit(exitCodeError)
	}

	if !outcome.Complete() {
		stop()
		os.Exit(exitCodePartial)
	}
}

func addFlags(flags *flag.FlagSet, cfg *config.Configuration, src *input.Source, listDevices *bool) {
	configFlag := &config.Flag{File: config.DefaultFile(), Config: cfg}

	flags.Var(configFlag, "config", "Path to the configuration file (loaded before the other flags are applied)")
	flags.StringVar(&cfg.ServerURL, "server-url", cfg.ServerURL, "URL pointing to the OpenAI API compatible speech server")
	flags.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key used to authenticate with the server (falls back to OPENAI_API_KEY)")
	flags.StringVar(&cfg.Model, "model", cfg.Model, "name of the TTS model to use (overrides -hd)")
	flags.BoolVar(&cfg.HD, "hd", cfg.HD, fmt.Sprintf("use the %s instead of the %s model", config.ModelHD, config.ModelStandard))
	flags.StringVar(&cfg.Voice, "voice", cfg.Voice, fmt.Sprintf("voice to use, one of %v", config.Voices))
	flags.StringVar(&cfg.Voice, "v", cfg.Voice, "shorthand for -voice")
	flags.StringVar(&cfg.Format, "format", cfg.Format, fmt.Sprintf("audio format, one of %v", config.Formats))
	flags.StringVar(&cfg.Format, "f", cfg.Format, "shorthand for -format")
	flags.Float64Var(&cfg.Speed, "speed", cfg.Speed, "speed of the generated speech (0.25 - 4.0)")
	flags.Float64Var(&cfg.Speed, "s", cfg.Speed, "shorthand for -speed")
	flags.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "write the audio into the given file (- for stdout) instead of playing it")
	flags.StringVar(&cfg.OutputFile, "o", cfg.OutputFile, "shorthand for -output")
	flags.StringVar(&cfg.OutputDevice, "output-device", cfg.OutputDevice, "name or ID of the audio output device")
	flags.BoolVar(listDevices, "list-devices", false, "list the available audio devices and exit")
	flags.IntVar(&cfg.MaxChunkLength, "max-chunk-length", cfg.MaxChunkLength, "max number of bytes of text sent within a single request")
	flags.IntVar(&cfg.ChannelCapacity, "channel-capacity", cfg.ChannelCapacity, "max number of synthesized chunks buffered before being consumed")
	flags.IntVar(&cfg.MaxConcurrency, "max-concurrency", cfg.MaxConcurrency, "max number of concurrent requests (0 means unlimited)")
	flags.Var(&cfg.Timeout, "timeout", "timeout of a single request")
	flags.BoolVar(&src.Stdin, "stdin", false, "read the text from stdin")
	flags.BoolVar(&src.Stdin, "d", false, "shorthand for -stdin")
	flags.BoolVar(&src.Clipboard, "clipboard", false, "read the text from the clipboard")
	flags.BoolVar(&src.Clipboard, "c", false, "shorthand for -clipboard")
	flags.StringVar(&src.Text, "text", "", "text to read aloud")
}

func run(ctx context.Context, cfg config.Configuration, src input.Source) (pipeline.Outcome, error) {
	err := cfg.Validate()
	if err != nil {
		return pipeline.Outcome{}, err
	}

	txt, err := input.Read(src, os.Stdin)
	if err != nil {
		return pipeline.Outcome{}, err
	}

	chunks := text.Split(txt, cfg.MaxChunkLength)
	runner := &pipeline.Runner{
		Service: &tts.Client{
			URL:    cfg.ServerURL,
			APIKey: cfg.APIKey,
			Client: &http.Client{Timeout: time.Duration(cfg.Timeout)},
		},
		Options: tts.Options{
			Model:  cfg.ModelName(),
			Voice:  cfg.Voice,
			Format: cfg.Format,
			Speed:  cfg.Speed,
		},
		ChannelCapacity: cfg.ChannelCapacity,
		MaxConcurrency:  cfg.MaxConcurrency,
	}

	if cfg.OutputFile != "" {
		return writeFile(ctx, runner, chunks, cfg.OutputFile)
	}

	return play(ctx, runner, chunks, cfg)
}

func writeFile(ctx context.Context, runner *pipeline.Runner, chunks []pipeline.Chunk, path string) (pipeline.Outcome, error) {
	if path == "-" {
		return runner.Run(ctx, chunks, &output.Writer{Writer: os.Stdout})
	}

	f, err := os.Create(path)
	if err != nil {
		return pipeline.Outcome{}, fmt.Errorf("create output file: %w", err)
	}

	outcome, err := runner.Run(ctx, chunks, &output.Writer{Writer: f})
	if err != nil {
		_ = f.Close()
		return outcome, err
	}

	err = f.Close()
	if err != nil {
		return outcome, fmt.Errorf("close output file: %w", err)
	}

	slog.Info(fmt.Sprintf("wrote %s", path))

	return outcome, nil
}

func play(ctx context.Context, runner *pipeline.Runner, chunks []pipeline.Chunk, cfg config.Configuration) (pipeline.Outcome, error) {
	err := portaudio.Initialize()
	if err != nil {
		return pipeline.Outcome{}, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	speaker, err := audio.NewDeviceSpeaker(cfg.OutputDevice)
	if err != nil {
		return pipeline.Outcome{}, err
	}

	outcome, err := runner.Run(ctx, chunks, &audio.Player{
		Format:  cfg.Format,
		Speaker: speaker,
	})

	closeErr := speaker.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("finish playback: %w", closeErr)
	}

	return outcome, err
}
