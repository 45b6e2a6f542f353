package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mgoltzsche/readaloud/internal/cli"
	"github.com/mgoltzsche/readaloud/internal/input"
	"github.com/mgoltzsche/readaloud/pkg/config"
)

func fakeSpeechServer(t *testing.T, fail map[string]bool) *httptest.Server {
	mutex := &sync.Mutex{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Input string `json:"input"`
			Voice string `json:"voice"`
		}

		err := json.NewDecoder(req.Body).Decode(&body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mutex.Lock()
		failed := fail[body.Input]
		mutex.Unlock()

		if failed {
			http.Error(w, `{"error":{"message":"fake failure"}}`, http.StatusInternalServerError)
			return
		}

		_, _ = w.Write([]byte("[" + body.Voice + ":" + body.Input + "]"))
	}))
}

func TestRunWritesOutputFile(t *testing.T) {
	srv := fakeSpeechServer(t, nil)
	defer srv.Close()

	cfg := config.Defaults()
	cfg.ServerURL = srv.URL
	cfg.Voice = "onyx"
	cfg.MaxChunkLength = 5
	cfg.OutputFile = filepath.Join(t.TempDir(), "out.mp3")

	outcome, err := run(context.Background(), cfg, input.Source{Text: "one two three four"})

	require.NoError(t, err)
	require.True(t, outcome.Complete(), "complete")

	b, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	require.Equal(t, "[onyx:one][onyx:two][onyx:three][onyx:four]", string(b))
}

func TestRunWritesPartialOutputFile(t *testing.T) {
	srv := fakeSpeechServer(t, map[string]bool{"three": true})
	defer srv.Close()

	cfg := config.Defaults()
	cfg.ServerURL = srv.URL
	cfg.MaxChunkLength = 1
	cfg.OutputFile = filepath.Join(t.TempDir(), "out.mp3")

	outcome, err := run(context.Background(), cfg, input.Source{Text: "one two three four"})

	require.NoError(t, err)
	require.False(t, outcome.Complete(), "complete")
	require.Equal(t, []int{2}, outcome.Failed, "failed")
	require.Equal(t, []int{3}, outcome.Stranded, "stranded")

	b, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	require.Equal(t, "[alloy:one][alloy:two]", string(b))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Voice = "robot"

	_, err := run(context.Background(), cfg, input.Source{Text: "text"})

	require.Error(t, err)
}

func parseFlags(t *testing.T, args, env []string) (config.Configuration, input.Source, *flag.FlagSet) {
	cfg := config.Defaults()
	src := input.Source{}
	listDevices := false
	flags := flag.NewFlagSet("readaloud", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	addFlags(flags, &cfg, &src, &listDevices)

	err := cli.ParseFlagsWithEnvVars(flags, "READALOUD_", args, env)
	require.NoError(t, err)

	return cfg, src, flags
}

func TestFlagShorthands(t *testing.T) {
	cfg, src, flags := parseFlags(t, []string{"-f", "wav", "-v", "nova", "-s", "1.5", "-c", "-d", "-o", "out.wav", "input.txt"}, nil)

	require.Equal(t, "wav", cfg.Format, "format")
	require.Equal(t, "nova", cfg.Voice, "voice")
	require.Equal(t, 1.5, cfg.Speed, "speed")
	require.Equal(t, "out.wav", cfg.OutputFile, "output file")
	require.True(t, src.Clipboard, "clipboard")
	require.True(t, src.Stdin, "stdin")
	require.Equal(t, []string{"input.txt"}, flags.Args(), "args")
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(configFile, []byte("voice: echo\nformat: wav\n"), 0o600)
	require.NoError(t, err)

	cfg, _, _ := parseFlags(t, []string{"-v", "nova", "-config", configFile}, []string{
		"READALOUD_API_KEY=secret",
		"READALOUD_CHANNEL_CAPACITY=7",
	})

	require.Equal(t, "nova", cfg.Voice, "voice")
	require.Equal(t, "wav", cfg.Format, "format")
	require.Equal(t, "secret", cfg.APIKey, "api key")
	require.Equal(t, 7, cfg.ChannelCapacity, "channel capacity")
}
