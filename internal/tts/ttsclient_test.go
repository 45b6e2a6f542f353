package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientSynthesize(t *testing.T) {
	var received map[string]any
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "/v1/audio/speech", req.URL.Path, "path")
		require.Equal(t, http.MethodPost, req.Method, "method")
		require.Equal(t, "application/json", req.Header.Get("Content-Type"), "content type")

		authHeader = req.Header.Get("Authorization")

		err := json.NewDecoder(req.Body).Decode(&received)
		require.NoError(t, err, "decode request")

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("fake audio"))
	}))
	defer srv.Close()

	testee := &Client{URL: srv.URL, Client: srv.Client(), APIKey: "fake-key"}

	b, err := testee.Synthesize(context.Background(), "hello world", Options{
		Model:  "tts-1-hd",
		Voice:  "nova",
		Format: "mp3",
		Speed:  1.5,
	})

	require.NoError(t, err)
	require.Equal(t, "fake audio", string(b))
	require.Equal(t, "Bearer fake-key", authHeader, "authorization header")
	require.Equal(t, map[string]any{
		"model":           "tts-1-hd",
		"voice":           "nova",
		"input":           "hello world",
		"response_format": "mp3",
		"speed":           1.5,
	}, received, "request body")
}

func TestClientSynthesizeWithoutAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Empty(t, req.Header.Get("Authorization"), "authorization header")
		_, _ = w.Write([]byte("fake audio"))
	}))
	defer srv.Close()

	testee := &Client{URL: srv.URL}

	_, err := testee.Synthesize(context.Background(), "hello", Options{Model: "tts-1", Voice: "alloy"})

	require.NoError(t, err)
}

func TestClientSynthesizeErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{
			name:     "openai error envelope",
			status:   http.StatusUnauthorized,
			body:     `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`,
			expected: "generate speech: server responded with 401: Incorrect API key provided",
		},
		{
			name:     "plain text error",
			status:   http.StatusInternalServerError,
			body:     "boom\n",
			expected: "generate speech: server responded with 500: boom",
		},
		{
			name:     "no body",
			status:   http.StatusBadGateway,
			expected: "generate speech: server responded with 502",
		},
		{
			name:     "empty audio",
			status:   http.StatusOK,
			expected: "generate speech: server returned empty audio",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			testee := &Client{URL: srv.URL, Client: srv.Client()}

			_, err := testee.Synthesize(context.Background(), "hello", Options{Model: "tts-1", Voice: "alloy"})

			require.EqualError(t, err, tc.expected)
		})
	}
}
