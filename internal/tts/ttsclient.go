package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mgoltzsche/readaloud/internal/model"
)

type Options = model.SynthesisOptions

type Client struct {
	URL    string
	Client *http.Client
	APIKey string
}

type speechRequest struct {
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Input          string  `json:"input"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Synthesize requests the speech for the given text and returns the audio encoded in the requested format.
func (c *Client) Synthesize(ctx context.Context, text string, opts Options) ([]byte, error) {
	body, err := json.Marshal(speechRequest{
		Model:          opts.Model,
		Voice:          opts.Voice,
		Input:          text,
		ResponseFormat: opts.Format,
		Speed:          opts.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal speech generation params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build speech generation request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate speech: %w", responseError(resp))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech generation response body: %w", err)
	}

	if len(b) == 0 {
		return nil, errors.New("generate speech: server returned empty audio")
	}

	return b, nil
}

func (c *Client) httpClient() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}

	return c.Client
}

func responseError(resp *http.Response) error {
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("server responded with %d", resp.StatusCode)
	}

	var e errorResponse
	if json.Unmarshal(b, &e) == nil && e.Error.Message != "" {
		return fmt.Errorf("server responded with %d: %s", resp.StatusCode, e.Error.Message)
	}

	if len(bytes.TrimSpace(b)) > 0 {
		return fmt.Errorf("server responded with %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}

	return fmt.Errorf("server responded with %d", resp.StatusCode)
}
