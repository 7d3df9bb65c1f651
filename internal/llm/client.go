// Package llm adapts the OpenAI API to intent completion and speech-to-text.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"path/filepath"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/kalambet/plugvox/internal/intent"
	"github.com/kalambet/plugvox/internal/retry"
)

const (
	DefaultIntentModel     = "gpt-4o-mini"
	DefaultTranscribeModel = "whisper-1"
	defaultAudioName       = "omi-audio.wav"
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("llm: OpenAI API key not configured")
	// ErrEmptyAudio is returned for zero-length uploads.
	ErrEmptyAudio = errors.New("llm: audio is empty")
)

// Options configures a Client.
type Options struct {
	APIKey          string
	BaseURL         string
	IntentModel     string
	TranscribeModel string
	HTTPClient      *http.Client
}

// Client implements intent.Completer and speech-to-text over the OpenAI API.
// SDK retries are disabled; callers own the retry policy.
type Client struct {
	api             openai.Client
	configured      bool
	intentModel     string
	transcribeModel string
}

// New creates a Client. A missing API key is reported by each call, not here.
func New(opts Options) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	c := &Client{
		api:             openai.NewClient(reqOpts...),
		configured:      opts.APIKey != "",
		intentModel:     opts.IntentModel,
		transcribeModel: opts.TranscribeModel,
	}
	if c.intentModel == "" {
		c.intentModel = DefaultIntentModel
	}
	if c.transcribeModel == "" {
		c.transcribeModel = DefaultTranscribeModel
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.configured }

// Complete sends one chat completion constrained by schema and returns the
// raw message content, which may be empty.
func (c *Client) Complete(ctx context.Context, system, user string, schema intent.Schema) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.intentModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        schema.Name,
					Description: openai.String("Smart-plug control intent"),
					Schema:      schema.Doc,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return "", classify(fmt.Errorf("chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe converts recorded audio to text. filename hints the container
// format and defaults to a wav name.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if !c.configured {
		return "", ErrNotConfigured
	}
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if filename == "" {
		filename = defaultAudioName
	}
	ctype := mime.TypeByExtension(filepath.Ext(filename))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	resp, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), filename, ctype),
		Model: openai.AudioModel(c.transcribeModel),
	})
	if err != nil {
		return "", classify(fmt.Errorf("transcription: %w", err))
	}
	return resp.Text, nil
}

// classify marks rate limiting, server errors and network failures as
// transient.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return retry.Transient(err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return retry.Transient(err)
	}
	return err
}
