package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/plugvox/internal/retry"
)

const attemptTimeout = 30 * time.Second

var (
	// ErrEmptyTranscript is returned when there is no speech to interpret.
	ErrEmptyTranscript = errors.New("intent: empty transcript")
	// ErrEmptyResponse is returned when the model replies with no content.
	ErrEmptyResponse = errors.New("intent: empty model response")
)

// ParseError reports a model reply that is not valid JSON or does not match
// the intent schema. It is permanent for the call that produced it.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("intent: parsing model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Action is the control decision derived from speech.
type Action string

const (
	ActionTurnOn  Action = "turn_on"
	ActionTurnOff Action = "turn_off"
	ActionNone    Action = "none"
)

// Actionable reports whether the action switches a device.
func (a Action) Actionable() bool {
	return a == ActionTurnOn || a == ActionTurnOff
}

// Intent is the structured decision inferred from a transcript.
type Intent struct {
	Action           Action `json:"action"`
	Device           string `json:"device"`
	AssistantMessage string `json:"assistant_message"`
	FollowUp         string `json:"follow_up"`
}

// Completer is a language-model completion endpoint that honours a JSON
// schema for its output.
type Completer interface {
	Complete(ctx context.Context, system, user string, schema Schema) (string, error)
}

// Extractor turns transcripts into intents with a single constrained
// completion per call, retrying only transient failures.
type Extractor struct {
	client  Completer
	prompt  string
	policy  retry.Policy
	timeout time.Duration
}

// NewExtractor creates an Extractor. defaultDevice is mentioned in the system
// prompt and may be empty.
func NewExtractor(client Completer, defaultDevice string) *Extractor {
	return &Extractor{
		client:  client,
		prompt:  BuildPrompt(defaultDevice),
		policy:  retry.LLMPolicy,
		timeout: attemptTimeout,
	}
}

// WithPolicy returns a copy of the Extractor using the given retry policy and
// per-attempt timeout.
func (e *Extractor) WithPolicy(p retry.Policy, timeout time.Duration) *Extractor {
	cp := *e
	cp.policy = p
	if timeout > 0 {
		cp.timeout = timeout
	}
	return &cp
}

// Infer asks the model for the intent behind transcript. Parse and empty
// response failures are returned as-is and never defaulted to ActionNone.
func (e *Extractor) Infer(ctx context.Context, transcript string) (Intent, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Intent{}, ErrEmptyTranscript
	}

	schema := OutputSchema()
	var raw string
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		out, err := e.client.Complete(attemptCtx, e.prompt, transcript, schema)
		if err != nil {
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return retry.Transient(err)
			}
			slog.Warn("intent completion failed", "error", err, "transient", retry.IsTransient(err))
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return Intent{}, fmt.Errorf("intent completion: %w", err)
	}

	return parse(raw)
}

func parse(raw string) (Intent, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Intent{}, ErrEmptyResponse
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		slog.Error("failed to parse intent JSON", "error", err, "response", raw)
		return Intent{}, &ParseError{Raw: raw, Err: err}
	}
	if err := validate(doc); err != nil {
		slog.Error("intent response violates schema", "error", err, "response", raw)
		return Intent{}, &ParseError{Raw: raw, Err: err}
	}

	var result Intent
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Intent{}, &ParseError{Raw: raw, Err: err}
	}
	result.Device = strings.TrimSpace(result.Device)
	return result, nil
}
