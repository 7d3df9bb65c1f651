package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kalambet/plugvox/internal/credentials"
	"github.com/kalambet/plugvox/internal/intent"
)

// ErrCredentialsMissing is returned when a command needs a vendor account and
// none is configured.
var ErrCredentialsMissing = errors.New("control: vendor credentials not configured")

// ErrInference wraps failures to derive an intent from speech.
var ErrInference = errors.New("control: intent inference failed")

// Inferer derives an intent from a transcript.
type Inferer interface {
	Infer(ctx context.Context, transcript string) (intent.Intent, error)
}

// Outcome is the result of handling one utterance. Result is nil when no
// command was sent.
type Outcome struct {
	Transcript string        `json:"transcript"`
	Intent     intent.Intent `json:"intent"`
	Result     *Result       `json:"result,omitempty"`
}

// Assistant turns speech into device commands.
type Assistant struct {
	inferer  Inferer
	executor *Executor
}

// NewAssistant creates an Assistant.
func NewAssistant(inferer Inferer, executor *Executor) *Assistant {
	return &Assistant{inferer: inferer, executor: executor}
}

// Handle infers the intent of transcript and, when it switches a device,
// executes it with creds. The returned Outcome carries the intent even when
// execution fails.
func (a *Assistant) Handle(ctx context.Context, creds credentials.Record, transcript string) (Outcome, error) {
	out := Outcome{Transcript: transcript}

	in, err := a.inferer.Infer(ctx, transcript)
	if err != nil {
		return out, fmt.Errorf("%w: %w", ErrInference, err)
	}
	out.Intent = in

	if !in.Action.Actionable() {
		slog.Debug("no device action", "transcript", transcript)
		return out, nil
	}
	if !creds.Valid() {
		return out, ErrCredentialsMissing
	}

	res, err := a.executor.Execute(ctx, creds, Target{Query: in.Device}, in.Action)
	if err != nil {
		return out, err
	}
	out.Result = &res
	return out, nil
}
