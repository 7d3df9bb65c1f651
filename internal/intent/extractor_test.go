package intent

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/plugvox/internal/retry"
)

// mockCompleter implements Completer for testing. Each call consumes the next
// scripted reply; the last one repeats.
type mockCompleter struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	delay   time.Duration

	lastSystem string
	lastUser   string
	lastSchema Schema
}

type reply struct {
	content string
	err     error
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string, schema Schema) (string, error) {
	m.mu.Lock()
	idx := m.calls
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	m.calls++
	m.lastSystem, m.lastUser, m.lastSchema = system, user, schema
	r := m.replies[idx]
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.content, r.err
}

var testPolicy = retry.Policy{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond}

func newTestExtractor(m *mockCompleter) *Extractor {
	return NewExtractor(m, "Living Room").WithPolicy(testPolicy, time.Second)
}

func TestInfer_TurnOn(t *testing.T) {
	mock := &mockCompleter{replies: []reply{{
		content: `{"action":"turn_on","device":"kitchen light","assistant_message":"Turning on the kitchen light.","follow_up":""}`,
	}}}
	e := newTestExtractor(mock)

	got, err := e.Infer(context.Background(), "turn on the kitchen light")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	want := Intent{
		Action:           ActionTurnOn,
		Device:           "kitchen light",
		AssistantMessage: "Turning on the kitchen light.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Infer() = %+v, want %+v", got, want)
	}
	if mock.lastUser != "turn on the kitchen light" {
		t.Errorf("user message = %q", mock.lastUser)
	}
	if mock.lastSchema.Name != SchemaName {
		t.Errorf("schema name = %q, want %q", mock.lastSchema.Name, SchemaName)
	}
}

func TestInfer_NoneIntent(t *testing.T) {
	mock := &mockCompleter{replies: []reply{{
		content: `{"action":"none","device":"","assistant_message":"Hmm, not sure.","follow_up":"Which device did you mean?"}`,
	}}}
	got, err := newTestExtractor(mock).Infer(context.Background(), "what's the weather")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if got.Action != ActionNone {
		t.Errorf("Action = %q, want none", got.Action)
	}
	if got.Action.Actionable() {
		t.Error("none reported actionable")
	}
	if got.FollowUp != "Which device did you mean?" {
		t.Errorf("FollowUp = %q", got.FollowUp)
	}
}

func TestInfer_MalformedJSON(t *testing.T) {
	mock := &mockCompleter{replies: []reply{{content: `not valid json {{{`}}}
	_, err := newTestExtractor(mock).Infer(context.Background(), "lights on")

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if pe.Raw != "not valid json {{{" {
		t.Errorf("Raw = %q", pe.Raw)
	}
	if mock.calls != 1 {
		t.Errorf("calls = %d, want 1 (parse errors are not retried)", mock.calls)
	}
}

func TestInfer_SchemaViolation(t *testing.T) {
	tests := map[string]string{
		"unknown action":   `{"action":"dim","device":"lamp","assistant_message":"ok","follow_up":""}`,
		"missing field":    `{"action":"turn_on","device":"lamp","assistant_message":"ok"}`,
		"extra field":      `{"action":"turn_on","device":"lamp","assistant_message":"ok","follow_up":"","brightness":3}`,
		"wrong field type": `{"action":"turn_on","device":7,"assistant_message":"ok","follow_up":""}`,
		"not an object":    `["turn_on"]`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			mock := &mockCompleter{replies: []reply{{content: content}}}
			got, err := newTestExtractor(mock).Infer(context.Background(), "lamp on")

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if got != (Intent{}) {
				t.Errorf("Infer() = %+v, want zero intent", got)
			}
		})
	}
}

func TestInfer_EmptyResponse(t *testing.T) {
	mock := &mockCompleter{replies: []reply{{content: "   "}}}
	_, err := newTestExtractor(mock).Infer(context.Background(), "lights on")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestInfer_EmptyTranscript(t *testing.T) {
	mock := &mockCompleter{replies: []reply{{content: `{}`}}}
	_, err := newTestExtractor(mock).Infer(context.Background(), "  ")
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("err = %v, want ErrEmptyTranscript", err)
	}
	if mock.calls != 0 {
		t.Errorf("calls = %d, want 0", mock.calls)
	}
}

func TestInfer_RetriesTransientFailures(t *testing.T) {
	mock := &mockCompleter{replies: []reply{
		{err: retry.Transient(errors.New("503 service unavailable"))},
		{err: retry.Transient(errors.New("connection reset"))},
		{content: `{"action":"turn_off","device":"","assistant_message":"Off it goes.","follow_up":""}`},
	}}
	got, err := newTestExtractor(mock).Infer(context.Background(), "switch it off")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if got.Action != ActionTurnOff {
		t.Errorf("Action = %q, want turn_off", got.Action)
	}
	if mock.calls != 3 {
		t.Errorf("calls = %d, want 3", mock.calls)
	}
}

func TestInfer_TransientExhausted(t *testing.T) {
	cause := errors.New("502 bad gateway")
	mock := &mockCompleter{replies: []reply{{err: retry.Transient(cause)}}}
	_, err := newTestExtractor(mock).Infer(context.Background(), "lights on")
	if !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapping %v", err, cause)
	}
	if mock.calls != 3 {
		t.Errorf("calls = %d, want 3", mock.calls)
	}
}

func TestInfer_PermanentErrorNotRetried(t *testing.T) {
	mock := &mockCompleter{replies: []reply{{err: fmt.Errorf("401 invalid api key")}}}
	_, err := newTestExtractor(mock).Infer(context.Background(), "lights on")
	if err == nil {
		t.Fatal("expected error")
	}
	if mock.calls != 1 {
		t.Errorf("calls = %d, want 1", mock.calls)
	}
}

func TestInfer_AttemptTimeoutIsRetried(t *testing.T) {
	mock := &mockCompleter{
		replies: []reply{{content: `{"action":"none","device":"","assistant_message":"","follow_up":""}`}},
		delay:   200 * time.Millisecond,
	}
	e := NewExtractor(mock, "").WithPolicy(testPolicy, 20*time.Millisecond)

	start := time.Now()
	_, err := e.Infer(context.Background(), "hello")
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if mock.calls != 3 {
		t.Errorf("calls = %d, want 3", mock.calls)
	}
	if elapsed > time.Second {
		t.Errorf("Infer took %v, per-attempt timeout not applied", elapsed)
	}
}
