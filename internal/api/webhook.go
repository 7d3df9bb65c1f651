package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kalambet/plugvox/internal/credentials"
	"github.com/kalambet/plugvox/internal/transcript"
)

const maxWebhookBodySize = 1 << 20 // 1MB

// Webhook status values.
const (
	webhookOK      = "ok"
	webhookIgnored = "ignored"
	webhookReply   = "reply"
	webhookError   = "error"
)

// WebhookRequest is a transcript event from a speech-capture device.
type WebhookRequest struct {
	SessionID string               `json:"session_id"`
	Segments  []transcript.Segment `json:"segments"`
	UID       string               `json:"uid,omitempty"`
}

// WebhookResponse is always returned with HTTP 200.
type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func handleWebhook(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
		defer r.Body.Close()

		var req WebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("invalid webhook body", "error", err)
			writeJSON(w, http.StatusOK, WebhookResponse{Status: webhookError, Message: sayUnreadable})
			return
		}
		if req.UID == "" {
			req.UID = r.URL.Query().Get("uid")
		}

		creds, _ := deps.userCredentials(r, req.UID)
		writeJSON(w, http.StatusOK, respondToSpeech(r.Context(), deps, creds, req))
	}
}

// respondToSpeech runs one transcript event through the assistant. Every
// failure, including a panic, becomes a conversational reply.
func respondToSpeech(ctx context.Context, deps Deps, creds credentials.Record, req WebhookRequest) (resp WebhookResponse) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("panic handling transcript", "session_id", req.SessionID, "panic", fmt.Sprint(p))
			resp = WebhookResponse{Status: webhookError, Message: sayGeneric}
		}
	}()

	text := transcript.Extract(req.Segments)
	if text == "" {
		return WebhookResponse{Status: webhookIgnored}
	}

	log := slog.With("session_id", req.SessionID)
	log.Info("transcript received", "chars", len(text))

	out, err := deps.Assistant.Handle(ctx, creds, text)
	if err != nil {
		log.Error("handling transcript", "error", err)
		return WebhookResponse{Status: webhookError, Message: spoken(err)}
	}

	if out.Result == nil {
		return WebhookResponse{Status: webhookReply, Message: joinReply(out.Intent.AssistantMessage, out.Intent.FollowUp)}
	}
	if !out.Result.Success {
		return WebhookResponse{
			Status:  webhookError,
			Message: fmt.Sprintf("I couldn't switch %s: %s", out.Result.Device.Name, out.Result.Message),
		}
	}
	return WebhookResponse{Status: webhookOK, Message: out.Result.Message}
}

func joinReply(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
