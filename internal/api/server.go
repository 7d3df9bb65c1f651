// Package api exposes the HTTP, websocket and MCP surfaces of the gateway.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/plugvox/internal/control"
	"github.com/kalambet/plugvox/internal/credentials"
)

// Transcriber converts uploaded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Deps holds dependencies for the HTTP handlers.
type Deps struct {
	Executor    *control.Executor
	Assistant   *control.Assistant
	Transcriber Transcriber
	Store       *credentials.Store
	Signer      *credentials.Signer
	// Fallback is the configured account used when a request carries no
	// user of its own. It may be empty.
	Fallback credentials.Record
	// WebhookToken, when set, is required as a bearer token on the webhook
	// and websocket routes.
	WebhookToken string
}

// NewHandler returns the gateway's HTTP handler.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Get("/", handleHome(deps))
	r.Get("/login", handleLoginForm(deps))
	r.Post("/login", handleLogin(deps))
	r.Post("/logout", handleLogout(deps))

	r.Get("/devices", handleDevices(deps))
	r.Get("/on", handleSwitch(deps, true))
	r.Get("/off", handleSwitch(deps, false))
	r.Post("/voice", handleVoice(deps))

	r.Group(func(r chi.Router) {
		if deps.WebhookToken != "" {
			r.Use(BearerAuth(deps.WebhookToken))
		}
		r.Post("/webhook", handleWebhook(deps))
		r.Get("/ws/transcripts", handleTranscriptSocket(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// userCredentials returns the credentials for the browser session, then for
// the explicit webhook user, then the configured fallback account.
func (d Deps) userCredentials(r *http.Request, webhookUID string) (credentials.Record, bool) {
	if uid, err := d.Signer.UserID(r); err == nil {
		if rec, ok := d.Store.Get(uid); ok {
			return rec, true
		}
	}
	if webhookUID != "" {
		if rec, ok := d.Store.Get(webhookUID); ok {
			return rec, true
		}
	}
	if d.Fallback.Valid() {
		return d.Fallback, true
	}
	return credentials.Record{}, false
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
