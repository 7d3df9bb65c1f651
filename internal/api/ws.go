package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 10 * time.Second
	wsReadLimit = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Speech-capture apps connect from arbitrary origins; the webhook
	// token guards the route when configured.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleTranscriptSocket accepts a stream of webhook payloads over one
// websocket and answers each frame with a webhook response frame.
func handleTranscriptSocket(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(wsReadLimit)

		connID := uuid.NewString()
		log := slog.With("conn_id", connID)
		log.Info("transcript socket connected")
		defer log.Info("transcript socket closed")

		queryUID := r.URL.Query().Get("uid")
		ctx := r.Context()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				var closeErr *websocket.CloseError
				if !errors.As(err, &closeErr) {
					log.Warn("reading frame", "error", err)
				}
				return
			}

			var resp WebhookResponse
			var req WebhookRequest
			if err := json.Unmarshal(data, &req); err != nil {
				resp = WebhookResponse{Status: webhookError, Message: sayUnreadable}
			} else {
				if req.UID == "" {
					req.UID = queryUID
				}
				creds, _ := deps.userCredentials(r, req.UID)
				resp = respondToSpeech(ctx, deps, creds, req)
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(resp); err != nil {
				log.Warn("writing frame", "error", err)
				return
			}
		}
	}
}
