package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kalambet/plugvox/internal/control"
	"github.com/kalambet/plugvox/internal/intent"
	"github.com/kalambet/plugvox/internal/llm"
)

const maxAudioSize = 25 << 20 // 25MB, the transcription upload limit

// VoiceResponse is the body of POST /voice.
type VoiceResponse struct {
	Status       string         `json:"status"`
	Transcript   string         `json:"transcript"`
	Intent       *intent.Intent `json:"intent"`
	DeviceAction DeviceAction   `json:"device_action"`
}

// DeviceAction reports what happened to the device after a voice command.
type DeviceAction struct {
	Executed bool   `json:"executed"`
	Device   string `json:"device"`
	Message  string `json:"message,omitempty"`
}

func handleVoice(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAudioSize)
		defer r.Body.Close()

		file, hdr, err := r.FormFile("audio")
		if err != nil {
			httpError(w, http.StatusBadRequest, "Upload audio as form-data with field 'audio'.")
			return
		}
		defer file.Close()

		audio, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "reading audio: %v", err)
			return
		}

		text, err := deps.Transcriber.Transcribe(r.Context(), audio, hdr.Filename)
		switch {
		case errors.Is(err, llm.ErrEmptyAudio):
			httpError(w, http.StatusBadRequest, "Audio file is empty.")
			return
		case errors.Is(err, llm.ErrNotConfigured):
			httpError(w, http.StatusInternalServerError, "%v", err)
			return
		case err != nil:
			slog.Error("unable to transcribe audio", "error", err)
			httpError(w, http.StatusInternalServerError, "Transcription failed.")
			return
		}
		text = strings.TrimSpace(text)

		resp := VoiceResponse{Status: statusSuccess, Transcript: text}
		if text == "" {
			resp.DeviceAction.Message = "No speech detected."
			writeJSON(w, http.StatusOK, resp)
			return
		}

		creds, _ := deps.userCredentials(r, "")
		out, err := deps.Assistant.Handle(r.Context(), creds, text)
		if errors.Is(err, control.ErrInference) {
			slog.Error("intent inference failed", "error", err)
			msg := "Intent analysis failed."
			if errors.Is(err, llm.ErrNotConfigured) {
				msg = err.Error()
			}
			httpError(w, http.StatusInternalServerError, "%s", msg)
			return
		}

		resp.Intent = &out.Intent
		resp.DeviceAction.Device = out.Intent.Device
		switch {
		case errors.Is(err, control.ErrCredentialsMissing):
			resp.DeviceAction.Message = "Smart-plug credentials missing. Configure them at /login."
		case err != nil:
			slog.Error("executing device action", "error", err)
			_, msg := commandError(err)
			resp.DeviceAction.Message = msg
		case out.Result != nil:
			resp.DeviceAction.Executed = out.Result.Success
			resp.DeviceAction.Device = out.Result.Device.Name
			resp.DeviceAction.Message = out.Result.Message
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
