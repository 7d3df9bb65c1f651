package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kalambet/plugvox/internal/control"
	"github.com/kalambet/plugvox/internal/device"
	"github.com/kalambet/plugvox/internal/intent"
	"github.com/kalambet/plugvox/internal/llm"
	"github.com/kalambet/plugvox/internal/retry"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"status":  statusError,
		"message": fmt.Sprintf(format, args...),
	})
}

const loginRequired = "Please log in at /login to configure smart-plug credentials."

// commandError maps an executor failure on a direct endpoint to a status code
// and message.
func commandError(err error) (int, string) {
	var (
		authErr     *control.AuthError
		notFoundErr *control.DeviceNotFoundError
	)
	switch {
	case errors.Is(err, control.ErrCredentialsMissing):
		return http.StatusUnauthorized, loginRequired
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, "The smart-plug cloud rejected the saved credentials. Log in again at /login."
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, fmt.Sprintf("Device %q not found.", notFoundErr.Query)
	case errors.Is(err, device.ErrNoDevices):
		return http.StatusNotFound, "No smart plugs found on the account."
	default:
		return http.StatusBadGateway, fmt.Sprintf("Smart-plug cloud request failed: %v", err)
	}
}

// Spoken replies for failures on the conversational paths.
const (
	sayLogin         = "I need your smart-plug account first. Sign in at /login."
	sayAuth          = "I couldn't sign in to your smart-plug account."
	sayNoDevices     = "I couldn't find any smart plugs on your account."
	sayNotFound      = "I couldn't find a device called %q."
	sayNotUnderstood = "Sorry, I couldn't understand that."
	sayBusy          = "The smart-home service is busy right now. Please try again in a moment."
	sayGeneric       = "Something went wrong while handling that. Please try again."
	sayUnreadable    = "Sorry, I couldn't read that request."
)

// spoken turns any failure into a short conversational message.
func spoken(err error) string {
	var (
		authErr     *control.AuthError
		notFoundErr *control.DeviceNotFoundError
		parseErr    *intent.ParseError
	)
	switch {
	case errors.Is(err, control.ErrCredentialsMissing):
		return sayLogin
	case errors.As(err, &authErr):
		return sayAuth
	case errors.Is(err, device.ErrNoDevices):
		return sayNoDevices
	case errors.As(err, &notFoundErr):
		return fmt.Sprintf(sayNotFound, notFoundErr.Query)
	case errors.As(err, &parseErr),
		errors.Is(err, intent.ErrEmptyResponse),
		errors.Is(err, intent.ErrEmptyTranscript),
		errors.Is(err, llm.ErrNotConfigured):
		return sayNotUnderstood
	case retry.IsTransient(err):
		return sayBusy
	default:
		return sayGeneric
	}
}
