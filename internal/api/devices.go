package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/kalambet/plugvox/internal/control"
	"github.com/kalambet/plugvox/internal/device"
	"github.com/kalambet/plugvox/internal/intent"
)

// DeviceList is the body of GET /devices.
type DeviceList struct {
	Devices []device.Record `json:"devices"`
	Count   int             `json:"count"`
}

// SwitchResponse is the body of GET /on and GET /off.
type SwitchResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Device  *device.Record `json:"device,omitempty"`
}

func handleDevices(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, ok := deps.userCredentials(r, "")
		if !ok {
			httpError(w, http.StatusUnauthorized, loginRequired)
			return
		}

		devices, err := deps.Executor.Devices(r.Context(), creds)
		if err != nil {
			slog.Error("listing devices", "error", err)
			code, msg := commandError(err)
			httpError(w, code, "%s", msg)
			return
		}
		if devices == nil {
			devices = []device.Record{}
		}
		writeJSON(w, http.StatusOK, DeviceList{Devices: devices, Count: len(devices)})
	}
}

// handleSwitch turns a device on or off. ?device= selects by uuid and takes
// precedence over ?name=; with neither the default device is used.
func handleSwitch(deps Deps, on bool) http.HandlerFunc {
	action := intent.ActionTurnOff
	if on {
		action = intent.ActionTurnOn
	}

	return func(w http.ResponseWriter, r *http.Request) {
		creds, ok := deps.userCredentials(r, "")
		if !ok {
			httpError(w, http.StatusUnauthorized, loginRequired)
			return
		}

		q := r.URL.Query()
		target := control.Target{
			UUID:  strings.TrimSpace(q.Get("device")),
			Query: strings.TrimSpace(q.Get("name")),
		}

		res, err := deps.Executor.Execute(r.Context(), creds, target, action)
		if err != nil {
			slog.Error("device command failed", "action", string(action), "error", err)
			code, msg := commandError(err)
			httpError(w, code, "%s", msg)
			return
		}

		resp := SwitchResponse{Status: statusSuccess, Message: res.Message, Device: &res.Device}
		code := http.StatusOK
		if !res.Success {
			resp.Status = statusError
			code = http.StatusBadGateway
		}
		writeJSON(w, code, resp)
	}
}
