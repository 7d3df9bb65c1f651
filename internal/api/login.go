package api

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kalambet/plugvox/internal/control"
	"github.com/kalambet/plugvox/internal/credentials"
)

var loginPage = template.Must(template.New("login").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>plugvox - sign in</title>
<style>
body { font-family: sans-serif; max-width: 24rem; margin: 4rem auto; }
label, input, button { display: block; width: 100%; margin-bottom: .75rem; }
.error { color: #b00020; }
</style>
</head>
<body>
<h1>Smart-plug account</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/login">
<label for="email">Email</label>
<input id="email" name="email" type="email" value="{{.Email}}" required>
<label for="password">Password</label>
<input id="password" name="password" type="password" required>
{{if .UID}}<input name="uid" type="hidden" value="{{.UID}}">{{end}}
<button type="submit">Save</button>
</form>
</body>
</html>
`))

type loginView struct {
	Email string
	UID   string
	Error string
}

func renderLogin(w http.ResponseWriter, code int, view loginView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := loginPage.Execute(w, view); err != nil {
		slog.Warn("rendering login page", "error", err)
	}
}

// handleHome sends browsers without credentials to the login form and
// otherwise lists the available endpoints.
func handleHome(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := deps.userCredentials(r, ""); !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ready",
			"endpoints": map[string]string{
				"devices": "GET /devices",
				"on":      "GET /on?device=<uuid>|name=<text>",
				"off":     "GET /off?device=<uuid>|name=<text>",
				"voice":   "POST /voice (multipart field 'audio')",
				"webhook": "POST /webhook",
				"socket":  "GET /ws/transcripts",
				"logout":  "POST /logout",
			},
		})
	}
}

func handleLoginForm(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := r.URL.Query().Get("uid")
		if uid == "" {
			if _, ok := deps.userCredentials(r, ""); ok {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}
		}
		renderLogin(w, http.StatusOK, loginView{Email: deps.Fallback.Email, UID: uid})
	}
}

// handleLogin validates the submitted account against the vendor cloud
// before storing it. A hidden uid field additionally binds the account to a
// webhook user, unless another session bound that user first.
func handleLogin(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			renderLogin(w, http.StatusBadRequest, loginView{Error: "Invalid form submission."})
			return
		}
		email := strings.TrimSpace(r.PostForm.Get("email"))
		password := strings.TrimSpace(r.PostForm.Get("password"))
		formUID := strings.TrimSpace(r.PostForm.Get("uid"))

		view := loginView{Email: email, UID: formUID}
		if email == "" || password == "" {
			view.Error = "Email and password are required."
			renderLogin(w, http.StatusBadRequest, view)
			return
		}

		count, err := deps.Executor.Probe(r.Context(), credentials.Record{Email: email, Password: password})
		if err != nil {
			var authErr *control.AuthError
			if errors.As(err, &authErr) {
				view.Error = "The smart-plug cloud rejected that email and password."
				renderLogin(w, http.StatusUnauthorized, view)
				return
			}
			slog.Error("login probe failed", "email", email, "error", err)
			view.Error = "Could not reach the smart-plug cloud. Please try again."
			renderLogin(w, http.StatusBadGateway, view)
			return
		}

		uid, err := deps.Signer.UserID(r)
		if err != nil {
			uid = credentials.NewUserID()
		}
		if formUID != "" && formUID != uid {
			if err := deps.Store.Bind(formUID, uid, email, password); err != nil {
				slog.Warn("webhook user already bound", "uid", formUID, "user_id", uid)
				view.Error = "That webhook user is already linked to another session."
				renderLogin(w, http.StatusConflict, view)
				return
			}
		}
		deps.Store.Set(uid, email, password)
		deps.Signer.SetCookie(w, r, uid)

		slog.Info("credentials stored", "user_id", uid, "devices", count)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func handleLogout(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Signer.ClearCookie(w)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
