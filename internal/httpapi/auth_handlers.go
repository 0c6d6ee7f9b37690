package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"nexchat.app/internal/audit"
	"nexchat.app/internal/directory"
	"nexchat.app/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Admin     directory.Admin `json:"admin"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	admin, err := a.directory.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrInvalidCredentials), errors.Is(err, directory.ErrInactive):
			a.recorder.Record(r.Context(), audit.Event{
				Type:       audit.EventLoginFailed,
				AdminEmail: strings.ToLower(strings.TrimSpace(req.Email)),
				Details:    err.Error(),
			})
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, directory.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "login failed")
		}
		return
	}

	sess, err := a.sessions.Create(r.Context(), admin.Email, admin.Role)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "session creation failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Admin:     admin,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	if err := a.sessions.Invalidate(r.Context(), token, "logout"); err != nil {
		writeError(w, r, http.StatusInternalServerError, "logout failed")
		return
	}
	if sess, ok := session.FromContext(r.Context()); ok {
		a.directory.SignOut(r.Context(), sess.AdminEmail)
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"admin_email":      sess.AdminEmail,
		"role":             sess.Role,
		"created_at":       sess.CreatedAt,
		"last_activity_at": sess.LastActivityAt,
		"expires_at":       sess.ExpiresAt,
	})
}
