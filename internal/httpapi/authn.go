package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"nexchat.app/internal/audit"
	"nexchat.app/internal/session"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth verifies the bearer session token on every non-public request
// and attaches the verified session plus the client context for audit
// records downstream.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithClientContext(r.Context(), audit.ClientContext{
			UserAgent:  r.UserAgent(),
			RemoteAddr: clientIP(r),
		})
		r = r.WithContext(ctx)

		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		sess, err := a.sessions.Verify(ctx, token)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrExpired):
				writeError(w, r, http.StatusUnauthorized, "session expired")
			case errors.Is(err, session.ErrInactive):
				writeError(w, r, http.StatusUnauthorized, "session timed out due to inactivity")
			case errors.Is(err, session.ErrNoSession):
				writeError(w, r, http.StatusUnauthorized, "invalid session")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		// The directory is consulted on every request so deactivating or
		// removing an admin cuts off their live sessions immediately rather
		// than at token expiry.
		if !a.directory.Validate(ctx, sess.AdminEmail) {
			_ = a.sessions.Invalidate(ctx, token, "admin record invalid")
			writeError(w, r, http.StatusUnauthorized, "admin account is not active")
			return
		}

		next.ServeHTTP(w, r.WithContext(session.ContextWithSession(ctx, sess)))
	})
}

// requirePermission enforces the role grant for a handler. Denials are
// logged as security events with both the actor and the permission.
func (a *API) requirePermission(w http.ResponseWriter, r *http.Request, perm string) bool {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no session")
		return false
	}
	if !a.sessions.CanPerformAction(sess, perm) {
		a.recorder.Record(r.Context(), audit.Event{
			Type:       audit.EventPermissionDenied,
			AdminEmail: sess.AdminEmail,
			Role:       sess.Role,
			Details:    fmt.Sprintf("%s required for %s %s", perm, r.Method, r.URL.Path),
		})
		writeError(w, r, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
