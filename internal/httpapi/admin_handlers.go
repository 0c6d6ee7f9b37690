package httpapi

import (
	"net/http"
	"strings"

	"nexchat.app/internal/session"
)

type createAdminRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func (a *API) handleAdminsCollection(w http.ResponseWriter, r *http.Request) {
	if !a.requirePermission(w, r, session.PermManageAdmins) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		admins, err := a.directory.List(r.Context())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": admins})
	case http.MethodPost:
		var req createAdminRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		sess, _ := session.FromContext(r.Context())
		admin, err := a.directory.Create(r.Context(), sess.AdminEmail, req.Email, req.DisplayName, req.Password, req.Role)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/admins/"+admin.ID)
		writeJSON(w, http.StatusCreated, admin)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

type adminStatusRequest struct {
	Active bool `json:"active"`
}

func (a *API) handleAdminResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/admins/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" || strings.Contains(action, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if !a.requirePermission(w, r, session.PermManageAdmins) {
		return
	}
	sess, _ := session.FromContext(r.Context())

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			admin, err := a.directory.Find(r.Context(), id)
			if err != nil {
				handleDomainError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, admin)
		case http.MethodDelete:
			if !requireConfirmation(w, r) {
				return
			}
			if err := a.directory.Remove(r.Context(), sess.AdminEmail, id); err != nil {
				handleDomainError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"admin_id": id, "deleted": true})
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case "status":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var req adminStatusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.directory.SetActive(r.Context(), sess.AdminEmail, id, req.Active); err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"admin_id": id, "active": req.Active})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}
