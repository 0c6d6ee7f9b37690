package httpapi

import (
	"net/http"
	"strings"

	"nexchat.app/internal/content"
	"nexchat.app/internal/session"
)

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requirePermission(w, r, session.PermManageUsers) {
		return
	}

	var (
		users []content.UserAccount
		err   error
	)
	if r.URL.Query().Get("blocked") == "true" {
		users, err = a.content.BlockedUsers(r.Context())
	} else {
		users, err = a.content.Users(r.Context())
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": users})
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	id, action, _ := strings.Cut(path, "/")
	if id == "" || strings.Contains(action, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getUser(w, r, id)
		case http.MethodDelete:
			a.deleteUser(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case "block":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.toggleUserBlock(w, r, id)
	case "ban":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.banCreator(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requirePermission(w, r, session.PermManageUsers) {
		return
	}
	u, err := a.content.User(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) toggleUserBlock(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requirePermission(w, r, session.PermManageUsers) {
		return
	}
	blocked, err := a.moderation.ToggleUserBlock(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "blocked": blocked})
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requirePermission(w, r, session.PermManageUsers) {
		return
	}
	if !requireConfirmation(w, r) {
		return
	}
	if err := a.moderation.DeleteUser(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "deleted": true})
}

type banRequest struct {
	Reason string `json:"reason"`
}

func (a *API) banCreator(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requirePermission(w, r, session.PermManageUsers) {
		return
	}
	if !requireConfirmation(w, r) {
		return
	}
	var req banRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.moderation.BanCreator(r.Context(), id, strings.TrimSpace(req.Reason))
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	// Partial video cleanup failures still return 200: the ban took effect
	// and the response body carries what needs manual attention.
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleVideosCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requirePermission(w, r, session.PermManageVideos) {
		return
	}

	var (
		videos []content.Video
		err    error
	)
	if author := strings.TrimSpace(r.URL.Query().Get("author")); author != "" {
		videos, err = a.content.VideosByAuthor(r.Context(), author)
	} else {
		videos, err = a.content.Videos(r.Context())
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": videos})
}

func (a *API) handleVideoResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/videos/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" || strings.Contains(action, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getVideo(w, r, id)
		case http.MethodDelete:
			a.deleteVideo(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case "flag":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.flagVideo(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) getVideo(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requirePermission(w, r, session.PermManageVideos) {
		return
	}
	v, err := a.content.Video(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) flagVideo(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requirePermission(w, r, session.PermManageVideos) {
		return
	}
	sess, _ := session.FromContext(r.Context())
	if err := a.moderation.FlagVideo(r.Context(), id, sess.AdminEmail); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"video_id": id, "flagged": true})
}

func (a *API) deleteVideo(w http.ResponseWriter, r *http.Request, id string) {
	if !a.requirePermission(w, r, session.PermManageVideos) {
		return
	}
	if !requireConfirmation(w, r) {
		return
	}
	if err := a.moderation.DeleteVideo(r.Context(), id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"video_id": id, "deleted": true})
}

func (a *API) handleReportsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requirePermission(w, r, session.PermManageReports) {
		return
	}

	var (
		reports []content.Report
		err     error
	)
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		reports, err = a.content.ReportsByStatus(r.Context(), status)
	} else {
		reports, err = a.content.Reports(r.Context())
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": reports})
}

type reportStatusRequest struct {
	Status      string `json:"status"`
	ActionTaken string `json:"action_taken"`
}

func (a *API) handleReportResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/reports/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" || strings.Contains(action, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if !a.requirePermission(w, r, session.PermManageReports) {
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		rep, err := a.content.Report(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	case "status":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var req reportStatusRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.moderation.HandleReport(r.Context(), id, req.Status, req.ActionTaken); err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"report_id": id, "status": req.Status})
	case "dismiss":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		if err := a.moderation.DismissReport(r.Context(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"report_id": id, "status": content.ReportStatusDismissed})
	case "video":
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		if !requireConfirmation(w, r) {
			return
		}
		if err := a.moderation.DeleteReportedVideo(r.Context(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"report_id": id, "status": content.ReportStatusResolved})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}
