package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"docuvault.org/internal/audit"
	"docuvault.org/internal/auth"
)

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type listUsersResponse struct {
	Items []auth.PublicAccount `json:"items"`
	Count int                  `json:"count"`
}

type auditLogsResponse struct {
	Items []*audit.Entry `json:"items"`
	Count int            `json:"count"`
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		account, err := a.auth.Profile(r.Context(), p.ID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
	case http.MethodPut:
		var req updateProfileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		account, err := a.auth.UpdateProfile(r.Context(), p, auth.ProfileUpdate{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		}, requestMeta(r))
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

var adminOnly = auth.Roles(auth.RoleAdmin)

func (a *API) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireRole(w, r, adminOnly); !ok {
		return
	}
	accounts, err := a.auth.ListAccounts(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listUsersResponse{Items: accounts, Count: len(accounts)})
}

func (a *API) handleAdminUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/admin/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	p, ok := a.requireRole(w, r, adminOnly)
	if !ok {
		return
	}
	if id == p.ID {
		writeError(w, r, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if _, err := a.auth.DeleteAccount(r.Context(), p, id, requestMeta(r)); err != nil {
		handleAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requireRole(w, r, adminOnly); !ok {
		return
	}
	if a.auditLog == nil {
		writeError(w, r, http.StatusServiceUnavailable, "audit store unavailable")
		return
	}
	q := r.URL.Query()
	filter := audit.Filter{
		Action:  audit.Action(strings.TrimSpace(q.Get("action"))),
		ActorID: strings.TrimSpace(q.Get("actor_id")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 1000 {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = limit
	}
	entries, err := a.auditLog.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "audit store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, auditLogsResponse{Items: entries, Count: len(entries)})
}
