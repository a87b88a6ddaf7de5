package httpapi

import (
	"net/http"
	"strings"

	"docuvault.org/internal/audit"
	"docuvault.org/internal/auth"
	"docuvault.org/internal/docs"
)

type createDocumentRequest struct {
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Status  docs.Status `json:"status"`
	Tags    []string    `json:"tags"`
	Public  bool        `json:"is_public"`
}

type updateDocumentRequest struct {
	Title   *string      `json:"title"`
	Content *string      `json:"content"`
	Status  *docs.Status `json:"status"`
	Tags    []string     `json:"tags"`
	Public  *bool        `json:"is_public"`
}

type listDocumentsResponse struct {
	Items []*docs.Document `json:"items"`
	Count int              `json:"count"`
}

func (a *API) handleDocumentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listDocuments(w, r)
	case http.MethodPost:
		a.createDocument(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDocumentResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/documents/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getDocument(w, r, id)
	case http.MethodPut:
		a.updateDocument(w, r, id)
	case http.MethodDelete:
		a.deleteDocument(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	items, err := a.docs.List(r.Context(), p.ID, p.IsAdmin())
	if err != nil {
		handleDocsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listDocumentsResponse{Items: items, Count: len(items)})
}

func (a *API) createDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req createDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := a.docs.Create(r.Context(), p.ID, docs.CreateInput{
		Title:   req.Title,
		Content: req.Content,
		Status:  req.Status,
		Tags:    req.Tags,
		Public:  req.Public,
	})
	if err != nil {
		handleDocsError(w, r, err)
		return
	}
	a.auditDocument(r, p, audit.ActionDocumentCreate, doc.ID, map[string]any{"title": doc.Title})
	w.Header().Set("Location", "/v1/documents/"+doc.ID)
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	// Existence is decided first: an unknown id is 404 for everyone,
	// owner or not.
	doc, err := a.docs.Find(r.Context(), id)
	if err != nil {
		handleDocsError(w, r, err)
		return
	}
	// The gate applies to every read; the public flag is stored metadata
	// and never bypasses ownership.
	if err := a.authz.AuthorizeOwnership(r.Context(), "document", doc.ID, doc.OwnerID, p); err != nil {
		handleDocsError(w, r, err)
		return
	}
	doc, err = a.docs.Get(r.Context(), id)
	if err != nil {
		handleDocsError(w, r, err)
		return
	}
	a.auditDocument(r, p, audit.ActionDocumentRead, doc.ID, nil)
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) updateDocument(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	doc, err := a.docs.Find(r.Context(), id)
	if err != nil {
		handleDocsError(w, r, err)
		return
	}
	if err := a.authz.AuthorizeOwnership(r.Context(), "document", doc.ID, doc.OwnerID, p); err != nil {
		handleDocsError(w, r, err)
		return
	}
	var req updateDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	doc, err = a.docs.Update(r.Context(), id, docs.UpdateInput{
		Title:   req.Title,
		Content: req.Content,
		Status:  req.Status,
		Tags:    req.Tags,
		Public:  req.Public,
	})
	if err != nil {
		handleDocsError(w, r, err)
		return
	}
	a.auditDocument(r, p, audit.ActionDocumentUpdate, doc.ID, map[string]any{"title": doc.Title})
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) deleteDocument(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	doc, err := a.docs.Find(r.Context(), id)
	if err != nil {
		handleDocsError(w, r, err)
		return
	}
	if err := a.authz.AuthorizeOwnership(r.Context(), "document", doc.ID, doc.OwnerID, p); err != nil {
		handleDocsError(w, r, err)
		return
	}
	if err := a.docs.Delete(r.Context(), id); err != nil {
		handleDocsError(w, r, err)
		return
	}
	a.auditDocument(r, p, audit.ActionDocumentDelete, id, map[string]any{"title": doc.Title})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) auditDocument(r *http.Request, p auth.Principal, action audit.Action, id string, details map[string]any) {
	if a.recorder == nil {
		return
	}
	a.recorder.Record(r.Context(), audit.Entry{
		ActorID:      p.ID,
		Username:     p.Username,
		Action:       action,
		ResourceType: "document",
		ResourceID:   id,
		Outcome:      audit.OutcomeSuccess,
		Details:      details,
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
