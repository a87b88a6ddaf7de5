package audit

import (
	"context"
	"strings"
	"time"
)

// Action enumerates security-relevant events written to the audit trail.
type Action string

const (
	ActionUserRegister    Action = "USER_REGISTER"
	ActionUserLogin       Action = "USER_LOGIN"
	ActionUserLoginFailed Action = "USER_LOGIN_FAILED"
	ActionUserLogout      Action = "USER_LOGOUT"
	ActionUserUpdate      Action = "USER_UPDATE"
	ActionUserDelete      Action = "USER_DELETE"
	ActionDocumentCreate  Action = "DOCUMENT_CREATE"
	ActionDocumentRead    Action = "DOCUMENT_READ"
	ActionDocumentUpdate  Action = "DOCUMENT_UPDATE"
	ActionDocumentDelete  Action = "DOCUMENT_DELETE"
	ActionAccessDenied    Action = "ACCESS_DENIED"
	ActionTokenRefresh    Action = "TOKEN_REFRESH"
)

// Outcome classifies how the audited operation ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
)

// Entry is a single append-only audit record. ActorID is empty for anonymous
// actors; Username defaults to "anonymous" on write.
type Entry struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id,omitempty"`
	Username     string         `json:"username"`
	Action       Action         `json:"action"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	Outcome      Outcome        `json:"outcome"`
	Details      map[string]any `json:"details,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Filter narrows List results.
type Filter struct {
	Action  Action
	ActorID string
	Limit   int
}

// Store persists audit entries. Append is best-effort from the caller's point
// of view; the Recorder swallows its errors.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, f Filter) ([]*Entry, error)
}

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context so recorded
// entries can be correlated with request logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
