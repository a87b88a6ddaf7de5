package audit

import (
	"context"
	"time"

	"docuvault.org/internal/ids"
	"docuvault.org/internal/obs"
)

const appendTimeout = 5 * time.Second

var redactedFields = []string{"password", "token", "refresh_token", "access_token"}

// Recorder writes audit entries to the structured log sink and, when a store
// is configured, to durable storage. The two writes are independent; neither
// failure is surfaced to the caller.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder builds a Recorder. store may be nil, in which case entries only
// reach the log sink.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time source. Test use only.
func (r *Recorder) WithClock(fn func() time.Time) *Recorder {
	if fn != nil {
		r.now = fn
	}
	return r
}

// Record appends the entry. It never returns an error: a failed durable
// write is logged locally and counted, and must not fail the originating
// request. The log sink and the durable store are written independently.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.Username == "" {
		entry.Username = "anonymous"
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeSuccess
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = r.now().UTC()
	}
	entry.Details = sanitizeDetails(entry.Details)

	r.logSink(ctx, &entry)

	if r.store == nil {
		return
	}
	// Request cancellation must not drop the entry mid-write.
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()
	if err := r.store.Append(appendCtx, &entry); err != nil {
		obs.CountAuditWriteFailure()
		obs.LogJSON(map[string]any{
			"ts":    time.Now().UTC().Format(time.RFC3339Nano),
			"level": "error",
			"msg":   "audit_append_failed",
			"error": err.Error(),
		})
	}
}

func (r *Recorder) logSink(ctx context.Context, entry *Entry) {
	line := map[string]any{
		"ts":       entry.OccurredAt.Format(time.RFC3339Nano),
		"type":     "audit",
		"action":   string(entry.Action),
		"outcome":  string(entry.Outcome),
		"username": entry.Username,
	}
	if entry.ActorID != "" {
		line["actor_id"] = entry.ActorID
	}
	if entry.ResourceType != "" {
		line["resource_type"] = entry.ResourceType
	}
	if entry.ResourceID != "" {
		line["resource_id"] = entry.ResourceID
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		line["request_id"] = rid
	}
	if len(entry.Details) > 0 {
		line["details"] = entry.Details
	}
	obs.LogJSON(line)
}

func sanitizeDetails(details map[string]any) map[string]any {
	if len(details) == 0 {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = v
	}
	for _, field := range redactedFields {
		if _, ok := out[field]; ok {
			out[field] = "[REDACTED]"
		}
	}
	return out
}
