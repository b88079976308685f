// Package audit implements the asynchronous action-log pipeline: immutable
// audit events, a bounded in-memory hand-off queue, a single background drain
// worker, and a paginated query service over the durable store.
package audit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "careledger/pkg/domainerrors"
)

// MaxPayloadBytes caps the serialized request snapshot carried by an event.
const MaxPayloadBytes = 10 * 1024

// Event is an immutable record of one completed, authorized action. It is
// constructed through NewEvent and never mutated afterwards; the store treats
// it as append-only.
type Event struct {
	ID          uuid.UUID
	ActionName  string
	Description string
	ActorID     *uuid.UUID
	Payload     string
	OccurredAt  time.Time
}

// EventOption configures optional event fields at construction time.
type EventOption func(*Event)

// WithActor attaches the acting user. Absent for anonymous/system actions.
func WithActor(actorID uuid.UUID) EventOption {
	return func(e *Event) {
		id := actorID
		e.ActorID = &id
	}
}

// WithPayload attaches a serialized snapshot of the triggering request. The
// payload is redacted and truncated to MaxPayloadBytes before it can reach
// storage.
func WithPayload(payload string) EventOption {
	return func(e *Event) {
		e.Payload = RedactPayload(payload)
	}
}

// NewEvent validates inputs and constructs an event with a fresh identity and
// a UTC timestamp taken at the moment of invocation. It has no side effects:
// it neither enqueues nor persists.
func NewEvent(actionName, description string, opts ...EventOption) (Event, error) {
	if strings.TrimSpace(actionName) == "" {
		return Event{}, dErrors.New(dErrors.CodeBadRequest, "audit event action name is required")
	}
	if strings.TrimSpace(description) == "" {
		return Event{}, dErrors.New(dErrors.CodeBadRequest, "audit event description is required")
	}

	e := Event{
		ID:          uuid.New(),
		ActionName:  actionName,
		Description: description,
		OccurredAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e, nil
}

// sensitiveKeys are normalized substrings of payload field names whose values
// must never reach durable storage.
var sensitiveKeys = []string{
	"password",
	"passwd",
	"token",
	"secret",
	"authorization",
	"nationalid",
	"ssn",
	"creditcard",
	"cardnumber",
	"cvv",
}

const redactedValue = "[REDACTED]"

// RedactPayload scrubs sensitive field values from a JSON payload and
// truncates the result to MaxPayloadBytes. Payloads that do not parse as JSON
// are truncated only; they carry no field structure to scrub selectively, and
// refusing them would push the failure onto the request path.
func RedactPayload(payload string) string {
	if payload == "" {
		return ""
	}
	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err == nil {
		if scrubbed, err := json.Marshal(scrubValue(doc)); err == nil {
			payload = string(scrubbed)
		}
	}
	if len(payload) > MaxPayloadBytes {
		payload = payload[:MaxPayloadBytes]
	}
	return payload
}

func scrubValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			if isSensitiveKey(k) {
				val[k] = redactedValue
				continue
			}
			val[k] = scrubValue(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = scrubValue(inner)
		}
		return val
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(key)
	normalized = strings.ReplaceAll(normalized, "_", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	for _, s := range sensitiveKeys {
		if strings.Contains(normalized, s) {
			return true
		}
	}
	return false
}
