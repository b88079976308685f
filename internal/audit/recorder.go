package audit

import (
	"context"
	"log/slog"

	"careledger/internal/platform/metrics"
)

// Recorder is the producer-side surface handed to request handlers. It
// constructs and enqueues events synchronously but never lets a pipeline
// failure reach the business action being audited: queue-full is logged and
// counted, nothing more.
type Recorder struct {
	queue   *Queue
	logger  *slog.Logger
	actions map[string]ActionSpec
	metrics *metrics.Metrics
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderMetrics attaches enqueue/drop counters.
func WithRecorderMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// ActionSpec declares an auditable operation. Handlers reference operations
// by key and the registry supplies the stored action name and description.
type ActionSpec struct {
	Name        string
	Description string
}

// DefaultActions registers the operations this backend audits. Handlers call
// RecordAction with a key after the operation succeeds.
var DefaultActions = map[string]ActionSpec{
	"patient.create":      {Name: "CreatePatient", Description: "A new patient was registered"},
	"patient.update":      {Name: "UpdatePatient", Description: "A patient record was updated"},
	"record.create":       {Name: "CreateMedicalRecord", Description: "A medical record was created"},
	"record.view":         {Name: "ViewMedicalRecord", Description: "A protected medical record was viewed"},
	"encounter.create":    {Name: "CreateEncounter", Description: "A patient encounter was recorded"},
	"practitioner.create": {Name: "CreatePractitioner", Description: "A practitioner account was created"},
	"user.create":         {Name: "CreateUser", Description: "A user account was created"},
	"user.delete":         {Name: "DeleteUser", Description: "A user account was deleted"},
	"claim.grant":         {Name: "GrantAccessClaim", Description: "An access claim was granted to a user"},
	"claim.revoke":        {Name: "RevokeAccessClaim", Description: "An access claim was revoked from a user"},
}

// NewRecorder builds a Recorder over the shared queue. A nil actions map
// falls back to DefaultActions.
func NewRecorder(queue *Queue, logger *slog.Logger, actions map[string]ActionSpec, opts ...RecorderOption) *Recorder {
	if actions == nil {
		actions = DefaultActions
	}
	r := &Recorder{queue: queue, logger: logger, actions: actions}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record constructs an event and enqueues it. It returns an error only for
// invalid construction inputs, which indicate a programming bug in the
// caller; a full queue never surfaces as an error.
func (r *Recorder) Record(ctx context.Context, actionName, description string, opts ...EventOption) error {
	event, err := NewEvent(actionName, description, opts...)
	if err != nil {
		return err
	}
	r.enqueue(ctx, event)
	return nil
}

// RecordAction records a registered operation by key. Unknown keys log a
// warning and no-op so a missing registry entry cannot fail a request.
func (r *Recorder) RecordAction(ctx context.Context, key string, opts ...EventOption) {
	spec, ok := r.actions[key]
	if !ok {
		r.logger.WarnContext(ctx, "unregistered audit action", "key", key)
		return
	}
	event, err := NewEvent(spec.Name, spec.Description, opts...)
	if err != nil {
		r.logger.ErrorContext(ctx, "invalid registered audit action", "key", key, "error", err)
		return
	}
	r.enqueue(ctx, event)
}

func (r *Recorder) enqueue(ctx context.Context, event Event) {
	if r.queue.TryEnqueue(event) {
		r.metrics.IncEnqueued()
		return
	}
	// The drop is observable via Queue.Dropped, the counter, and the warning
	// below; the caller's request proceeds regardless.
	r.metrics.IncDropped()
	r.logger.WarnContext(ctx, "audit queue full, dropping event",
		"action", event.ActionName,
		"event_id", event.ID,
	)
}
