package audit

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "careledger/pkg/domainerrors"
)

func TestNewEventAssignsIdentityAndTimestamp(t *testing.T) {
	before := time.Now().UTC()
	event, err := NewEvent("CreateUser", "A user account was created")
	after := time.Now().UTC()

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "CreateUser", event.ActionName)
	assert.Nil(t, event.ActorID)
	assert.False(t, event.OccurredAt.Before(before))
	assert.False(t, event.OccurredAt.After(after))

	other, err := NewEvent("CreateUser", "A user account was created")
	require.NoError(t, err)
	assert.NotEqual(t, event.ID, other.ID)
}

func TestNewEventValidation(t *testing.T) {
	tests := []struct {
		name        string
		actionName  string
		description string
		wantErr     bool
	}{
		{"empty action name", "", "something happened", true},
		{"whitespace action name", "   \t", "something happened", true},
		{"empty description", "CreateUser", "", true},
		{"whitespace description", "CreateUser", " \n ", true},
		{"single character boundary", "x", "y", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEvent(tt.actionName, tt.description)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.Is(err, dErrors.CodeBadRequest))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewEventWithActor(t *testing.T) {
	actorID := uuid.New()
	event, err := NewEvent("DeleteUser", "A user account was deleted", WithActor(actorID))
	require.NoError(t, err)
	require.NotNil(t, event.ActorID)
	assert.Equal(t, actorID, *event.ActorID)
}

func TestRedactPayloadScrubsSensitiveFields(t *testing.T) {
	payload := `{"username":"jane","password":"hunter2","profile":{"national_id":"123-45-6789","city":"Oslo"},"items":[{"credit_card":"4111111111111111"}]}`

	redacted := RedactPayload(payload)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(redacted), &doc))
	assert.Equal(t, "jane", doc["username"])
	assert.Equal(t, "[REDACTED]", doc["password"])

	profile := doc["profile"].(map[string]any)
	assert.Equal(t, "[REDACTED]", profile["national_id"])
	assert.Equal(t, "Oslo", profile["city"])

	item := doc["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "[REDACTED]", item["credit_card"])
}

func TestRedactPayloadTruncatesOversizedInput(t *testing.T) {
	payload := strings.Repeat("a", MaxPayloadBytes+500)
	redacted := RedactPayload(payload)
	assert.Len(t, redacted, MaxPayloadBytes)
}

func TestRedactPayloadNonJSONPassesThrough(t *testing.T) {
	assert.Equal(t, "plain text payload", RedactPayload("plain text payload"))
	assert.Equal(t, "", RedactPayload(""))
}

func TestWithPayloadRedactsBeforeConstruction(t *testing.T) {
	event, err := NewEvent("CreatePatient", "A new patient was registered",
		WithPayload(`{"name":"Ola","token":"abc123"}`))
	require.NoError(t, err)
	assert.Contains(t, event.Payload, "[REDACTED]")
	assert.NotContains(t, event.Payload, "abc123")
}
