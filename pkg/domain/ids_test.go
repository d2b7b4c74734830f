package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDsMarshalAsUUIDStrings(t *testing.T) {
	principalID := NewPrincipalID()

	raw, err := json.Marshal(principalID)
	require.NoError(t, err)
	assert.Equal(t, `"`+principalID.String()+`"`, string(raw))

	var back PrincipalID
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, principalID, back)
}

func TestIDsRoundTripThroughStructs(t *testing.T) {
	type record struct {
		PrincipalID PrincipalID `json:"principal_id"`
		RequestID   RequestID   `json:"request_id"`
		SessionID   SessionID   `json:"session_id"`
	}
	in := record{
		PrincipalID: NewPrincipalID(),
		RequestID:   NewRequestID(),
		SessionID:   NewSessionID(),
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	// The wire form must carry the canonical string, comparable against
	// String() by document predicates.
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, in.PrincipalID.String(), doc["principal_id"])
	assert.Equal(t, in.RequestID.String(), doc["request_id"])
	assert.Equal(t, in.SessionID.String(), doc["session_id"])

	var out record
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestIDsRejectGarbageText(t *testing.T) {
	var principalID PrincipalID
	assert.Error(t, json.Unmarshal([]byte(`"not-a-uuid"`), &principalID))
}
