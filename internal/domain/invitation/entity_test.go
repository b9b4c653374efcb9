package invitation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/cmlabs-hris/dashboard-access-go/internal/pkg/optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvitation_OptionalFieldsOmittedWhenAbsent(t *testing.T) {
	inv := Invitation{
		Email:        "a@x.com",
		Status:       StatusRequested,
		Roles:        []string{},
		Environments: map[string]string{},
		History:      []HistoryEntry{},
	}

	b, err := json.Marshal(inv)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.NotContains(t, doc, "expiry")
	assert.NotContains(t, doc, "invitedBy")
	assert.NotContains(t, doc, "requestMessage")
	assert.NotContains(t, doc, "id")
	assert.Contains(t, doc, "email")
}

func TestPatch_DecodeDropsNullFields(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"status":"joined","email":null}`), &p))

	assert.True(t, p.Status.IsSome())
	assert.False(t, p.Email.IsSome())
}

func TestInvitation_CanBeAccepted(t *testing.T) {
	now := time.Now()
	inv := Invitation{Status: StatusInvited, Expiry: optional.Some(now.Add(time.Hour))}
	assert.True(t, inv.CanBeAccepted(now))

	inv.Expiry = optional.Some(now.Add(-time.Hour))
	assert.True(t, inv.IsExpired(now))
	assert.False(t, inv.CanBeAccepted(now))

	requested := Invitation{Status: StatusRequested}
	assert.False(t, requested.IsExpired(now))
	assert.False(t, requested.CanBeAccepted(now))
}
