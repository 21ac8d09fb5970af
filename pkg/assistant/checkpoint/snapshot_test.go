package checkpoint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSnapshot_RoundTrip verifies marshal/unmarshal preserves all fields.
func TestSnapshot_RoundTrip(t *testing.T) {
	state := json.RawMessage(`{"messages":[{"role":"system","content":"route"}],"next":"SUPERVISOR"}`)
	snap := New("thread-1", "SUPERVISOR", 3, state, "historical_data_agent")

	data, err := snap.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, Version, got.Version)
	assert.Equal(t, "thread-1", got.SessionID)
	assert.Equal(t, "SUPERVISOR", got.NodeID)
	assert.Equal(t, 3, got.Step)
	assert.Equal(t, "historical_data_agent", got.NextNode)
	assert.JSONEq(t, string(state), string(got.State))
	assert.False(t, got.Timestamp.IsZero())
}

// TestUnmarshal_Invalid verifies malformed data is rejected.
func TestUnmarshal_Invalid(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	assert.Error(t, err)
}
