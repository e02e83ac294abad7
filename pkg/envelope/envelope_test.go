package envelope_test

import (
	"encoding/json"
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMessage_Stability covers P2: identical data yields identical URI.
func TestMessage_Stability(t *testing.T) {
	data := map[string]interface{}{"name": "Alice", "age": 30}

	uri1, err := envelope.Message(data)
	require.NoError(t, err)
	uri2, err := envelope.Message(data)
	require.NoError(t, err)

	assert.Equal(t, uri1, uri2)
	assert.Regexp(t, `^hash://sha256/[0-9a-f]{64}$`, uri1)
}

func TestMessage_ChangesWithData(t *testing.T) {
	uri1, err := envelope.Message(map[string]int{"v": 1})
	require.NoError(t, err)
	uri2, err := envelope.Message(map[string]int{"v": 2})
	require.NoError(t, err)

	assert.NotEqual(t, uri1, uri2)
}

func TestCanonicalJSON_KeyOrderIndependent(t *testing.T) {
	a := json.RawMessage(`{"b":2,"a":1}`)
	b := json.RawMessage(`{"a":1,"b":2}`)

	var va, vb map[string]interface{}
	require.NoError(t, json.Unmarshal(a, &va))
	require.NoError(t, json.Unmarshal(b, &vb))

	ca, err := envelope.CanonicalJSON(va)
	require.NoError(t, err)
	cb, err := envelope.CanonicalJSON(vb)
	require.NoError(t, err)

	assert.Equal(t, ca, cb)
}

func TestClassify_MessageData(t *testing.T) {
	raw := json.RawMessage(`{"inputs":[],"outputs":[["mutable://open/x",{"v":1}],["mutable://open/y",{"v":2}]]}`)

	kind, val, err := envelope.Classify(raw)
	require.NoError(t, err)
	assert.Equal(t, envelope.KindMessageData, kind)

	md, ok := val.(*envelope.MessageData)
	require.True(t, ok)
	assert.Len(t, md.Outputs, 2)
	assert.Equal(t, "mutable://open/x", md.Outputs[0].URI)
}

func TestClassify_Authenticated(t *testing.T) {
	raw := json.RawMessage(`{"auth":[{"pubkey":"ab","signature":"cd"}],"payload":{"foo":"bar"}}`)

	kind, val, err := envelope.Classify(raw)
	require.NoError(t, err)
	assert.Equal(t, envelope.KindAuthenticated, kind)
	am, ok := val.(*envelope.AuthenticatedMessage)
	require.True(t, ok)
	assert.Len(t, am.Auth, 1)
}

func TestClassify_Raw(t *testing.T) {
	raw := json.RawMessage(`{"name":"Alice"}`)
	kind, _, err := envelope.Classify(raw)
	require.NoError(t, err)
	assert.Equal(t, envelope.KindRaw, kind)
}
