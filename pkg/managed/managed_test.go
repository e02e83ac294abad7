package managed_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/fabricuri"
	"github.com/Mindburn-Labs/fabric/pkg/managed"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_VerifiesOperatorSignature(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	operator, err := fabriccrypto.NewEd25519Signer()
	require.NoError(t, err)

	cfg := managed.ManagedNodeConfig{ConfigVersion: 1, NodeID: "n1", Name: "test"}
	am, err := fabriccrypto.CreateAuthenticatedMessage(cfg, []fabriccrypto.Signer{operator})
	require.NoError(t, err)

	configURI := fabricuri.ConfigURI(operator.PublicKey(), "n1")
	_, err = backend.Receive(ctx, configURI, am)
	require.NoError(t, err)

	doc, err := managed.LoadConfig(ctx, backend, configURI, operator.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, "n1", doc.Config.NodeID)

	am.Auth[0].Signature = "00" + am.Auth[0].Signature[2:]
	_, err = backend.Receive(ctx, configURI, am)
	require.NoError(t, err)

	_, err = managed.LoadConfig(ctx, backend, configURI, operator.PublicKey())
	assert.Error(t, err)
}

func TestNode_BootstrapRestrictsToAccountsURIs(t *testing.T) {
	ctx := context.Background()
	node := managed.NewNode(managed.Identity{NodeID: "n1", ConfigURL: "http://unused.invalid"})

	res, err := node.Receive(ctx, "mutable://open/x", map[string]int{"v": 1})
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	res, err = node.Receive(ctx, "mutable://accounts/abc/status", map[string]int{"v": 1})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

// fabricReadHandler serves GET /fabric/read?uri=... off backend, the
// only endpoint a managed node's config/update poll needs.
func fabricReadHandler(backend store.Backend) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, err := backend.Read(r.Context(), r.URL.Query().Get("uri"))
		if err != nil {
			res = store.ReadResult{Success: false, Error: err.Error()}
		}
		_ = json.NewEncoder(w).Encode(res)
	})
}

func TestNode_StartRunning_HeartbeatReportsDegraded(t *testing.T) {
	ctx := context.Background()

	operator, err := fabriccrypto.NewEd25519Signer()
	require.NoError(t, err)
	nodeSigner, err := fabriccrypto.NewEd25519Signer()
	require.NoError(t, err)

	cfg := managed.ManagedNodeConfig{
		ConfigVersion: 1,
		NodeID:        "n1",
		Name:          "test",
		Backends: []managed.BackendSpec{
			{Type: managed.BackendMemory},
			{Type: managed.BackendHTTP, URL: "http://127.0.0.1:1"},
		},
		SchemaInline: json.RawMessage(`{"mutable://accounts":{"kind":"allowAll"}}`),
		Monitoring: managed.MonitoringConfig{
			HeartbeatIntervalMs:  20,
			ConfigPollIntervalMs: 60_000,
		},
	}
	am, err := fabriccrypto.CreateAuthenticatedMessage(cfg, []fabriccrypto.Signer{operator})
	require.NoError(t, err)

	configBackend := memstore.New()
	_, err = configBackend.Receive(ctx, fabricuri.ConfigURI(operator.PublicKey(), "n1"), am)
	require.NoError(t, err)

	srv := httptest.NewServer(fabricReadHandler(configBackend))
	defer srv.Close()

	node := managed.NewNode(managed.Identity{
		NodeID:         "n1",
		OperatorPubHex: operator.PublicKey(),
		ConfigURL:      srv.URL,
		Signer:         nodeSigner,
	})
	require.NoError(t, node.Start(ctx))
	defer node.Stop(ctx)

	var status managed.NodeStatus
	require.Eventually(t, func() bool {
		res, err := node.Read(ctx, fabricuri.StatusURI(nodeSigner.PublicKey()))
		if err != nil || !res.Success {
			return false
		}
		raw, err := json.Marshal(res.Record.Data)
		if err != nil {
			return false
		}
		var am envelope.AuthenticatedMessage
		if err := json.Unmarshal(raw, &am); err != nil {
			return false
		}
		return json.Unmarshal(am.Payload, &status) == nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "degraded", status.Status)
}
