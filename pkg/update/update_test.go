package update_test

import (
	"context"
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/store/memstore"
	"github.com/Mindburn-Labs/fabric/pkg/update"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoll_EmitsOncePerNewVersion(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	operator, err := fabriccrypto.NewEd25519Signer()
	require.NoError(t, err)

	const uri = "mutable://accounts/op/nodes/n1/update"

	publish := func(version string) {
		am, err := fabriccrypto.CreateAuthenticatedMessage(
			update.ModuleUpdate{Version: version, ModuleURL: "mutable://modules/x"},
			[]fabriccrypto.Signer{operator},
		)
		require.NoError(t, err)
		_, err = backend.Receive(ctx, uri, am)
		require.NoError(t, err)
	}

	var seen []string
	checker := update.NewChecker(backend, uri, operator.PublicKey(), [32]byte{}, func(mu update.ModuleUpdate) {
		seen = append(seen, mu.Version)
	})

	publish("1.0.0")
	require.NoError(t, checker.Poll(ctx))
	require.NoError(t, checker.Poll(ctx))
	assert.Equal(t, []string{"1.0.0"}, seen)

	publish("1.1.0")
	require.NoError(t, checker.Poll(ctx))
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, seen)
}

func TestPoll_NoRecordYet(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	checker := update.NewChecker(backend, "mutable://accounts/op/nodes/n1/update", "pub", [32]byte{}, nil)
	assert.NoError(t, checker.Poll(ctx))
}
