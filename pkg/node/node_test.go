package node_test

import (
	"context"
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/node"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rejectingPeer struct{ store.Backend }

func (rejectingPeer) Receive(ctx context.Context, uri string, data interface{}) (store.ReceiveResult, error) {
	return store.ReceiveResult{Accepted: false, Error: "rejected"}, nil
}

// TestReceive_AtLeastOnePeerAccepts covers P8.
func TestReceive_AtLeastOnePeerAccepts(t *testing.T) {
	ctx := context.Background()
	local := memstore.New()
	accepting := memstore.New()

	n := node.New(node.Config{
		Write: local,
		Read:  local,
		Peers: []store.Backend{rejectingPeer{}, accepting},
	})

	res, err := n.Receive(ctx, "mutable://open/x", 1)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestReceive_AllPeersReject(t *testing.T) {
	ctx := context.Background()
	local := memstore.New()

	n := node.New(node.Config{
		Write: local,
		Read:  local,
		Peers: []store.Backend{rejectingPeer{}, rejectingPeer{}},
	})

	res, err := n.Receive(ctx, "mutable://open/x", 1)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
}

func TestReceive_EmptyPeerListTriviallyAccepts(t *testing.T) {
	ctx := context.Background()
	local := memstore.New()

	n := node.New(node.Config{Write: local, Read: local})

	res, err := n.Receive(ctx, "mutable://open/x", 1)
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestReceive_MissingURI(t *testing.T) {
	ctx := context.Background()
	local := memstore.New()
	n := node.New(node.Config{Write: local, Read: local})

	res, err := n.Receive(ctx, "", 1)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "missing-uri", res.Error)
}
