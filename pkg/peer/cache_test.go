package peer_test

import (
	"context"
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/peer"
	"github.com/stretchr/testify/assert"
)

func TestNewReadinessCache_EmptyAddrDisabled(t *testing.T) {
	cache := peer.NewReadinessCache("")
	assert.Nil(t, cache)
	assert.True(t, cache.IsHealthy(context.Background(), "http://peer"))
}
