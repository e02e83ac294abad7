package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_ComputesPercentilesAndResetsWindow(t *testing.T) {
	ctx := context.Background()
	meter, _ := metrics.NewReader("fabric.test")
	r, _, err := metrics.New(meter)
	require.NoError(t, err)

	for _, ms := range []time.Duration{10, 20, 30, 40, 50} {
		r.RecordLatency(ctx, "receive", ms*time.Millisecond)
	}
	r.RecordError(ctx, "receive")

	snap := r.Snapshot()
	require.Len(t, snap.Ops, 1)
	op := snap.Ops[0]
	assert.Equal(t, "receive", op.Op)
	assert.Equal(t, int64(5), op.TotalOps)
	assert.Equal(t, int64(1), op.TotalErrors)
	assert.InDelta(t, 0.2, op.ErrorRate, 0.001)
	assert.Equal(t, 30.0, op.P50Ms)
	assert.Equal(t, 50.0, op.P99Ms)

	second := r.Snapshot()
	assert.Empty(t, second.Ops)
}
