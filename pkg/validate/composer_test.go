package validate_test

import (
	"context"
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/store/memstore"
	"github.com/Mindburn-Labs/fabric/pkg/uri"
	"github.com/Mindburn-Labs/fabric/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type acceptAll struct{}

func (acceptAll) Validate(ctx *uri.ValidationContext) (bool, error) { return true, nil }

type rejectAll struct{}

func (rejectAll) Validate(ctx *uri.ValidationContext) (bool, error) { return false, nil }

func newRegistry(t *testing.T) *uri.Registry {
	t.Helper()
	r := uri.NewRegistry()
	require.NoError(t, r.Register("mutable://open", acceptAll{}))
	require.NoError(t, r.Register("msg://open", acceptAll{}))
	return r
}

func TestReceive_MessageDataValidatesOutputsBeforePersisting(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	c := validate.New(backend, backend, newRegistry(t))

	envelopeData := map[string]interface{}{
		"inputs": []string{},
		"outputs": [][2]interface{}{
			{"mutable://open/x", map[string]int{"v": 1}},
		},
	}

	res, err := c.Receive(ctx, "msg://open/batch", envelopeData)
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	read, err := c.Read(ctx, "mutable://open/x")
	require.NoError(t, err)
	assert.True(t, read.Success)
}

func TestReceive_UnregisteredProgram_Rejects(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	c := validate.New(backend, backend, uri.NewRegistry())

	res, err := c.Receive(ctx, "mutable://open/x", 1)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
}

func TestReceive_OutputValidationFailure_RejectsWholeEnvelope(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	r := uri.NewRegistry()
	require.NoError(t, r.Register("msg://open", acceptAll{}))
	require.NoError(t, r.Register("mutable://open", rejectAll{}))
	c := validate.New(backend, backend, r)

	envelopeData := map[string]interface{}{
		"inputs": []string{},
		"outputs": [][2]interface{}{
			{"mutable://open/x", map[string]int{"v": 1}},
		},
	}

	res, err := c.Receive(ctx, "msg://open/batch", envelopeData)
	require.NoError(t, err)
	assert.False(t, res.Accepted)

	read, err := c.Read(ctx, "mutable://open/x")
	require.NoError(t, err)
	assert.False(t, read.Success)
}

func TestReceive_MissingURI(t *testing.T) {
	ctx := context.Background()
	backend := memstore.New()
	c := validate.New(backend, backend, newRegistry(t))

	res, err := c.Receive(ctx, "", 1)
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "missing-uri", res.Error)
}

var _ store.Backend = (*validate.Composer)(nil)
