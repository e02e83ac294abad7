package httpstore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/store/httpstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceive_ForwardsToRemotePeer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fabric/receive", r.URL.Path)
		_ = json.NewEncoder(w).Encode(store.ReceiveResult{Accepted: true})
	}))
	defer srv.Close()

	c := httpstore.New(srv.URL)
	res, err := c.Receive(context.Background(), "mutable://open/x", map[string]int{"v": 1})
	require.NoError(t, err)
	assert.True(t, res.Accepted)
}

func TestRead_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(store.ReadResult{Success: false, Error: "not-found"})
	}))
	defer srv.Close()

	c := httpstore.New(srv.URL)
	res, err := c.Read(context.Background(), "mutable://open/missing")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "not-found", res.Error)
}

func TestReceive_TimeoutCountsAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(store.ReceiveResult{Accepted: true})
	}))
	defer srv.Close()

	c := httpstore.New(srv.URL, httpstore.WithTimeout(5*time.Millisecond))
	res, err := c.Receive(context.Background(), "mutable://open/x", 1)
	assert.Error(t, err)
	assert.False(t, res.Accepted)
}
