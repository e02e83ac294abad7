// Package httpstore implements the HTTP peer backend (C4/C9): a
// client-only store.Backend that forwards every operation to a remote
// fabric node over JSON/HTTP, carrying a per-peer timeout per request
// (spec.md §5 cancellation/timeouts). Grounded on the teacher's
// sdk/go/client/client.go do(method, path, body, out) idiom, adapted
// from a typed single-purpose API client to a generic backend-shaped
// RPC client that mirrors the in-memory and SQL backends' contract.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/store"
)

// Store is a client for a remote peer node's backend protocol.
type Store struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout sets the per-request timeout (spec.md §5: "HTTP-peer
// receive calls carry a per-peer timeout; expiry counts as a
// propagation failure").
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.HTTPClient.Timeout = d }
}

// WithHTTPClient overrides the underlying *http.Client (tests).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.HTTPClient = c }
}

// New returns a client bound to baseURL, e.g. "http://peer.local:8080".
func New(baseURL string, opts ...Option) *Store {
	s := &Store{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ store.Backend = (*Store)(nil)

func (s *Store) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fabricerr.Wrap(fabricerr.TransportError, "encode request", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, reader)
	if err != nil {
		return fabricerr.Wrap(fabricerr.TransportError, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fabricerr.Wrap(fabricerr.TransportError, "peer request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fabricerr.New(fabricerr.TransportError, fmt.Sprintf("peer responded %d", resp.StatusCode))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fabricerr.Wrap(fabricerr.TransportError, "decode response", err)
		}
	}
	return nil
}

func (s *Store) Receive(ctx context.Context, rawURI string, data interface{}) (store.ReceiveResult, error) {
	var out store.ReceiveResult
	req := map[string]interface{}{"uri": rawURI, "data": data}
	if err := s.do(ctx, http.MethodPost, "/fabric/receive", req, &out); err != nil {
		return store.ReceiveResult{Accepted: false, Error: err.Error()}, err
	}
	return out, nil
}

func (s *Store) Read(ctx context.Context, rawURI string) (store.ReadResult, error) {
	var out store.ReadResult
	path := "/fabric/read?uri=" + url.QueryEscape(rawURI)
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return store.ReadResult{Success: false, Error: err.Error()}, err
	}
	return out, nil
}

func (s *Store) ReadMulti(ctx context.Context, uris []string) (store.ReadMultiResult, error) {
	var out store.ReadMultiResult
	req := map[string]interface{}{"uris": uris}
	if err := s.do(ctx, http.MethodPost, "/fabric/read-multi", req, &out); err != nil {
		return store.ReadMultiResult{}, err
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, rawURI string, opts store.ListOptions) (store.ListResult, error) {
	var out store.ListResult
	req := map[string]interface{}{"uri": rawURI, "options": opts}
	if err := s.do(ctx, http.MethodPost, "/fabric/list", req, &out); err != nil {
		return store.ListResult{}, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, rawURI string) (store.DeleteResult, error) {
	var out store.DeleteResult
	path := "/fabric/delete?uri=" + url.QueryEscape(rawURI)
	if err := s.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return store.DeleteResult{Success: false, Error: err.Error()}, err
	}
	return out, nil
}

func (s *Store) Health(ctx context.Context) (store.Health, error) {
	var out store.Health
	if err := s.do(ctx, http.MethodGet, "/fabric/health", nil, &out); err != nil {
		return store.Health{Status: store.HealthUnhealthy, Message: err.Error()}, nil
	}
	return out, nil
}

func (s *Store) GetSchema(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.do(ctx, http.MethodGet, "/fabric/schema", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Cleanup(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, "/fabric/cleanup", nil, nil)
}
