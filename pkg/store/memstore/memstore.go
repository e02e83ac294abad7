// Package memstore implements the in-memory trie backend (C5):
// per-program-key trie nodes keyed by path segment, with output
// unpacking for MessageData envelopes on receive. Grounded on the
// teacher's in-process map+mutex store idiom (pkg/store's deleted
// audit_store.go) generalized from an append-only hash chain to a
// mutable path trie.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/uri"
)

// node is a single trie node (spec.md §3 storage tree invariant: a node
// has a value iff a receive has been applied at its exact path).
type node struct {
	value    *store.Record
	children map[string]*node
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Store is the in-memory trie backend. One Store holds every program
// key's trie; mutation of a path requires the writer to hold Store's
// lock on the trailing segment only in spirit — in this single-process
// Go implementation a single RWMutex over the whole trie is sufficient
// (spec.md §5 shared resource policy: "the in-memory trie is owned by
// its backend").
type Store struct {
	mu    sync.RWMutex
	roots map[string]*node // programKey -> root
}

// New returns an empty in-memory backend.
func New() *Store {
	return &Store{roots: make(map[string]*node)}
}

var _ store.Backend = (*Store)(nil)

func (s *Store) rootFor(programKey string) *node {
	r, ok := s.roots[programKey]
	if !ok {
		r = newNode()
		s.roots[programKey] = r
	}
	return r
}

// Receive walks to uri's path, assigns {ts, data}, then recurses into
// MessageData outputs if data has that shape (spec.md §4.4 C5).
func (s *Store) Receive(ctx context.Context, rawURI string, data interface{}) (store.ReceiveResult, error) {
	parsed, err := uri.Parse(rawURI)
	if err != nil {
		return store.ReceiveResult{Accepted: false, Error: "missing-uri"}, nil
	}

	s.mu.Lock()
	now := time.Now().UnixMilli()
	n := s.rootFor(parsed.ProgramKey)
	for _, seg := range parsed.PathSegments {
		child, ok := n.children[seg]
		if !ok {
			child = newNode()
			n.children[seg] = child
		}
		n = child
	}
	n.value = &store.Record{TS: now, Data: data}
	s.mu.Unlock()

	if kind, md, cerr := classify(data); cerr == nil && kind == envelope.KindMessageData {
		for _, out := range md.Outputs {
			var v interface{}
			if uerr := jsonUnmarshalInto(out.Value, &v); uerr != nil {
				return store.ReceiveResult{Accepted: false, Error: uerr.Error()}, nil
			}
			res, rerr := s.Receive(ctx, out.URI, v)
			if rerr != nil || !res.Accepted {
				return store.ReceiveResult{Accepted: false, Error: "output-write-failed: " + out.URI}, nil
			}
		}
	}

	return store.ReceiveResult{Accepted: true}, nil
}

func (s *Store) Read(ctx context.Context, rawURI string) (store.ReadResult, error) {
	parsed, err := uri.Parse(rawURI)
	if err != nil {
		return store.ReadResult{Success: false, Error: "invalid-uri"}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.roots[parsed.ProgramKey]
	if !ok {
		return store.ReadResult{Success: false, Error: "not-found"}, nil
	}
	for _, seg := range parsed.PathSegments {
		child, ok := n.children[seg]
		if !ok {
			return store.ReadResult{Success: false, Error: "not-found"}, nil
		}
		n = child
	}
	if n.value == nil {
		return store.ReadResult{Success: false, Error: "not-found"}, nil
	}

	rec := *n.value
	return store.ReadResult{Success: true, Record: &rec}, nil
}

// ReadMulti enforces the 50-URI batch cap (P6): over the cap, every
// entry fails atomically.
func (s *Store) ReadMulti(ctx context.Context, uris []string) (store.ReadMultiResult, error) {
	if len(uris) > store.MaxReadMultiURIs {
		return store.ReadMultiResult{
			Success: false,
			Results: nil,
			Summary: store.ReadMultiSummary{Total: len(uris), Succeeded: 0, Failed: len(uris)},
		}, nil
	}

	results := make([]store.ReadResult, len(uris))
	succeeded := 0
	for i, u := range uris {
		r, _ := s.Read(ctx, u)
		results[i] = r
		if r.Success {
			succeeded++
		}
	}

	return store.ReadMultiResult{
		Success: succeeded > 0,
		Results: results,
		Summary: store.ReadMultiSummary{
			Total:     len(uris),
			Succeeded: succeeded,
			Failed:    len(uris) - succeeded,
		},
	}, nil
}

// List enumerates every descendant of uri's path carrying a value,
// depth-first, then applies pagination/sort/pattern (spec.md §4.4).
func (s *Store) List(ctx context.Context, rawURI string, opts store.ListOptions) (store.ListResult, error) {
	parsed, err := uri.Parse(rawURI)
	if err != nil {
		return store.ListResult{}, fabricerr.New(fabricerr.InputError, "invalid path")
	}

	s.mu.RLock()
	n, ok := s.roots[parsed.ProgramKey]
	if !ok {
		s.mu.RUnlock()
		return store.Paginate(nil, opts)
	}
	for _, seg := range parsed.PathSegments {
		child, ok := n.children[seg]
		if !ok {
			s.mu.RUnlock()
			return store.Paginate(nil, opts)
		}
		n = child
	}

	var items []store.ListItem
	collect(parsed.ProgramKey, parsed.PathSegments, n, &items)
	s.mu.RUnlock()

	return store.Paginate(items, opts)
}

func collect(programKey string, prefix []string, n *node, out *[]store.ListItem) {
	if n.value != nil {
		*out = append(*out, store.ListItem{
			URI:    uri.Join(programKey, prefix...),
			Record: *n.value,
		})
	}
	for seg, child := range n.children {
		collect(programKey, append(append([]string{}, prefix...), seg), child, out)
	}
}

// Delete removes the value at uri's exact path. Root ("/" only — i.e. an
// empty path) cannot be deleted (spec.md §4.4).
func (s *Store) Delete(ctx context.Context, rawURI string) (store.DeleteResult, error) {
	parsed, err := uri.Parse(rawURI)
	if err != nil {
		return store.DeleteResult{Success: false, Error: "invalid-uri"}, nil
	}
	if len(parsed.PathSegments) == 0 {
		return store.DeleteResult{Success: false, Error: "cannot-delete-root"}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.roots[parsed.ProgramKey]
	if !ok {
		return store.DeleteResult{Success: false, Error: "not-found"}, nil
	}
	for i, seg := range parsed.PathSegments {
		if i == len(parsed.PathSegments)-1 {
			child, ok := n.children[seg]
			if !ok || child.value == nil {
				return store.DeleteResult{Success: false, Error: "not-found"}, nil
			}
			child.value = nil
			return store.DeleteResult{Success: true}, nil
		}
		child, ok := n.children[seg]
		if !ok {
			return store.DeleteResult{Success: false, Error: "not-found"}, nil
		}
		n = child
	}
	return store.DeleteResult{Success: false, Error: "not-found"}, nil
}

func (s *Store) Health(ctx context.Context) (store.Health, error) {
	return store.Health{Status: store.HealthHealthy}, nil
}

func (s *Store) GetSchema(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.roots))
	for k := range s.roots {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots = make(map[string]*node)
	return nil
}
