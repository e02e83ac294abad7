// Package node implements the message node (C8): a C4-shaped client
// whose receive runs a Received -> Validated -> Propagating ->
// Accepted|Rejected state machine, fanning a validated write out to
// every peer in parallel and accepting once any one peer accepts.
// Grounded on the teacher's governance/swarm_pdp.go parallel fan-out
// idiom (WaitGroup + per-worker goroutine collecting into a results
// slice), adapted from policy evaluation to peer propagation.
package node

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Mindburn-Labs/fabric/pkg/store"
)

// State is one stage of a message's C8 lifecycle.
type State string

const (
	StateReceived    State = "received"
	StateValidated   State = "validated"
	StatePropagating State = "propagating"
	StateAccepted    State = "accepted"
	StateRejected    State = "rejected"
)

// Config wires a message node's collaborators (spec.md §4.6).
type Config struct {
	Write store.Backend
	Read  store.Backend
	Peers []store.Backend
}

// Node is a C4-shaped client implementing the C8 state machine.
type Node struct {
	cfg Config
}

// New returns a message node over cfg.
func New(cfg Config) *Node {
	return &Node{cfg: cfg}
}

var _ store.Backend = (*Node)(nil)

// Receive drives one message through Received -> Validated ->
// Propagating -> Accepted|Rejected.
func (n *Node) Receive(ctx context.Context, rawURI string, data interface{}) (store.ReceiveResult, error) {
	if rawURI == "" {
		return store.ReceiveResult{Accepted: false, Error: "missing-uri"}, nil
	}

	res, err := n.cfg.Write.Receive(ctx, rawURI, data)
	if err != nil {
		return store.ReceiveResult{Accepted: false, Error: "validation-error: " + err.Error()}, nil
	}
	if !res.Accepted {
		msg := res.Error
		if msg == "" {
			msg = "validation-error"
		}
		return store.ReceiveResult{Accepted: false, Error: msg}, nil
	}

	if len(n.cfg.Peers) == 0 {
		return store.ReceiveResult{Accepted: true}, nil
	}

	accepted, failures := n.propagate(ctx, rawURI, data)
	if accepted {
		return store.ReceiveResult{Accepted: true}, nil
	}
	return store.ReceiveResult{
		Accepted: false,
		Error:    fmt.Sprintf("all-peers-rejected: %s", strings.Join(failures, "; ")),
	}, nil
}

// propagate invokes receive on every peer in parallel; acceptance
// requires only one peer to accept (spec.md §4.6, invariant P8).
func (n *Node) propagate(ctx context.Context, rawURI string, data interface{}) (bool, []string) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted bool
		failures []string
	)

	for i, peer := range n.cfg.Peers {
		wg.Add(1)
		go func(idx int, p store.Backend) {
			defer wg.Done()

			res, err := p.Receive(ctx, rawURI, data)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failures = append(failures, fmt.Sprintf("peer[%d]: %s", idx, err.Error()))
			case res.Accepted:
				accepted = true
			default:
				failures = append(failures, fmt.Sprintf("peer[%d]: %s", idx, res.Error))
			}
		}(i, peer)
	}
	wg.Wait()

	return accepted, failures
}

func (n *Node) Read(ctx context.Context, rawURI string) (store.ReadResult, error) {
	return n.cfg.Read.Read(ctx, rawURI)
}

func (n *Node) ReadMulti(ctx context.Context, uris []string) (store.ReadMultiResult, error) {
	return n.cfg.Read.ReadMulti(ctx, uris)
}

func (n *Node) List(ctx context.Context, rawURI string, opts store.ListOptions) (store.ListResult, error) {
	return n.cfg.Read.List(ctx, rawURI, opts)
}

func (n *Node) Delete(ctx context.Context, rawURI string) (store.DeleteResult, error) {
	return n.cfg.Write.Delete(ctx, rawURI)
}

func (n *Node) Health(ctx context.Context) (store.Health, error) {
	return n.cfg.Write.Health(ctx)
}

func (n *Node) GetSchema(ctx context.Context) ([]string, error) {
	return n.cfg.Write.GetSchema(ctx)
}

func (n *Node) Cleanup(ctx context.Context) error {
	return n.cfg.Write.Cleanup(ctx)
}
