// Package peer implements peer replication (C9): partitioning
// configured peers into push/pull sets by direction and wrapping push
// peers so that propagation failures never fail the local write.
// Grounded on the teacher's pkg/util/resiliency/client.go wrap-the-
// http.Client-with-resilience idiom, adapted from retry/circuit-break
// to "swallow failure, log, report success".
package peer

import (
	"context"

	"github.com/Mindburn-Labs/fabric/pkg/logging"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/store/httpstore"
)

// Direction is a PeerSpec's replication role.
type Direction string

const (
	DirectionPush          Direction = "push"
	DirectionPull          Direction = "pull"
	DirectionBidirectional Direction = "bidirectional"
)

// Spec describes one configured peer (spec.md §3 ManagedNodeConfig).
type Spec struct {
	URL       string
	Direction Direction
}

// Clients is the partitioned result of createPeerClients.
type Clients struct {
	PushClients []store.Backend
	PullClients []store.Backend
	cache       *ReadinessCache // set by ConnectWithCache; nil disables readiness ordering
}

var log = logging.New("peer")

// Connect dials every spec in specs and partitions the resulting
// clients by direction. Bidirectional peers land in both sets. It is
// equivalent to ConnectWithCache(specs, nil).
func Connect(specs []Spec) Clients {
	return ConnectWithCache(specs, nil)
}

// ConnectWithCache is Connect with a readiness cache that every peer's
// best-effort wrapper updates on Receive and that ReadWithFallback and
// ReadMultiWithFallback consult to order pull peers, so repeated
// failures against the same down peer are logged but also recorded
// for whatever external health surface the cache backs.
func ConnectWithCache(specs []Spec, cache *ReadinessCache) Clients {
	c := Clients{cache: cache}
	for _, s := range specs {
		client := bestEffortClient(httpstore.New(s.URL), s.URL, cache)
		switch s.Direction {
		case DirectionPush:
			c.PushClients = append(c.PushClients, client)
		case DirectionPull:
			c.PullClients = append(c.PullClients, client)
		case DirectionBidirectional:
			c.PushClients = append(c.PushClients, client)
			c.PullClients = append(c.PullClients, client)
		}
	}
	return c
}

// bestEffortWrapper wraps a store.Backend so that Receive failures are
// logged and reported as accepted, per spec.md §4.7: "replication
// failures must not fail the local write". Every other method passes
// through unchanged.
type bestEffortWrapper struct {
	store.Backend
	peerURL string
	cache   *ReadinessCache
}

func bestEffortClient(b store.Backend, peerURL string, cache *ReadinessCache) store.Backend {
	return bestEffortWrapper{Backend: b, peerURL: peerURL, cache: cache}
}

// ReadWithFallback reads rawURI from primary; if primary errors or
// misses, it tries each configured pull peer — last-known-healthy ones
// first, per the readiness cache — and returns the first successful
// read, per spec.md §4.7: "pull peers are available as fallback readers".
func (c Clients) ReadWithFallback(ctx context.Context, primary store.Backend, rawURI string) (store.ReadResult, error) {
	res, err := primary.Read(ctx, rawURI)
	if err == nil && res.Success {
		return res, nil
	}
	for _, p := range c.orderedPullClients(ctx) {
		pres, perr := p.Read(ctx, rawURI)
		if perr == nil && pres.Success {
			return pres, nil
		}
	}
	return res, err
}

// orderedPullClients returns PullClients with last-known-healthy peers
// (per c.cache) moved ahead of unknown/unhealthy ones; with no cache
// configured it returns PullClients unchanged.
func (c Clients) orderedPullClients(ctx context.Context) []store.Backend {
	if c.cache == nil || len(c.PullClients) == 0 {
		return c.PullClients
	}
	ordered := make([]store.Backend, 0, len(c.PullClients))
	var rest []store.Backend
	for _, p := range c.PullClients {
		if w, ok := p.(bestEffortWrapper); ok && c.cache.IsHealthy(ctx, w.peerURL) {
			ordered = append(ordered, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(ordered, rest...)
}

// ReadMultiWithFallback runs primary.ReadMulti, then retries any URI
// that failed against each pull peer in turn, patching the per-URI
// result and summary counts in place on the first peer success.
func (c Clients) ReadMultiWithFallback(ctx context.Context, primary store.Backend, uris []string) (store.ReadMultiResult, error) {
	res, err := primary.ReadMulti(ctx, uris)
	if err != nil || len(c.PullClients) == 0 {
		return res, err
	}
	pullClients := c.orderedPullClients(ctx)
	for i, r := range res.Results {
		if r.Success {
			continue
		}
		for _, p := range pullClients {
			pres, perr := p.Read(ctx, uris[i])
			if perr == nil && pres.Success {
				res.Results[i] = pres
				res.Summary.Succeeded++
				res.Summary.Failed--
				res.Success = true
				break
			}
		}
	}
	return res, nil
}

func (w bestEffortWrapper) Receive(ctx context.Context, rawURI string, data interface{}) (store.ReceiveResult, error) {
	res, err := w.Backend.Receive(ctx, rawURI, data)
	if err != nil {
		log.Warnf("peer receive failed for %s: %v", rawURI, err)
		w.cache.MarkUnhealthy(ctx, w.peerURL)
		return store.ReceiveResult{Accepted: true}, nil
	}
	if !res.Accepted {
		log.Warnf("peer rejected %s: %s", rawURI, res.Error)
		w.cache.MarkUnhealthy(ctx, w.peerURL)
		return store.ReceiveResult{Accepted: true}, nil
	}
	w.cache.MarkHealthy(ctx, w.peerURL)
	return res, nil
}
