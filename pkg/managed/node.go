package managed

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/fabricuri"
	"github.com/Mindburn-Labs/fabric/pkg/logging"
	"github.com/Mindburn-Labs/fabric/pkg/metrics"
	"github.com/Mindburn-Labs/fabric/pkg/node"
	"github.com/Mindburn-Labs/fabric/pkg/peer"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/store/httpstore"
	"github.com/Mindburn-Labs/fabric/pkg/store/memstore"
	"github.com/Mindburn-Labs/fabric/pkg/uri"
	"github.com/Mindburn-Labs/fabric/pkg/update"
	"github.com/Mindburn-Labs/fabric/pkg/validate"
	"github.com/google/uuid"
)

// State is one stage of the managed-node lifecycle (spec.md §4.9).
type State string

const (
	StateBootstrap     State = "bootstrap"
	StateLoadingConfig State = "loading-config"
	StateRunning       State = "running"
	StateReconfiguring State = "reconfiguring"
	StateStopping      State = "stopping"
)

var log = logging.New("managed")

// Identity is everything a managed node needs about itself before it
// can load any config: its signing key, its X25519 key pair (for
// receiving encrypted updates and optionally encrypting its own
// heartbeat to the operator), and where to find its operator and
// config (spec.md §6 bootstrap environment variables).
type Identity struct {
	NodeID            string
	OperatorPubHex    string
	ConfigURL         string
	Signer            *fabriccrypto.Ed25519Signer
	NodeEncPriv       [32]byte
	NodeEncPubHex     string
	OperatorEncPubHex string // optional; non-empty enables encrypted heartbeats
	OnUpdateAvailable func(update.ModuleUpdate)
}

// graph is the active backend/peer/schema wiring for one config
// version (spec.md §4.9 Running). Swapped atomically on Reconfigure.
type graph struct {
	config          ManagedNodeConfig
	configTimestamp int64

	backends []store.Backend // raw, possibly metrics-wrapped
	recorder *metrics.Recorder
	registry *uri.Registry
	peers    peer.Clients

	primary store.Backend // message node wrapping the validated composer
	workers workerSet
}

type workerSet struct {
	heartbeat        *worker
	metricsCollector *worker
	configWatcher    *worker
	moduleWatcher    *worker
	updateChecker    *worker
}

func (w workerSet) stopAll() {
	for _, wk := range []*worker{w.heartbeat, w.metricsCollector, w.configWatcher, w.moduleWatcher, w.updateChecker} {
		if wk != nil {
			wk.Stop()
		}
	}
}

// Node drives the full C11 lifecycle and is itself a store.Backend, so
// an HTTP front end can serve it without knowing which phase it is in.
type Node struct {
	mu         sync.RWMutex
	state      State
	identity   Identity
	instanceID string // distinguishes restarts of the same NodeID in published NodeStatus

	configSource     store.Backend // client pointed at Identity.ConfigURL
	bootstrapBackend store.Backend // minimal in-memory backend, Bootstrap-phase only
	active           *graph        // nil until first Running
}

var _ store.Backend = (*Node)(nil)

// NewNode enters Bootstrap: a minimal in-memory backend answers
// mutable://accounts/* reads/writes, and a client is constructed
// against identity.ConfigURL (spec.md §4.9 Bootstrap).
func NewNode(identity Identity) *Node {
	return &Node{
		state:            StateBootstrap,
		identity:         identity,
		instanceID:       uuid.NewString(),
		configSource:     httpstore.New(identity.ConfigURL),
		bootstrapBackend: memstore.New(),
	}
}

// State reports the node's current lifecycle stage.
func (n *Node) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Start performs LoadingConfig followed by the first Running transition,
// then starts every periodic worker.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	n.state = StateLoadingConfig
	n.mu.Unlock()

	doc, err := LoadConfig(ctx, n.configSource, fabricuri.ConfigURI(n.identity.OperatorPubHex, n.identity.NodeID), n.identity.OperatorPubHex)
	if err != nil {
		return err
	}

	g, err := n.buildGraph(ctx, doc)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.active = g
	n.state = StateRunning
	n.mu.Unlock()

	n.startWorkers(ctx, g)
	return nil
}

// buildGraph instantiates backends, schema, the validated composer and
// peers for doc, without touching n.active (spec.md §4.9 Running
// (a)-(d)).
func (n *Node) buildGraph(ctx context.Context, doc *ConfigDocument) (*graph, error) {
	cfg := doc.Config

	backends, err := BuildBackends(ctx, cfg.Backends)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.ConfigError, "build configured backends", err)
	}
	if len(backends) == 0 {
		return nil, fabricerr.New(fabricerr.ConfigError, "managed node config declares no backends")
	}

	primaryRaw := backends[0]
	var recorder *metrics.Recorder
	if cfg.Monitoring.MetricsEnabled {
		meter, _ := metrics.NewReader("fabric.managed." + cfg.NodeID)
		recorder, _, err = metrics.New(meter)
		if err != nil {
			return nil, fabricerr.Wrap(fabricerr.ConfigError, "init metrics recorder", err)
		}
		primaryRaw = metrics.Wrap(primaryRaw, recorder)
		backends[0] = primaryRaw
	}

	registry, err := LoadSchema(&cfg)
	if err != nil {
		return nil, err
	}

	peers := peer.ConnectWithCache(toPeerSpecs(cfg.Peers), peer.NewReadinessCache(cfg.Monitoring.ReadinessCacheURL))
	primary := composeGraph(primaryRaw, registry, peers)

	return &graph{
		config:          cfg,
		configTimestamp: doc.Timestamp,
		backends:        backends,
		recorder:        recorder,
		registry:        registry,
		peers:           peers,
		primary:         primary,
	}, nil
}

// composeGraph wraps raw (a backend, possibly metrics-instrumented)
// with the validated-client composer (C7) and then the message node
// (C8), matching spec.md §4.6's createMessageNode({validate, read,
// peers}) — "validate" here is the already-schema-checking composer.
func composeGraph(raw store.Backend, registry *uri.Registry, peers peer.Clients) store.Backend {
	composer := validate.New(raw, raw, registry)
	return node.New(node.Config{Write: composer, Read: composer, Peers: peers.PushClients})
}

func toPeerSpecs(specs []PeerSpec) []peer.Spec {
	out := make([]peer.Spec, 0, len(specs))
	for _, s := range specs {
		out = append(out, peer.Spec{URL: s.URL, Direction: s.Direction})
	}
	return out
}

// Reconfigure runs the Reconfiguring transition: build a fresh graph
// from doc, then atomically swap it in. In-flight requests hold a
// reference to the old graph's primary backend through their call
// stack and complete against it; new requests see the new graph the
// instant the pointer swap under n.mu completes (spec.md §4.9).
func (n *Node) Reconfigure(ctx context.Context, doc *ConfigDocument) error {
	n.mu.Lock()
	n.state = StateReconfiguring
	old := n.active
	n.mu.Unlock()

	g, err := n.buildGraph(ctx, doc)
	if err != nil {
		n.mu.Lock()
		n.state = StateRunning
		n.mu.Unlock()
		return err
	}

	n.mu.Lock()
	n.active = g
	n.state = StateRunning
	n.mu.Unlock()

	n.startWorkers(ctx, g)

	if old != nil {
		old.workers.stopAll()
		cleanupBackends(ctx, old.backends)
	}
	return nil
}

func cleanupBackends(ctx context.Context, backends []store.Backend) {
	for _, b := range backends {
		if err := b.Cleanup(ctx); err != nil {
			log.Warnf("backend cleanup failed: %v", err)
		}
	}
}

// Stop halts every worker and releases every backend's resources
// (spec.md §4.9 Stopping).
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	n.state = StateStopping
	g := n.active
	n.mu.Unlock()

	if g == nil {
		return nil
	}
	g.workers.stopAll()
	cleanupBackends(ctx, g.backends)
	return nil
}

func (n *Node) activeBackend() store.Backend {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.active != nil {
		return n.active.primary
	}
	return nil
}

// bootstrapOnly reports whether the node is still pre-Running and
// should therefore restrict traffic to mutable://accounts/* (spec.md
// §4.9 Bootstrap).
func (n *Node) bootstrapOnly() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.active == nil
}

func (n *Node) backendFor(rawURI string) (store.Backend, error) {
	if n.bootstrapOnly() {
		if !strings.HasPrefix(rawURI, "mutable://accounts/") {
			return nil, fabricerr.New(fabricerr.InputError, "bootstrap accepts only mutable://accounts/* URIs")
		}
		return n.bootstrapBackend, nil
	}
	if b := n.activeBackend(); b != nil {
		return b, nil
	}
	return n.bootstrapBackend, nil
}

// activePeers returns the active graph's configured peers, or the zero
// value (no peers) during Bootstrap or before the first Running graph
// exists.
func (n *Node) activePeers() peer.Clients {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.active != nil {
		return n.active.peers
	}
	return peer.Clients{}
}

func (n *Node) Receive(ctx context.Context, rawURI string, data interface{}) (store.ReceiveResult, error) {
	b, err := n.backendFor(rawURI)
	if err != nil {
		return store.ReceiveResult{Accepted: false, Error: err.Error()}, nil
	}
	return b.Receive(ctx, rawURI, data)
}

// Read reads rawURI from the active backend, falling back to a
// configured pull peer on miss or failure (spec.md §4.7, C9).
func (n *Node) Read(ctx context.Context, rawURI string) (store.ReadResult, error) {
	b, err := n.backendFor(rawURI)
	if err != nil {
		return store.ReadResult{Success: false, Error: err.Error()}, nil
	}
	return n.activePeers().ReadWithFallback(ctx, b, rawURI)
}

// ReadMulti reads every URI from the active backend, falling back to a
// configured pull peer for any URI the primary read missed or failed
// (spec.md §4.7, C9).
func (n *Node) ReadMulti(ctx context.Context, uris []string) (store.ReadMultiResult, error) {
	return n.activePeers().ReadMultiWithFallback(ctx, n.mustBackend(), uris)
}

func (n *Node) List(ctx context.Context, rawURI string, opts store.ListOptions) (store.ListResult, error) {
	return n.mustBackend().List(ctx, rawURI, opts)
}

func (n *Node) Delete(ctx context.Context, rawURI string) (store.DeleteResult, error) {
	b, err := n.backendFor(rawURI)
	if err != nil {
		return store.DeleteResult{Success: false, Error: err.Error()}, nil
	}
	return b.Delete(ctx, rawURI)
}

func (n *Node) Health(ctx context.Context) (store.Health, error) {
	return n.mustBackend().Health(ctx)
}

func (n *Node) GetSchema(ctx context.Context) ([]string, error) {
	return n.mustBackend().GetSchema(ctx)
}

func (n *Node) Cleanup(ctx context.Context) error {
	return n.Stop(ctx)
}

func (n *Node) mustBackend() store.Backend {
	if b := n.activeBackend(); b != nil {
		return b
	}
	return n.bootstrapBackend
}

func durationFromMs(ms int64) time.Duration {
	if ms <= 0 {
		return time.Second
	}
	return time.Duration(ms) * time.Millisecond
}
