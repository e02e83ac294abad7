package managed

import (
	"context"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabriccrypto"
	"github.com/Mindburn-Labs/fabric/pkg/fabricuri"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/update"
)

// startWorkers launches every periodic worker g's config calls for
// (spec.md §4.9 Running (e)). Each worker closes over g, not n.active,
// so a later Reconfigure's Stop call on the old graph's workers cannot
// race with the new graph's workers touching the wrong generation.
func (n *Node) startWorkers(ctx context.Context, g *graph) {
	g.workers.heartbeat = newWorker(durationFromMs(g.config.Monitoring.HeartbeatIntervalMs), func(ctx context.Context) {
		n.heartbeatTick(ctx, g)
	})
	g.workers.heartbeat.Start(ctx)

	if g.config.Monitoring.MetricsEnabled && g.recorder != nil {
		g.workers.metricsCollector = newWorker(durationFromMs(g.config.Monitoring.HeartbeatIntervalMs), func(ctx context.Context) {
			n.metricsTick(ctx, g)
		})
		g.workers.metricsCollector.Start(ctx)
	}

	g.workers.configWatcher = newWorker(durationFromMs(g.config.Monitoring.ConfigPollIntervalMs), func(ctx context.Context) {
		n.configWatcherTick(ctx, g)
	})
	g.workers.configWatcher.Start(ctx)

	if g.config.SchemaModuleURL != "" {
		g.workers.moduleWatcher = newWorker(durationFromMs(g.config.Monitoring.ConfigPollIntervalMs), func(ctx context.Context) {
			n.moduleWatcherTick(ctx, g)
		})
		g.workers.moduleWatcher.Start(ctx)
	}

	updateChecker := update.NewChecker(
		n.configSource,
		fabricuri.UpdateURI(n.identity.OperatorPubHex, n.identity.NodeID),
		n.identity.OperatorPubHex,
		n.identity.NodeEncPriv,
		n.identity.OnUpdateAvailable,
	)
	g.workers.updateChecker = newWorker(durationFromMs(g.config.Monitoring.ConfigPollIntervalMs), func(ctx context.Context) {
		if err := updateChecker.Poll(ctx); err != nil {
			log.Warnf("update check failed: %v", err)
		}
	})
	g.workers.updateChecker.Start(ctx)
}

// heartbeatTick assembles a NodeStatus from every configured backend's
// Health(), signs it (optionally encrypting to the operator's X25519
// key), and publishes it at fabricuri.StatusURI (spec.md §4.9, scenario 6).
func (n *Node) heartbeatTick(ctx context.Context, g *graph) {
	statuses := make([]BackendStatus, 0, len(g.backends))
	degraded := false
	for i, b := range g.backends {
		health, err := b.Health(ctx)
		backendType := BackendType("unknown")
		if i < len(g.config.Backends) {
			backendType = g.config.Backends[i].Type
		}
		status := "connected"
		if err != nil || health.Status != store.HealthHealthy {
			status = "error"
			degraded = true
		}
		statuses = append(statuses, BackendStatus{Type: backendType, Status: status})
	}

	overall := "healthy"
	if degraded {
		overall = "degraded"
	}

	payload := NodeStatus{
		NodeID:     n.identity.NodeID,
		InstanceID: n.instanceID,
		Status:     overall,
		Backends:   statuses,
		Timestamp:  time.Now().UnixMilli(),
	}

	if err := n.publishSigned(ctx, fabricuri.StatusURI(n.identity.Signer.PublicKey()), payload, g); err != nil {
		log.Warnf("heartbeat publish failed: %v", err)
	}
}

// metricsTick publishes the current window snapshot and resets it
// (spec.md §4.9 metricsCollector / §4.10).
func (n *Node) metricsTick(ctx context.Context, g *graph) {
	snap := g.recorder.Snapshot()
	payload := NodeMetrics{
		NodeID:      n.identity.NodeID,
		Ops:         snap.Ops,
		WindowStart: snap.WindowStart.UnixMilli(),
		WindowEnd:   snap.WindowEnd.UnixMilli(),
	}
	if err := n.publishSigned(ctx, fabricuri.MetricsURI(n.identity.Signer.PublicKey()), payload, g); err != nil {
		log.Warnf("metrics publish failed: %v", err)
	}
}

// publishSigned signs payload with the node's key (optionally
// encrypting it to the operator's X25519 key) and writes it through
// the node's own active backend.
func (n *Node) publishSigned(ctx context.Context, targetURI string, payload interface{}, g *graph) error {
	var doc interface{}
	if n.identity.OperatorEncPubHex != "" {
		raw, err := envelope.CanonicalJSON(payload)
		if err != nil {
			return err
		}
		am, err := fabriccrypto.CreateSignedEncryptedMessage(raw, []fabriccrypto.Signer{n.identity.Signer}, n.identity.OperatorEncPubHex)
		if err != nil {
			return err
		}
		doc = am
	} else {
		am, err := fabriccrypto.CreateAuthenticatedMessage(payload, []fabriccrypto.Signer{n.identity.Signer})
		if err != nil {
			return err
		}
		doc = am
	}

	_, err := g.primary.Receive(ctx, targetURI, doc)
	return err
}

// configWatcherTick reloads the config; a strictly newer timestamp
// triggers Reconfigure (spec.md §4.9 configWatcher, P9).
func (n *Node) configWatcherTick(ctx context.Context, g *graph) {
	doc, err := LoadConfig(ctx, n.configSource, fabricuri.ConfigURI(n.identity.OperatorPubHex, n.identity.NodeID), n.identity.OperatorPubHex)
	if err != nil {
		log.Warnf("config poll failed: %v", err)
		return
	}
	if doc.Timestamp <= g.configTimestamp {
		return
	}
	if err := n.Reconfigure(ctx, doc); err != nil {
		log.Warnf("reconfigure failed: %v", err)
	}
}

// moduleWatcherTick re-resolves the schema module (spec.md §9's
// pluggable-registry redesign of "dynamic import") and swaps in the
// freshly resolved registry on every tick, without touching backends
// or peers.
func (n *Node) moduleWatcherTick(ctx context.Context, g *graph) {
	registry, err := LoadSchema(&g.config)
	if err != nil {
		log.Warnf("schema reload failed: %v", err)
		return
	}

	// g.backends[0] is already metrics-wrapped by buildGraph when
	// monitoring.metricsEnabled, so recomposing over it here carries
	// that instrumentation forward without wrapping it twice.
	newPrimary := composeGraph(g.backends[0], registry, g.peers)

	n.mu.Lock()
	if n.active == g {
		g.registry = registry
		g.primary = newPrimary
	}
	n.mu.Unlock()
}
