package managed

import "github.com/Mindburn-Labs/fabric/pkg/metrics"

// NodeStatus is the heartbeat document a managed node publishes at
// fabricuri.StatusURI (spec.md §3 "NodeStatus").
type NodeStatus struct {
	NodeID     string          `json:"nodeId"`
	InstanceID string          `json:"instanceId"`
	Status     string          `json:"status"` // "healthy" | "degraded"
	Backends   []BackendStatus `json:"backends"`
	Timestamp  int64           `json:"timestamp"`
}

// BackendStatus reports one configured backend's health at heartbeat time.
type BackendStatus struct {
	Type   BackendType `json:"type"`
	Status string      `json:"status"` // "connected" | "error"
}

// NodeMetrics is the windowed metrics document a managed node publishes
// at fabricuri.MetricsURI (spec.md §3 "NodeMetrics").
type NodeMetrics struct {
	NodeID      string              `json:"nodeId"`
	Ops         []metrics.OpSnapshot `json:"ops"`
	WindowStart int64               `json:"windowStart"`
	WindowEnd   int64               `json:"windowEnd"`
}
