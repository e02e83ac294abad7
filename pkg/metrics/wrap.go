package metrics

import (
	"context"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/store"
)

// instrumented wraps a store.Backend so every Receive/Read records its
// latency and, on failure, an error tick (spec.md §4.9 metricsCollector:
// "each receive/read records latency; recordError on thrown errors").
// Every other method passes through unchanged.
type instrumented struct {
	store.Backend
	recorder *Recorder
}

// Wrap returns backend instrumented by recorder.
func Wrap(backend store.Backend, recorder *Recorder) store.Backend {
	return instrumented{Backend: backend, recorder: recorder}
}

func (i instrumented) Receive(ctx context.Context, rawURI string, data interface{}) (store.ReceiveResult, error) {
	start := time.Now()
	res, err := i.Backend.Receive(ctx, rawURI, data)
	i.recorder.RecordLatency(ctx, "receive", time.Since(start))
	if err != nil || !res.Accepted {
		i.recorder.RecordError(ctx, "receive")
	}
	return res, err
}

func (i instrumented) Read(ctx context.Context, rawURI string) (store.ReadResult, error) {
	start := time.Now()
	res, err := i.Backend.Read(ctx, rawURI)
	i.recorder.RecordLatency(ctx, "read", time.Since(start))
	if err != nil {
		i.recorder.RecordError(ctx, "read")
	}
	return res, err
}
