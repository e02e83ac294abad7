package managed

import (
	"context"
	"fmt"

	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/store/httpstore"
	"github.com/Mindburn-Labs/fabric/pkg/store/memstore"
	"github.com/Mindburn-Labs/fabric/pkg/store/mongostore"
	"github.com/Mindburn-Labs/fabric/pkg/store/sqlstore"
)

// BuildBackend constructs the store.Backend named by spec, or a
// fabricerr.InputError if spec.Type is unrecognised (spec.md §6:
// "unknown backend.type is fatal for that backend only").
func BuildBackend(ctx context.Context, spec BackendSpec) (store.Backend, error) {
	switch spec.Type {
	case BackendMemory:
		return memstore.New(), nil
	case BackendPostgreSQL:
		db, err := sqlstore.Open(ctx, spec.URL)
		if err != nil {
			return nil, fabricerr.Wrap(fabricerr.TransportError, "open postgresql backend", err)
		}
		return db, nil
	case BackendMongoDB:
		dbName := "fabric"
		if v, ok := spec.Options["database"].(string); ok && v != "" {
			dbName = v
		}
		mdb, err := mongostore.Connect(ctx, spec.URL, dbName)
		if err != nil {
			return nil, fabricerr.Wrap(fabricerr.TransportError, "connect mongodb backend", err)
		}
		return mdb, nil
	case BackendHTTP:
		return httpstore.New(spec.URL), nil
	default:
		return nil, fabricerr.New(fabricerr.InputError, fmt.Sprintf("unknown backend type: %s", spec.Type))
	}
}

// BuildBackends constructs the backends in specs in order. It stops at
// the first spec that fails to build and returns the backends built
// before it alongside the error; specs after the failing one are not
// attempted. Node.buildGraph treats any such error as fatal for the
// whole config.
func BuildBackends(ctx context.Context, specs []BackendSpec) ([]store.Backend, error) {
	backends := make([]store.Backend, 0, len(specs))
	for _, spec := range specs {
		b, err := BuildBackend(ctx, spec)
		if err != nil {
			return backends, err
		}
		backends = append(backends, b)
	}
	return backends, nil
}
