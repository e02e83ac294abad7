package uri

import (
	"fmt"
	"sync"
)

// Validator gates receive() for a single program key. Implementations
// are pure relative to the state snapshot observed through ctx.Read
// (spec.md §3, Schema invariant).
type Validator interface {
	Validate(ctx *ValidationContext) (bool, error)
}

// Reader gives a Validator causal read access to current state without
// write capability — the duck-typed `read` field of the original
// validator context becomes an explicit interface (spec.md §9).
type Reader interface {
	Read(uri string) (interface{}, bool, error)
}

// ValidationContext is the read-only view passed to a Validator.
type ValidationContext struct {
	URI   string
	Value interface{}
	Read  Reader
}

// ReaderFunc adapts a plain function to Reader.
type ReaderFunc func(uri string) (interface{}, bool, error)

func (f ReaderFunc) Read(uri string) (interface{}, bool, error) { return f(uri) }

// Registry maps program keys to the Validator gating writes to them.
// Mirrors the teacher's InMemoryRegistry (pkg/registry/registry.go):
// a plain sync.RWMutex-guarded map, constructed empty and populated by
// Register calls, with sentinel errors on lookup failure.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

// NewRegistry returns an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

// Register installs v for programKey. Per spec.md §4.1, implementations
// MUST reject non-conforming program keys at construction.
func (r *Registry) Register(programKey string, v Validator) error {
	if !ValidProgramKey(programKey) {
		return fmt.Errorf("uri: schema key %q does not match ^[a-z]+://[a-z0-9-]+$", programKey)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[programKey] = v
	return nil
}

// Lookup returns the Validator for programKey, or ErrProgramNotRegistered.
func (r *Registry) Lookup(programKey string) (Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.validators[programKey]
	if !ok {
		return nil, ErrProgramNotRegistered
	}
	return v, nil
}

// ProgramKeys returns every registered program key (backs C4's
// getSchema operation).
func (r *Registry) ProgramKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.validators))
	for k := range r.validators {
		keys = append(keys, k)
	}
	return keys
}
