// Package validate implements the validated-client composer (C7): a
// store.Backend that validates a message envelope and its outputs
// against a schema registry before delegating persistence to an
// underlying write backend. Reads and lists pass straight through to a
// (possibly distinct) read backend; deletes pass straight through to
// the write backend. Grounded on the
// teacher's pkg/registry/registry.go lookup-by-key idiom and
// pkg/kms/kms.go's wrap-and-delegate composition style.
package validate

import (
	"context"
	"encoding/json"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/uri"
)

// Composer wraps write/read backends with schema validation.
type Composer struct {
	write    store.Backend
	read     store.Backend
	registry *uri.Registry
}

// New returns a C4-shaped client per spec.md §4.5.
func New(write, read store.Backend, registry *uri.Registry) *Composer {
	return &Composer{write: write, read: read, registry: registry}
}

var _ store.Backend = (*Composer)(nil)

func (c *Composer) readerFunc(ctx context.Context) uri.Reader {
	return uri.ReaderFunc(func(u string) (interface{}, bool, error) {
		res, err := c.read.Read(ctx, u)
		if err != nil {
			return nil, false, err
		}
		if !res.Success {
			return nil, false, nil
		}
		return res.Record.Data, true, nil
	})
}

func (c *Composer) validateURI(ctx context.Context, rawURI string, value interface{}) error {
	parsed, err := uri.Parse(rawURI)
	if err != nil {
		return fabricerr.New(fabricerr.InputError, "invalid-uri")
	}
	v, err := c.registry.Lookup(parsed.ProgramKey)
	if err != nil {
		return fabricerr.Wrap(fabricerr.NotFound, "program-not-registered", err)
	}
	ok, err := v.Validate(&uri.ValidationContext{URI: rawURI, Value: value, Read: c.readerFunc(ctx)})
	if err != nil {
		return fabricerr.Wrap(fabricerr.ValidationError, "validation-error", err)
	}
	if !ok {
		return fabricerr.New(fabricerr.ValidationError, "validation-error")
	}
	return nil
}

// Receive implements spec.md §4.5: MessageData envelopes validate their
// own URI plus every output's program before any persistence happens,
// so a validation failure means nothing is written through the
// composer. Once validation passes, the envelope and then each output
// are written in order; if one of those writes fails, the envelope and
// the outputs written before it are not rolled back.
func (c *Composer) Receive(ctx context.Context, rawURI string, data interface{}) (store.ReceiveResult, error) {
	if rawURI == "" {
		return store.ReceiveResult{Accepted: false, Error: "missing-uri"}, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return store.ReceiveResult{Accepted: false, Error: err.Error()}, nil
	}
	kind, val, err := envelope.Classify(raw)
	if err != nil {
		return store.ReceiveResult{Accepted: false, Error: err.Error()}, nil
	}

	if kind != envelope.KindMessageData {
		if verr := c.validateURI(ctx, rawURI, data); verr != nil {
			return store.ReceiveResult{Accepted: false, Error: verr.Error()}, nil
		}
		return c.write.Receive(ctx, rawURI, data)
	}

	md := val.(*envelope.MessageData)

	if verr := c.validateURI(ctx, rawURI, data); verr != nil {
		return store.ReceiveResult{Accepted: false, Error: verr.Error()}, nil
	}

	type pending struct {
		uri string
		val interface{}
	}
	writes := make([]pending, 0, len(md.Outputs))
	for _, out := range md.Outputs {
		var v interface{}
		if uerr := json.Unmarshal(out.Value, &v); uerr != nil {
			return store.ReceiveResult{Accepted: false, Error: uerr.Error()}, nil
		}
		if verr := c.validateURI(ctx, out.URI, v); verr != nil {
			return store.ReceiveResult{Accepted: false, Error: verr.Error()}, nil
		}
		writes = append(writes, pending{uri: out.URI, val: v})
	}

	res, err := c.write.Receive(ctx, rawURI, data)
	if err != nil || !res.Accepted {
		return res, err
	}
	for _, w := range writes {
		wres, werr := c.write.Receive(ctx, w.uri, w.val)
		if werr != nil || !wres.Accepted {
			return store.ReceiveResult{Accepted: false, Error: "output-write-failed: " + w.uri}, nil
		}
	}
	return store.ReceiveResult{Accepted: true}, nil
}

func (c *Composer) Read(ctx context.Context, rawURI string) (store.ReadResult, error) {
	return c.read.Read(ctx, rawURI)
}

func (c *Composer) ReadMulti(ctx context.Context, uris []string) (store.ReadMultiResult, error) {
	return c.read.ReadMulti(ctx, uris)
}

func (c *Composer) List(ctx context.Context, rawURI string, opts store.ListOptions) (store.ListResult, error) {
	return c.read.List(ctx, rawURI, opts)
}

func (c *Composer) Delete(ctx context.Context, rawURI string) (store.DeleteResult, error) {
	return c.write.Delete(ctx, rawURI)
}

func (c *Composer) Health(ctx context.Context) (store.Health, error) {
	return c.write.Health(ctx)
}

func (c *Composer) GetSchema(ctx context.Context) ([]string, error) {
	return c.registry.ProgramKeys(), nil
}

func (c *Composer) Cleanup(ctx context.Context) error {
	return c.write.Cleanup(ctx)
}
