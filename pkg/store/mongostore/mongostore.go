// Package mongostore implements a MongoDB-backed C6 store: documents
// keyed by uri, upserted via ReplaceOne, batch reads via $in re-ordered
// to the caller's URI order, prefix list via an anchored regex. Grounded
// on the teacher's receipt_store_sqlite.go upsert idiom, adapted from
// SQL upsert to a Mongo filter+replace+upsert round trip, and enriched
// with go.mongodb.org/mongo-driver since no example repo in the pack
// exercises a document store otherwise.
package mongostore

import (
	"context"
	"regexp"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/envelope"
	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/uri"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type doc struct {
	URI  string      `bson:"uri"`
	Data interface{} `bson:"data"`
	TS   int64       `bson:"ts"`
}

// Store is a MongoDB-backed C4 backend.
type Store struct {
	coll *mongo.Collection
}

// Connect dials uri and returns a Store bound to db.records.
func Connect(ctx context.Context, connURI, db string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connURI))
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.TransportError, "connect mongo", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fabricerr.Wrap(fabricerr.TransportError, "ping mongo", err)
	}
	return New(client.Database(db).Collection("records")), nil
}

// New wraps an already-resolved collection handle.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

var _ store.Backend = (*Store)(nil)

func (s *Store) Receive(ctx context.Context, rawURI string, data interface{}) (store.ReceiveResult, error) {
	if _, err := uri.Parse(rawURI); err != nil {
		return store.ReceiveResult{Accepted: false, Error: "missing-uri"}, nil
	}

	d := doc{URI: rawURI, Data: data, TS: time.Now().UnixMilli()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"uri": rawURI}, d, options.Replace().SetUpsert(true))
	if err != nil {
		return store.ReceiveResult{}, fabricerr.Wrap(fabricerr.TransportError, "upsert document", err)
	}

	if kind, md, cerr := classifyMongo(data); cerr == nil && kind == envelope.KindMessageData {
		for _, out := range md.Outputs {
			var v interface{}
			if uerr := unmarshalOutput(out.Value, &v); uerr != nil {
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
	var d doc
	err := s.coll.FindOne(ctx, bson.M{"uri": rawURI}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return store.ReadResult{Success: false, Error: "not-found"}, nil
	}
	if err != nil {
		return store.ReadResult{}, fabricerr.Wrap(fabricerr.TransportError, "read document", err)
	}
	return store.ReadResult{Success: true, Record: &store.Record{TS: d.TS, Data: d.Data}}, nil
}

func (s *Store) ReadMulti(ctx context.Context, uris []string) (store.ReadMultiResult, error) {
	if len(uris) > store.MaxReadMultiURIs {
		return store.ReadMultiResult{
			Success: false,
			Summary: store.ReadMultiSummary{Total: len(uris), Succeeded: 0, Failed: len(uris)},
		}, nil
	}
	if len(uris) == 0 {
		return store.ReadMultiResult{Success: false, Summary: store.ReadMultiSummary{}}, nil
	}

	cur, err := s.coll.Find(ctx, bson.M{"uri": bson.M{"$in": uris}})
	if err != nil {
		return store.ReadMultiResult{}, fabricerr.Wrap(fabricerr.TransportError, "read multi", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	found := make(map[string]store.Record, len(uris))
	for cur.Next(ctx) {
		var d doc
		if err := cur.Decode(&d); err != nil {
			return store.ReadMultiResult{}, fabricerr.Wrap(fabricerr.TransportError, "decode document", err)
		}
		found[d.URI] = store.Record{TS: d.TS, Data: d.Data}
	}

	results := make([]store.ReadResult, len(uris))
	succeeded := 0
	for i, u := range uris {
		if rec, ok := found[u]; ok {
			rec := rec
			results[i] = store.ReadResult{Success: true, Record: &rec}
			succeeded++
		} else {
			results[i] = store.ReadResult{Success: false, Error: "not-found"}
		}
	}

	return store.ReadMultiResult{
		Success: succeeded > 0,
		Results: results,
		Summary: store.ReadMultiSummary{Total: len(uris), Succeeded: succeeded, Failed: len(uris) - succeeded},
	}, nil
}

func (s *Store) List(ctx context.Context, rawURI string, opts store.ListOptions) (store.ListResult, error) {
	if _, err := uri.Parse(rawURI); err != nil {
		return store.ListResult{}, fabricerr.New(fabricerr.InputError, "invalid path")
	}

	prefix := regexp.QuoteMeta(rawURI)
	filter := bson.M{"uri": bson.M{"$regex": "^" + prefix + "(/.*)?$"}}
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return store.ListResult{}, fabricerr.Wrap(fabricerr.TransportError, "list documents", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var items []store.ListItem
	for cur.Next(ctx) {
		var d doc
		if err := cur.Decode(&d); err != nil {
			return store.ListResult{}, fabricerr.Wrap(fabricerr.TransportError, "decode document", err)
		}
		items = append(items, store.ListItem{URI: d.URI, Record: store.Record{TS: d.TS, Data: d.Data}})
	}

	return store.Paginate(items, opts)
}

func (s *Store) Delete(ctx context.Context, rawURI string) (store.DeleteResult, error) {
	parsed, err := uri.Parse(rawURI)
	if err != nil {
		return store.DeleteResult{Success: false, Error: "invalid-uri"}, nil
	}
	if len(parsed.PathSegments) == 0 {
		return store.DeleteResult{Success: false, Error: "cannot-delete-root"}, nil
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"uri": rawURI})
	if err != nil {
		return store.DeleteResult{}, fabricerr.Wrap(fabricerr.TransportError, "delete document", err)
	}
	if res.DeletedCount == 0 {
		return store.DeleteResult{Success: false, Error: "not-found"}, nil
	}
	return store.DeleteResult{Success: true}, nil
}

func (s *Store) Health(ctx context.Context) (store.Health, error) {
	if err := s.coll.Database().Client().Ping(ctx, nil); err != nil {
		return store.Health{Status: store.HealthUnhealthy, Message: err.Error()}, nil
	}
	return store.Health{Status: store.HealthHealthy}, nil
}

func (s *Store) GetSchema(ctx context.Context) ([]string, error) {
	raw, err := s.coll.Distinct(ctx, "uri", bson.M{})
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.TransportError, "get schema", err)
	}
	seen := map[string]bool{}
	var keys []string
	for _, v := range raw {
		u, ok := v.(string)
		if !ok {
			continue
		}
		parsed, err := uri.Parse(u)
		if err != nil {
			continue
		}
		if !seen[parsed.ProgramKey] {
			seen[parsed.ProgramKey] = true
			keys = append(keys, parsed.ProgramKey)
		}
	}
	return keys, nil
}

func (s *Store) Cleanup(ctx context.Context) error {
	return s.coll.Database().Client().Disconnect(ctx)
}
