// Package sqlstore implements the PostgreSQL-backed store (C6): a
// single table keyed by URI, upserted with ON CONFLICT, prefix-matched
// for list, and equality/IN-matched for read/readMulti. Grounded on the
// teacher's receipt_store_sqlite.go (sql.Open + migrate-on-construct +
// parameterized query idiom), generalized from a fixed receipt schema to
// the fabric's generic {uri, data, ts} record shape and adapted from
// SQLite-positional ("?") to Postgres-positional ("$n") placeholders.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Mindburn-Labs/fabric/pkg/fabricerr"
	"github.com/Mindburn-Labs/fabric/pkg/store"
	"github.com/Mindburn-Labs/fabric/pkg/uri"
	_ "github.com/lib/pq" // registers the "postgres" driver used by Open
)

// binaryMarker is the sentinel key used to round-trip []byte values
// through the JSON column (spec.md §4.4 binary-safe value encoding).
const binaryMarker = "__fabric_bytes__"

// Store is a PostgreSQL-backed C4 backend.
type Store struct {
	db *sql.DB
}

// Open connects to dsn and ensures the records table exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.TransportError, "open postgres", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already-open *sql.DB (the package tests pass a sqlmock
// handle).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fabric_records (
			uri  VARCHAR(2048) PRIMARY KEY,
			data JSON NOT NULL,
			ts   BIGINT NOT NULL
		)`)
	if err != nil {
		return fabricerr.Wrap(fabricerr.TransportError, "migrate fabric_records", err)
	}
	return nil
}

var _ store.Backend = (*Store)(nil)

func encodeValue(v interface{}) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return json.Marshal(map[string]string{binaryMarker: encodeB64(b)})
	}
	return json.Marshal(v)
}

func decodeValue(raw []byte) (interface{}, error) {
	var marker map[string]string
	if err := json.Unmarshal(raw, &marker); err == nil {
		if b64, ok := marker[binaryMarker]; ok && len(marker) == 1 {
			return decodeB64(b64)
		}
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Store) Receive(ctx context.Context, rawURI string, data interface{}) (store.ReceiveResult, error) {
	if _, err := uri.Parse(rawURI); err != nil {
		return store.ReceiveResult{Accepted: false, Error: "missing-uri"}, nil
	}

	encoded, err := encodeValue(data)
	if err != nil {
		return store.ReceiveResult{Accepted: false, Error: err.Error()}, nil
	}

	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fabric_records (uri, data, ts) VALUES ($1, $2, $3)
		ON CONFLICT (uri) DO UPDATE SET data = EXCLUDED.data, ts = EXCLUDED.ts
	`, rawURI, string(encoded), now)
	if err != nil {
		return store.ReceiveResult{}, fabricerr.Wrap(fabricerr.TransportError, "upsert record", err)
	}

	return store.ReceiveResult{Accepted: true}, nil
}

func (s *Store) Read(ctx context.Context, rawURI string) (store.ReadResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data, ts FROM fabric_records WHERE uri = $1`, rawURI)

	var raw string
	var ts int64
	if err := row.Scan(&raw, &ts); err != nil {
		if err == sql.ErrNoRows {
			return store.ReadResult{Success: false, Error: "not-found"}, nil
		}
		return store.ReadResult{}, fabricerr.Wrap(fabricerr.TransportError, "read record", err)
	}

	val, err := decodeValue([]byte(raw))
	if err != nil {
		return store.ReadResult{}, fabricerr.Wrap(fabricerr.TransportError, "decode record", err)
	}

	return store.ReadResult{Success: true, Record: &store.Record{TS: ts, Data: val}}, nil
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

	placeholders := make([]string, len(uris))
	args := make([]interface{}, len(uris))
	for i, u := range uris {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = u
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT uri, data, ts FROM fabric_records WHERE uri IN (%s)`, strings.Join(placeholders, ",")),
		args...)
	if err != nil {
		return store.ReadMultiResult{}, fabricerr.Wrap(fabricerr.TransportError, "read multi", err)
	}
	defer func() { _ = rows.Close() }()

	found := make(map[string]store.Record, len(uris))
	for rows.Next() {
		var u, raw string
		var ts int64
		if err := rows.Scan(&u, &raw, &ts); err != nil {
			return store.ReadMultiResult{}, fabricerr.Wrap(fabricerr.TransportError, "scan row", err)
		}
		val, err := decodeValue([]byte(raw))
		if err != nil {
			return store.ReadMultiResult{}, fabricerr.Wrap(fabricerr.TransportError, "decode record", err)
		}
		found[u] = store.Record{TS: ts, Data: val}
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

	prefix := strings.TrimSuffix(rawURI, "/") + "/"
	rows, err := s.db.QueryContext(ctx,
		`SELECT uri, data, ts FROM fabric_records WHERE uri = $1 OR uri LIKE $2`,
		rawURI, prefix+"%")
	if err != nil {
		return store.ListResult{}, fabricerr.Wrap(fabricerr.TransportError, "list records", err)
	}
	defer func() { _ = rows.Close() }()

	var items []store.ListItem
	for rows.Next() {
		var u, raw string
		var ts int64
		if err := rows.Scan(&u, &raw, &ts); err != nil {
			return store.ListResult{}, fabricerr.Wrap(fabricerr.TransportError, "scan row", err)
		}
		val, err := decodeValue([]byte(raw))
		if err != nil {
			return store.ListResult{}, fabricerr.Wrap(fabricerr.TransportError, "decode record", err)
		}
		items = append(items, store.ListItem{URI: u, Record: store.Record{TS: ts, Data: val}})
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

	res, err := s.db.ExecContext(ctx, `DELETE FROM fabric_records WHERE uri = $1`, rawURI)
	if err != nil {
		return store.DeleteResult{}, fabricerr.Wrap(fabricerr.TransportError, "delete record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.DeleteResult{}, fabricerr.Wrap(fabricerr.TransportError, "rows affected", err)
	}
	if n == 0 {
		return store.DeleteResult{Success: false, Error: "not-found"}, nil
	}
	return store.DeleteResult{Success: true}, nil
}

func (s *Store) Health(ctx context.Context) (store.Health, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Health{Status: store.HealthUnhealthy, Message: err.Error()}, nil
	}
	stats := s.db.Stats()
	if stats.OpenConnections > 0 && stats.InUse == stats.OpenConnections && stats.MaxOpenConnections > 0 {
		return store.Health{Status: store.HealthDegraded, Message: "connection pool saturated"}, nil
	}
	return store.Health{Status: store.HealthHealthy}, nil
}

func (s *Store) GetSchema(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT uri FROM fabric_records`)
	if err != nil {
		return nil, fabricerr.Wrap(fabricerr.TransportError, "get schema", err)
	}
	defer func() { _ = rows.Close() }()

	seen := map[string]bool{}
	var keys []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
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

// Cleanup closes the connection pool exactly once (spec.md §5).
func (s *Store) Cleanup(ctx context.Context) error {
	return s.db.Close()
}
