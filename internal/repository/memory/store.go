// Package memory is a document store kept in process memory. It backs the
// "memory" store driver for local runs and the service tests. Documents are
// held as encoded JSON so absent optional fields stay absent, as they do in
// the Postgres store.
//
// Reads made outside a unit of work are not isolated from one that is open:
// they can see its writes before it commits, and those writes may still roll
// back.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
)

const (
	collectionInvitations = "invitations"
	collectionRoles       = "roles"
	collectionUsers       = "users"
)

type collections map[string]map[string][]byte

func (c collections) clone() collections {
	out := make(collections, len(c))
	for name, docs := range c {
		out[name] = maps.Clone(docs)
	}
	return out
}

// Store holds every collection. Individual calls are serialised; units of
// work run one at a time and roll back on error.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data collections

	failCommit error
}

func NewStore() *Store {
	return &Store{
		data: collections{
			collectionInvitations: {},
			collectionRoles:       {},
			collectionUsers:       {},
		},
	}
}

// FailNextCommit makes the next batch Commit return err without applying
// anything.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommit = err
}

// WithinTransaction implements database.Transactor. The collections are
// restored to their prior state when fn fails.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}

	return nil
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (s *Store) get(collection, key string, out any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.data[collection][key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %s/%s: %w", collection, key, err)
	}
	return true, nil
}

// write runs fn with exclusive access to the collections. Outside a unit of
// work it also waits for any running one to finish.
func (s *Store) write(ctx context.Context, fn func(data collections) error) error {
	if !inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// each decodes every document of a collection into a fresh T and passes it to fn
func each[T any](s *Store, collection string, fn func(key string, doc T)) error {
	s.mu.RLock()
	docs := maps.Clone(s.data[collection])
	s.mu.RUnlock()

	return eachIn(docs, collection, fn)
}

func eachIn[T any](docs map[string][]byte, collection string, fn func(key string, doc T)) error {
	for key, raw := range docs {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decode %s/%s: %w", collection, key, err)
		}
		fn(key, doc)
	}
	return nil
}

func encode(collection, key string, doc any) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	return raw, nil
}

// mergeDoc shallow-merges the top-level keys of each patch onto a stored
// document, the way jsonb || does. Later patches win.
func mergeDoc(raw []byte, patches ...any) ([]byte, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for _, p := range patches {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
		maps.Copy(doc, fields)
	}
	return json.Marshal(doc)
}

// mergeIn applies mergeDoc to a document of data; ok is false when it is missing
func mergeIn(data collections, collection, key string, patches ...any) (bool, error) {
	raw, ok := data[collection][key]
	if !ok {
		return false, nil
	}
	merged, err := mergeDoc(raw, patches...)
	if err != nil {
		return true, fmt.Errorf("merge %s/%s: %w", collection, key, err)
	}
	data[collection][key] = merged
	return true, nil
}
