package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/shahfaizanali/manzoori/model"
	"github.com/shahfaizanali/manzoori/service/dao"
)

// Store is an in-memory reference implementation of model.Store. It keeps
// deep copies so that callers mutating a record in memory never alias the
// persisted state - the property the interception engine relies on when it
// withholds a commit.
type Store struct {
	mu      sync.RWMutex
	records map[string]model.Record
}

// New creates an empty record store.
func New() *Store {
	return &Store{records: make(map[string]model.Record)}
}

// Save commits a deep copy of the record, overwriting any stored version.
func (s *Store) Save(_ context.Context, record model.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.ID() == "" {
		return dao.ErrInvalidID
	}
	stored, err := clone(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID()] = stored
	return nil
}

// Load returns a deep copy of the stored record or dao.ErrNotFound.
func (s *Store) Load(_ context.Context, id string) (model.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	stored, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("record %v: %w", id, dao.ErrNotFound)
	}
	return clone(stored)
}

// clone round-trips the record through JSON into a fresh instance of its
// concrete type.
func clone(record model.Record) (model.Record, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record %v: %w", record.ID(), err)
	}
	rType := reflect.TypeOf(record)
	for rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	instance := reflect.New(rType).Interface()
	if err = json.Unmarshal(data, instance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %v: %w", record.ID(), err)
	}
	cloned, ok := instance.(model.Record)
	if !ok {
		return nil, fmt.Errorf("type %T does not implement model.Record", instance)
	}
	return cloned, nil
}

var _ model.Store = (*Store)(nil)
