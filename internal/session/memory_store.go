package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"resumelift/internal/errors"
)

// MemoryStore keeps records in process memory. Records are stored as
// marshalled JSON so reads hand out copies, never shared pointers. Intended
// for tests and single-shot CLI runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func memKey(ns Namespace, id string) string {
	return string(ns) + "/" + id
}

func (s *MemoryStore) Create(ctx context.Context, ns Namespace, id string, record any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewInternalError("SESSION_MARSHAL_FAILED",
			fmt.Sprintf("Cannot marshal session record %s/%s", ns, id), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(ns, id)
	if _, ok := s.records[key]; ok {
		return errAlreadyExists(ns, id)
	}
	s.records[key] = data
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, ns Namespace, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	s.mu.RLock()
	data, ok := s.records[memKey(ns, id)]
	s.mu.RUnlock()

	if !ok {
		return errNotFound(ns, id)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewInternalError("SESSION_UNMARSHAL_FAILED",
			fmt.Sprintf("Corrupt session record %s/%s", ns, id), err)
	}
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, ns Namespace, id string, record any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewInternalError("SESSION_MARSHAL_FAILED",
			fmt.Sprintf("Cannot marshal session record %s/%s", ns, id), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(ns, id)
	if _, ok := s.records[key]; !ok {
		return errNotFound(ns, id)
	}
	s.records[key] = data
	return nil
}

func (s *MemoryStore) Patch(ctx context.Context, ns Namespace, id string, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return errors.NewInternalError("SESSION_MARSHAL_FAILED",
			fmt.Sprintf("Cannot marshal patch value for field %q", field), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(ns, id)
	data, ok := s.records[key]
	if !ok {
		return errNotFound(ns, id)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.NewInternalError("SESSION_UNMARSHAL_FAILED",
			fmt.Sprintf("Corrupt session record %s/%s", ns, id), err)
	}
	fields[field] = raw

	updated, err := json.Marshal(fields)
	if err != nil {
		return errors.NewInternalError("SESSION_MARSHAL_FAILED",
			fmt.Sprintf("Cannot marshal session record %s/%s", ns, id), err)
	}
	s.records[key] = updated
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, ns Namespace, id string, apply func(raw []byte) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(ns, id)
	data, ok := s.records[key]
	if !ok {
		return errNotFound(ns, id)
	}

	updated, err := apply(data)
	if err != nil {
		return err
	}
	s.records[key] = updated
	return nil
}
