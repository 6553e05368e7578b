package session

import (
	"context"

	"resumelift/internal/errors"
)

// Namespace is the disjoint record shape sharing the session-id keyspace.
// The two namespaces for one session id are independent records.
type Namespace string

const (
	NamespaceATS         Namespace = "ats"
	NamespaceCoverLetter Namespace = "cover_letter"
)

// Store persists one JSON-shaped record per (namespace, session id) pair.
//
// Create, Replace, Patch and Update are atomic with respect to any
// concurrent Read, and for a single session id all mutations are
// linearizable. A writer that computed state from an earlier read must use
// Update so it can observe a logically newer record and decline the write;
// a blind Patch cannot tell a newer record apart.
type Store interface {
	// Create persists a new record. It fails with SESSION_EXISTS if a record
	// is already present for the (namespace, id) pair.
	Create(ctx context.Context, ns Namespace, id string, record any) error

	// Read loads the record into out, which must be a pointer. It fails with
	// SESSION_NOT_FOUND if no record exists.
	Read(ctx context.Context, ns Namespace, id string, out any) error

	// Replace overwrites an existing record in full. It fails with
	// SESSION_NOT_FOUND if no record exists.
	Replace(ctx context.Context, ns Namespace, id string, record any) error

	// Patch sets a single top-level field of an existing record, leaving all
	// other fields untouched. It fails with SESSION_NOT_FOUND if no record
	// exists.
	Patch(ctx context.Context, ns Namespace, id string, field string, value any) error

	// Update applies a read-modify-write to an existing record under the
	// session lock. The callback receives the current raw record and returns
	// the bytes to persist; returning the input unchanged persists nothing.
	// A callback error aborts the update and leaves the record untouched.
	// It fails with SESSION_NOT_FOUND if no record exists.
	Update(ctx context.Context, ns Namespace, id string, apply func(raw []byte) ([]byte, error)) error
}

func errNotFound(ns Namespace, id string) error {
	return errors.NewSessionError(errors.ErrCodeSessionNotFound,
		"Session data not found", nil).
		WithContext("namespace", string(ns)).
		WithContext("session_id", id)
}

func errAlreadyExists(ns Namespace, id string) error {
	return errors.NewSessionError(errors.ErrCodeSessionExists,
		"Session record already exists", nil).
		WithContext("namespace", string(ns)).
		WithContext("session_id", id)
}
