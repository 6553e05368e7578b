package session

import (
	"context"
	"encoding/json"
	"testing"

	"resumelift/internal/errors"
)

type testRecord struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Status *string `json:"status,omitempty"`
}

func stores(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := NewFileStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return map[string]Store{
		"file":   fs,
		"memory": NewMemoryStore(),
	}
}

func TestStoreCreateAndRead(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			in := testRecord{Name: "alpha", Score: 72.5}
			if err := store.Create(ctx, NamespaceATS, "sess-1", in); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			var out testRecord
			if err := store.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if out.Name != in.Name || out.Score != in.Score {
				t.Errorf("Read() = %+v, want %+v", out, in)
			}
		})
	}
}

func TestStoreCreateConflict(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Create(ctx, NamespaceATS, "sess-1", testRecord{Name: "first"}); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			err := store.Create(ctx, NamespaceATS, "sess-1", testRecord{Name: "second"})
			if !errors.IsCode(err, errors.ErrCodeSessionExists) {
				t.Fatalf("Create() error = %v, want code %s", err, errors.ErrCodeSessionExists)
			}

			var out testRecord
			if err := store.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if out.Name != "first" {
				t.Errorf("record overwritten by conflicting Create: got %q", out.Name)
			}
		})
	}
}

func TestStoreReadNotFound(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var out testRecord
			err := store.Read(ctx, NamespaceATS, "missing", &out)
			if !errors.IsCode(err, errors.ErrCodeSessionNotFound) {
				t.Fatalf("Read() error = %v, want code %s", err, errors.ErrCodeSessionNotFound)
			}
		})
	}
}

func TestStoreNamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Create(ctx, NamespaceATS, "sess-1", testRecord{Name: "ats"}); err != nil {
				t.Fatalf("Create(ats) error = %v", err)
			}

			// Same id in the other namespace is a distinct record.
			var out testRecord
			err := store.Read(ctx, NamespaceCoverLetter, "sess-1", &out)
			if !errors.IsCode(err, errors.ErrCodeSessionNotFound) {
				t.Fatalf("Read(cover_letter) error = %v, want code %s", err, errors.ErrCodeSessionNotFound)
			}

			if err := store.Create(ctx, NamespaceCoverLetter, "sess-1", testRecord{Name: "letter"}); err != nil {
				t.Fatalf("Create(cover_letter) error = %v", err)
			}
			if err := store.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
				t.Fatalf("Read(ats) error = %v", err)
			}
			if out.Name != "ats" {
				t.Errorf("ats record disturbed by cover_letter Create: got %q", out.Name)
			}
		})
	}
}

func TestStoreReplace(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Replace(ctx, NamespaceATS, "sess-1", testRecord{Name: "new"})
			if !errors.IsCode(err, errors.ErrCodeSessionNotFound) {
				t.Fatalf("Replace() on missing record error = %v, want code %s", err, errors.ErrCodeSessionNotFound)
			}

			if err := store.Create(ctx, NamespaceATS, "sess-1", testRecord{Name: "old", Score: 10}); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if err := store.Replace(ctx, NamespaceATS, "sess-1", testRecord{Name: "new", Score: 20}); err != nil {
				t.Fatalf("Replace() error = %v", err)
			}

			var out testRecord
			if err := store.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if out.Name != "new" || out.Score != 20 {
				t.Errorf("Read() after Replace = %+v", out)
			}
		})
	}
}

func TestStorePatch(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Patch(ctx, NamespaceATS, "sess-1", "status", "ready")
			if !errors.IsCode(err, errors.ErrCodeSessionNotFound) {
				t.Fatalf("Patch() on missing record error = %v, want code %s", err, errors.ErrCodeSessionNotFound)
			}

			if err := store.Create(ctx, NamespaceATS, "sess-1", testRecord{Name: "alpha", Score: 42}); err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if err := store.Patch(ctx, NamespaceATS, "sess-1", "status", "ready"); err != nil {
				t.Fatalf("Patch() error = %v", err)
			}

			var out testRecord
			if err := store.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if out.Status == nil || *out.Status != "ready" {
				t.Fatalf("patched field not visible: %+v", out)
			}
			if out.Name != "alpha" || out.Score != 42 {
				t.Errorf("Patch() disturbed sibling fields: %+v", out)
			}

			// Patching again overwrites the field.
			if err := store.Patch(ctx, NamespaceATS, "sess-1", "status", "stale"); err != nil {
				t.Fatalf("Patch() error = %v", err)
			}
			if err := store.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if out.Status == nil || *out.Status != "stale" {
				t.Errorf("second Patch() not applied: %+v", out)
			}
		})
	}
}

func TestStoreUpdate(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			identity := func(raw []byte) ([]byte, error) { return raw, nil }
			err := store.Update(ctx, NamespaceATS, "missing", identity)
			if !errors.IsCode(err, errors.ErrCodeSessionNotFound) {
				t.Fatalf("Update() on missing record error = %v, want code %s", err, errors.ErrCodeSessionNotFound)
			}

			if err := store.Create(ctx, NamespaceATS, "sess-1", testRecord{Name: "alpha", Score: 42}); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			// The callback sees the current record and decides the new state.
			err = store.Update(ctx, NamespaceATS, "sess-1", func(raw []byte) ([]byte, error) {
				var rec testRecord
				if err := json.Unmarshal(raw, &rec); err != nil {
					return nil, err
				}
				if rec.Name != "alpha" {
					t.Errorf("Update() callback saw %+v", rec)
				}
				rec.Score = 90
				return json.Marshal(rec)
			})
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			var out testRecord
			if err := store.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if out.Score != 90 || out.Name != "alpha" {
				t.Errorf("Read() after Update = %+v", out)
			}

			// A callback error aborts the write.
			boom := errors.NewInternalError("UPDATE_REJECTED", "no", nil)
			err = store.Update(ctx, NamespaceATS, "sess-1", func(raw []byte) ([]byte, error) {
				return nil, boom
			})
			if err != boom {
				t.Fatalf("Update() error = %v, want the callback error", err)
			}
			if err := store.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if out.Score != 90 {
				t.Errorf("aborted Update changed the record: %+v", out)
			}

			// Returning the input unchanged declines the write.
			if err := store.Update(ctx, NamespaceATS, "sess-1", identity); err != nil {
				t.Fatalf("no-op Update() error = %v", err)
			}
			if err := store.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if out.Score != 90 || out.Name != "alpha" {
				t.Errorf("no-op Update disturbed the record: %+v", out)
			}
		})
	}
}

func TestStoreInvalidSessionID(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "a/b", `a\b`, ".."} {
				err := store.Create(ctx, NamespaceATS, id, testRecord{})
				if !errors.IsCode(err, errors.ErrCodeInvalidRequest) {
					t.Errorf("Create(%q) error = %v, want code %s", id, err, errors.ErrCodeInvalidRequest)
				}
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	first, err := NewFileStore(root, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := first.Create(ctx, NamespaceATS, "sess-1", testRecord{Name: "persisted"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	second, err := NewFileStore(root, nil)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	var out testRecord
	if err := second.Read(ctx, NamespaceATS, "sess-1", &out); err != nil {
		t.Fatalf("Read() after reopen error = %v", err)
	}
	if out.Name != "persisted" {
		t.Errorf("Read() after reopen = %+v", out)
	}
}
