package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"resumelift/internal/errors"
)

// FileStore keeps one JSON file per (namespace, session id) pair under an
// explicitly passed storage root. Mutations for the same session id are
// serialized by a per-session mutex, and every write goes through a
// temp-file + rename so a concurrent read never observes a torn record.
type FileStore struct {
	root   string
	logger *errors.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at the given directory, creating
// it if needed.
func NewFileStore(root string, logger *errors.Logger) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"Session storage root must not be empty", nil)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.NewIOError("STORAGE_ROOT_CREATE_FAILED",
			fmt.Sprintf("Cannot create session storage root: %s", root), err)
	}
	return &FileStore{
		root:   root,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// sessionLock returns the mutex guarding all records of one session id.
func (s *FileStore) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func validateSessionID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid session id: %q", id), nil)
	}
	return nil
}

func (s *FileStore) recordPath(ns Namespace, id string) string {
	return filepath.Join(s.root, id, string(ns)+"_data.json")
}

func (s *FileStore) Create(ctx context.Context, ns Namespace, id string, record any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	path := s.recordPath(ns, id)
	if _, err := os.Stat(path); err == nil {
		return errAlreadyExists(ns, id)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.NewIOError("SESSION_DIR_CREATE_FAILED",
			fmt.Sprintf("Cannot create session directory for %s", id), err)
	}
	return s.writeRecord(path, ns, id, record)
}

func (s *FileStore) Read(ctx context.Context, ns Namespace, id string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	return s.readRecord(ns, id, out)
}

func (s *FileStore) Replace(ctx context.Context, ns Namespace, id string, record any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	path := s.recordPath(ns, id)
	if _, err := os.Stat(path); err != nil {
		return errNotFound(ns, id)
	}
	return s.writeRecord(path, ns, id, record)
}

func (s *FileStore) Patch(ctx context.Context, ns Namespace, id string, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	var fields map[string]json.RawMessage
	if err := s.readRecord(ns, id, &fields); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return errors.NewInternalError("SESSION_MARSHAL_FAILED",
			fmt.Sprintf("Cannot marshal patch value for field %q", field), err)
	}
	fields[field] = raw

	return s.writeRecord(s.recordPath(ns, id), ns, id, fields)
}

func (s *FileStore) Update(ctx context.Context, ns Namespace, id string, apply func(raw []byte) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSessionID(id); err != nil {
		return err
	}

	lock := s.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	path := s.recordPath(ns, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errNotFound(ns, id)
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read session record %s/%s", ns, id), err)
	}

	updated, err := apply(data)
	if err != nil {
		return err
	}
	if bytes.Equal(data, updated) {
		return nil
	}
	return s.writeRaw(path, ns, id, updated)
}

// readRecord loads and unmarshals a record; callers hold the session lock.
func (s *FileStore) readRecord(ns Namespace, id string, out any) error {
	data, err := os.ReadFile(s.recordPath(ns, id))
	if err != nil {
		if os.IsNotExist(err) {
			return errNotFound(ns, id)
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read session record %s/%s", ns, id), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewInternalError("SESSION_UNMARSHAL_FAILED",
			fmt.Sprintf("Corrupt session record %s/%s", ns, id), err)
	}
	return nil
}

// writeRecord marshals and atomically persists a record via temp + rename;
// callers hold the session lock.
func (s *FileStore) writeRecord(path string, ns Namespace, id string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return errors.NewInternalError("SESSION_MARSHAL_FAILED",
			fmt.Sprintf("Cannot marshal session record %s/%s", ns, id), err)
	}
	return s.writeRaw(path, ns, id, data)
}

// writeRaw atomically persists pre-marshalled record bytes via temp + rename;
// callers hold the session lock.
func (s *FileStore) writeRaw(path string, ns Namespace, id string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".record-*.tmp")
	if err != nil {
		return errors.NewIOError("SESSION_WRITE_FAILED",
			fmt.Sprintf("Cannot create temp file for %s/%s", ns, id), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.NewIOError("SESSION_WRITE_FAILED",
			fmt.Sprintf("Cannot write session record %s/%s", ns, id), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.NewIOError("SESSION_WRITE_FAILED",
			fmt.Sprintf("Cannot flush session record %s/%s", ns, id), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.NewIOError("SESSION_WRITE_FAILED",
			fmt.Sprintf("Cannot persist session record %s/%s", ns, id), err)
	}

	if s.logger != nil {
		s.logger.Debug("Session record written",
			"namespace", string(ns),
			"session_id", id,
			"bytes", len(data))
	}
	return nil
}
