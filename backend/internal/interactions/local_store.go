package interactions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	apperrors "github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/errors"
)

// TimestampLayout is how the local file stores timestamps (local time, second precision)
const TimestampLayout = "2006-01-02 15:04:05"

// LocalStore is the secondary interaction sink: one JSON array file, rewritten in full
// on every append. A missing file is an empty log.
//
// The mutex serialises writers inside this process only; two processes sharing the
// file can still lose updates.
type LocalStore struct {
	path string
	mu   sync.Mutex
}

type fileRecord struct {
	InteractionID string  `json:"interaction_id,omitempty"`
	Namespace     string  `json:"namespace,omitempty"`
	StudentID     string  `json:"student_id"`
	NodeID        string  `json:"node_id"`
	NodeLabel     string  `json:"node_label"`
	ActionType    string  `json:"action_type"`
	Duration      float64 `json:"duration"`
	Timestamp     string  `json:"timestamp"`
}

// NewLocalStore returns a store backed by the file at path
func NewLocalStore(path string) *LocalStore {
	return &LocalStore{path: path}
}

// Path returns the backing file path
func (s *LocalStore) Path() string {
	return s.path
}

// Load returns the namespace's stored interactions in append order. Rows written
// without a namespace belong to every namespace; an empty ns returns the whole file.
func (s *LocalStore) Load(ns model.Namespace) ([]model.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return nil, err
	}

	interactions := make([]model.Interaction, 0, len(records))
	for _, rec := range records {
		if ns != "" && rec.Namespace != "" && rec.Namespace != string(ns) {
			continue
		}
		interactions = append(interactions, rec.toInteraction())
	}
	return interactions, nil
}

// Append adds one interaction under ns with a read-modify-write of the whole file
func (s *LocalStore) Append(ns model.Namespace, event model.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLocked()
	if err != nil {
		return err
	}
	records = append(records, fromInteraction(ns, event))
	return s.writeLocked(records)
}

// Remove deletes the file. Removing a missing file is not an error.
func (s *LocalStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return apperrors.NewLocalStoreFailed(s.path, "remove", err)
	}
	return nil
}

func (s *LocalStore) readLocked() ([]fileRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []fileRecord{}, nil
	}
	if err != nil {
		return nil, apperrors.NewLocalStoreFailed(s.path, "read", err)
	}
	if len(data) == 0 {
		return []fileRecord{}, nil
	}

	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewLocalStoreFailed(s.path, "decode", err)
	}
	return records, nil
}

// writeLocked replaces the file through a temp file so a crash never leaves half an array
func (s *LocalStore) writeLocked(records []fileRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewLocalStoreFailed(s.path, "mkdir", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return apperrors.NewLocalStoreFailed(s.path, "encode", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return apperrors.NewLocalStoreFailed(s.path, "write", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return apperrors.NewLocalStoreFailed(s.path, "write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return apperrors.NewLocalStoreFailed(s.path, "write", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return apperrors.NewLocalStoreFailed(s.path, "write", err)
	}
	return nil
}

func fromInteraction(ns model.Namespace, event model.Interaction) fileRecord {
	return fileRecord{
		InteractionID: event.InteractionID,
		Namespace:     string(ns),
		StudentID:     event.StudentID,
		NodeID:        event.NodeID,
		NodeLabel:     event.NodeLabel,
		ActionType:    string(event.ActionType),
		Duration:      event.Duration,
		Timestamp:     event.Timestamp.In(time.Local).Format(TimestampLayout),
	}
}

func (r fileRecord) toInteraction() model.Interaction {
	return model.Interaction{
		InteractionID: r.InteractionID,
		StudentID:     r.StudentID,
		NodeID:        r.NodeID,
		NodeLabel:     r.NodeLabel,
		ActionType:    model.ActionType(r.ActionType),
		Duration:      r.Duration,
		Timestamp:     parseTimestamp(r.Timestamp),
	}
}

// parseTimestamp accepts the file layout and RFC 3339; anything else becomes the zero time
func parseTimestamp(value string) time.Time {
	if t, err := time.ParseInLocation(TimestampLayout, value, time.Local); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
