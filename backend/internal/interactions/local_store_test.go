package interactions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_MissingFileIsEmpty(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing.json"))

	events, err := store.Load(testNamespace)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLocalStore_EmptyFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	events, err := NewLocalStore(path).Load(testNamespace)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLocalStore_AppendCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "log.json")
	store := NewLocalStore(path)

	require.NoError(t, store.Append(testNamespace, model.Interaction{StudentID: "s1", NodeID: "n1", Timestamp: time.Now()}))

	events, err := store.Load(testNamespace)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestLocalStore_TimestampFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	store := NewLocalStore(path)
	at := time.Date(2026, 1, 6, 9, 30, 15, 999, time.Local)

	require.NoError(t, store.Append(testNamespace, model.Interaction{StudentID: "s1", NodeID: "n1", Timestamp: at}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp": "2026-01-06 09:30:15"`)

	events, err := store.Load(testNamespace)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(at.Truncate(time.Second)))
}

func TestLocalStore_ReadsRecordsWithoutID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	legacy := `[{"student_id":"s1","node_id":"n1","node_label":"One","action_type":"view","duration":0,"timestamp":"2026-01-06 09:00:00"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	events, err := NewLocalStore(path).Load(testNamespace)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "", events[0].InteractionID)
	assert.Equal(t, "One", events[0].NodeLabel)
	assert.Equal(t, 2026, events[0].Timestamp.Year())
}

func TestLocalStore_LoadFiltersByNamespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	store := NewLocalStore(path)
	at := time.Now()

	require.NoError(t, store.Append("course_a", model.Interaction{StudentID: "s1", NodeID: "a1", Timestamp: at}))
	require.NoError(t, store.Append("course_b", model.Interaction{StudentID: "s1", NodeID: "b1", Timestamp: at}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"namespace": "course_b"`)

	a, err := store.Load("course_a")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "a1", a[0].NodeID)

	all, err := store.Load("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestLocalStore_RowsWithoutNamespaceReadEverywhere(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	legacy := `[{"student_id":"s1","node_id":"n1","node_label":"One","action_type":"view","duration":0,"timestamp":"2026-01-06 09:00:00"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))
	store := NewLocalStore(path)

	for _, ns := range []model.Namespace{"course_a", "course_b"} {
		events, err := store.Load(ns)
		require.NoError(t, err)
		assert.Len(t, events, 1, "namespace %s", ns)
	}
}
