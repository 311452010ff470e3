package graph

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	apperrors "github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/errors"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryRunner emulates the statements issued by Store on in-memory maps

type relKey struct {
	source, target, relType string
}

type memoryRunner struct {
	mu           sync.Mutex
	nodes        map[string]map[string]map[string]any
	rels         map[string]map[relKey]string
	interactions map[string]Record
	failOn       map[string]error
	modes        []neo4j.AccessMode
	closed       bool
}

func newMemoryRunner() *memoryRunner {
	return &memoryRunner{
		nodes:        map[string]map[string]map[string]any{},
		rels:         map[string]map[relKey]string{},
		interactions: map[string]Record{},
		failOn:       map[string]error{},
	}
}

func (m *memoryRunner) Run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.modes = append(m.modes, mode)
	if err, ok := m.failOn[cypher]; ok {
		return nil, err
	}
	ns, _ := params["namespace"].(string)

	switch cypher {
	case upsertNodeQuery:
		if m.nodes[ns] == nil {
			m.nodes[ns] = map[string]map[string]any{}
		}
		copied := map[string]any{}
		for k, v := range params {
			copied[k] = v
		}
		m.nodes[ns][params["node_id"].(string)] = copied
		return []Record{{"node_id": params["node_id"]}}, nil

	case upsertRelationshipQuery:
		source, target := params["source"].(string), params["target"].(string)
		if _, ok := m.nodes[ns][source]; !ok {
			return []Record{{"applied": int64(0)}}, nil
		}
		if _, ok := m.nodes[ns][target]; !ok {
			return []Record{{"applied": int64(0)}}, nil
		}
		if m.rels[ns] == nil {
			m.rels[ns] = map[relKey]string{}
		}
		m.rels[ns][relKey{source, target, params["rel_type"].(string)}] = params["properties"].(string)
		return []Record{{"applied": int64(1)}}, nil

	case clearNamespaceQuery:
		delete(m.nodes, ns)
		delete(m.rels, ns)
		for id, rec := range m.interactions {
			if rec["namespace"] == ns {
				delete(m.interactions, id)
			}
		}
		return nil, nil

	case namespaceStatsQuery:
		var interactions int64
		for _, rec := range m.interactions {
			if rec["namespace"] == ns {
				interactions++
			}
		}
		return []Record{{
			"nodes":         int64(len(m.nodes[ns])),
			"relationships": int64(len(m.rels[ns])),
			"interactions":  interactions,
		}}, nil

	case createInteractionQuery:
		id := params["interaction_id"].(string)
		if _, exists := m.interactions[id]; !exists {
			ts, _ := time.Parse(time.RFC3339Nano, params["timestamp"].(string))
			rec := Record{}
			for k, v := range params {
				rec[k] = v
			}
			rec["timestamp"] = ts
			m.interactions[id] = rec
		}
		return []Record{{"interaction_id": id}}, nil

	case listInteractionsQuery, listStudentInteractionsQuery:
		student, filterStudent := params["student_id"].(string)
		var out []Record
		for _, rec := range m.interactions {
			if rec["namespace"] != ns {
				continue
			}
			if filterStudent && rec["student_id"] != student {
				continue
			}
			out = append(out, rec)
		}
		sort.Slice(out, func(i, j int) bool {
			return out[i]["timestamp"].(time.Time).After(out[j]["timestamp"].(time.Time))
		})
		return out, nil

	case deleteInteractionsQuery:
		for id, rec := range m.interactions {
			if rec["namespace"] == ns {
				delete(m.interactions, id)
			}
		}
		return nil, nil
	}
	return nil, nil
}

func (m *memoryRunner) Close(ctx context.Context) error {
	m.closed = true
	return nil
}

func newTestStore() (*Store, *memoryRunner) {
	runner := newMemoryRunner()
	return NewStore(runner, zap.NewNop()), runner
}

func TestStore_Disabled(t *testing.T) {
	ctx := context.Background()
	store := Disabled(zap.NewNop())

	assert.False(t, store.IsAvailable())

	records, err := store.RunRead(ctx, "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	outcome, err := store.RunWrite(ctx, "CREATE (n)", nil)
	require.NoError(t, err)
	assert.Equal(t, Unavailable, outcome)

	outcome, err = store.UpsertNode(ctx, "ns", model.Node{ID: "A", Label: "A", Level: 1})
	require.NoError(t, err)
	assert.Equal(t, Unavailable, outcome)

	outcome, err = store.ClearNamespace(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, Unavailable, outcome)

	interactions, err := store.ListInteractions(ctx, "ns")
	require.NoError(t, err)
	assert.Empty(t, interactions)

	stats, err := store.Stats(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, NamespaceStats{}, stats)

	assert.NoError(t, store.Close(ctx))
}

func TestStore_ConnectWithoutURIIsDisabled(t *testing.T) {
	store := Connect(context.Background(), Options{Logger: zap.NewNop()})
	assert.False(t, store.IsAvailable())
}

func TestStore_UpsertNodeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, runner := newTestStore()

	first := model.Node{ID: "n1", Label: "Old", Category: "成因分析", Level: 1, Type: "concept"}
	second := model.Node{ID: "n1", Label: "New", Category: "防治措施", Level: 2, Type: "measure"}

	outcome, err := store.UpsertNode(ctx, "ns", first)
	require.NoError(t, err)
	assert.Equal(t, Applied, outcome)
	_, err = store.UpsertNode(ctx, "ns", second)
	require.NoError(t, err)

	require.Len(t, runner.nodes["ns"], 1)
	stored := runner.nodes["ns"]["n1"]
	assert.Equal(t, "New", stored["label"])
	assert.Equal(t, "防治措施", stored["category"])
	assert.Equal(t, int64(2), stored["level"])
	assert.Equal(t, neo4j.AccessModeWrite, runner.modes[0])
}

func TestStore_UpsertNodeKeepsPropertyOrder(t *testing.T) {
	ctx := context.Background()
	store, runner := newTestStore()

	node := model.Node{ID: "n1", Label: "N", Level: 1, Properties: model.Properties{
		{Key: "时间", Value: "1984"},
		{Key: "地点", Value: "范各庄"},
		{Key: "a", Value: "x"},
	}}
	_, err := store.UpsertNode(ctx, "ns", node)
	require.NoError(t, err)

	assert.Equal(t, `{"时间":"1984","地点":"范各庄","a":"x"}`, runner.nodes["ns"]["n1"]["properties"])
}

func TestStore_UpsertRelationshipDanglingIsSkipped(t *testing.T) {
	ctx := context.Background()
	store, runner := newTestStore()

	_, err := store.UpsertNode(ctx, "ns", model.Node{ID: "x", Label: "X", Level: 1})
	require.NoError(t, err)

	outcome, err := store.UpsertRelationship(ctx, "ns", model.Relationship{Source: "missing", Target: "x", Type: "导致"})
	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome)
	assert.Empty(t, runner.rels["ns"])
}

func TestStore_UpsertRelationshipIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, runner := newTestStore()

	for _, id := range []string{"a", "b"} {
		_, err := store.UpsertNode(ctx, "ns", model.Node{ID: id, Label: id, Level: 1})
		require.NoError(t, err)
	}

	rel := model.Relationship{Source: "a", Target: "b"}
	for i := 0; i < 2; i++ {
		outcome, err := store.UpsertRelationship(ctx, "ns", rel)
		require.NoError(t, err)
		assert.Equal(t, Applied, outcome)
	}

	require.Len(t, runner.rels["ns"], 1)
	_, ok := runner.rels["ns"][relKey{"a", "b", model.DefaultRelationshipType}]
	assert.True(t, ok, "empty type should be stored as the default type")
}

func TestStore_NamespaceIsolation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	for _, ns := range []model.Namespace{"A", "B"} {
		for _, id := range []string{"x", "y"} {
			_, err := store.UpsertNode(ctx, ns, model.Node{ID: id, Label: id, Level: 1})
			require.NoError(t, err)
		}
		_, err := store.UpsertRelationship(ctx, ns, model.Relationship{Source: "x", Target: "y"})
		require.NoError(t, err)
		_, err = store.CreateInteraction(ctx, ns, model.Interaction{
			InteractionID: "s_x_" + ns.String(),
			StudentID:     "s",
			NodeID:        "x",
			ActionType:    model.ActionView,
			Timestamp:     time.Now(),
		})
		require.NoError(t, err)
	}

	// Endpoints that only exist in A are dangling from C's point of view
	outcome, err := store.UpsertRelationship(ctx, "C", model.Relationship{Source: "x", Target: "y"})
	require.NoError(t, err)
	assert.Equal(t, Skipped, outcome)

	_, err = store.ClearNamespace(ctx, "A")
	require.NoError(t, err)

	statsA, err := store.Stats(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, NamespaceStats{}, statsA)

	statsB, err := store.Stats(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, NamespaceStats{Nodes: 2, Relationships: 1, Interactions: 1}, statsB)

	listB, err := store.ListInteractions(ctx, "B")
	require.NoError(t, err)
	require.Len(t, listB, 1)
	assert.Equal(t, "s_x_B", listB[0].InteractionID)
}

func TestStore_WriteFailurePropagates(t *testing.T) {
	ctx := context.Background()
	store, runner := newTestStore()
	runner.failOn[upsertNodeQuery] = errors.New("connection reset")

	outcome, err := store.UpsertNode(ctx, "ns", model.Node{ID: "a", Label: "A", Level: 1})
	require.Error(t, err)
	assert.Equal(t, Failed, outcome)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeGraph))

	var queryErr *apperrors.ErrGraphQueryFailed
	require.True(t, errors.As(err, &queryErr))
	assert.Equal(t, "upsert_node", queryErr.Operation)
}

func TestStore_CancelledContextIsReportedAsContextError(t *testing.T) {
	store, runner := newTestStore()
	runner.failOn[listInteractionsQuery] = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListInteractions(ctx, "ns")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeContext))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestStore_Interactions(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	base := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)

	events := []model.Interaction{
		{InteractionID: "1", StudentID: "s1", NodeID: "a", NodeLabel: "A", ActionType: model.ActionView, Duration: 3.5, Timestamp: base},
		{InteractionID: "2", StudentID: "s2", NodeID: "b", NodeLabel: "B", ActionType: model.ActionView, Timestamp: base.Add(time.Minute)},
		{InteractionID: "3", StudentID: "s1", NodeID: "c", NodeLabel: "C", ActionType: model.ActionView, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, ev := range events {
		outcome, err := store.CreateInteraction(ctx, "ns", ev)
		require.NoError(t, err)
		assert.Equal(t, Applied, outcome)
	}
	// A retried write of the same event is not counted twice
	_, err := store.CreateInteraction(ctx, "ns", events[0])
	require.NoError(t, err)

	all, err := store.ListInteractions(ctx, "ns")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{all[0].InteractionID, all[1].InteractionID, all[2].InteractionID})
	assert.Equal(t, 3.5, all[2].Duration)
	assert.True(t, base.Equal(all[2].Timestamp))

	mine, err := store.ListStudentInteractions(ctx, "ns", "s1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c", mine[0].NodeID)

	outcome, err := store.DeleteInteractions(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, Applied, outcome)

	all, err = store.ListInteractions(ctx, "ns")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_Close(t *testing.T) {
	store, runner := newTestStore()
	require.NoError(t, store.Close(context.Background()))
	assert.True(t, runner.closed)
}

func TestRecordAccessors(t *testing.T) {
	ts := time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC)
	rec := Record{
		"s":     "value",
		"i":     int64(7),
		"f":     2.5,
		"fi":    int64(3),
		"t":     ts,
		"ts":    "2026-01-06T09:00:00Z",
		"nil":   nil,
		"wrong": true,
	}

	assert.Equal(t, "value", rec.String("s"))
	assert.Equal(t, "", rec.String("wrong"))
	assert.Equal(t, "", rec.String("missing"))
	assert.Equal(t, int64(7), rec.Int64("i"))
	assert.Equal(t, 2.5, rec.Float64("f"))
	assert.Equal(t, 3.0, rec.Float64("fi"))
	assert.Equal(t, 0.0, rec.Float64("nil"))
	assert.True(t, ts.Equal(rec.Time("t")))
	assert.True(t, ts.Equal(rec.Time("ts")))
	assert.True(t, rec.Time("wrong").IsZero())
}

func TestOutcome_MarshalText(t *testing.T) {
	payload, err := json.Marshal(map[string]Outcome{"primary": Applied, "local": Failed})
	require.NoError(t, err)
	assert.JSONEq(t, `{"primary":"applied","local":"failed"}`, string(payload))
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "unavailable", Unavailable.String())
}

func TestStore_EnsureConstraintsAttemptsEveryStatement(t *testing.T) {
	store, runner := newTestStore()
	runner.failOn[schemaStatements[0]] = errors.New("constraint exists with different definition")

	err := store.EnsureConstraints(context.Background())

	require.Error(t, err)
	assert.Len(t, runner.modes, len(schemaStatements))
	for _, mode := range runner.modes {
		assert.Equal(t, neo4j.AccessModeWrite, mode)
	}
}

func TestStore_Stats(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	ns := model.Namespace("stats")

	_, err := store.UpsertNode(ctx, ns, model.Node{ID: "a", Label: "A", Level: 1})
	require.NoError(t, err)
	_, err = store.UpsertNode(ctx, ns, model.Node{ID: "b", Label: "B", Level: 1})
	require.NoError(t, err)
	_, err = store.UpsertRelationship(ctx, ns, model.Relationship{Source: "a", Target: "b"})
	require.NoError(t, err)

	stats, err := store.Stats(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, NamespaceStats{Nodes: 2, Relationships: 1}, stats)

	disabled, err := Disabled(zap.NewNop()).Stats(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, NamespaceStats{}, disabled)
}
