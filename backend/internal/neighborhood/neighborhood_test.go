package neighborhood

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rel(source, target string) model.Relationship {
	return model.Relationship{Source: source, Target: target}
}

func TestOf_Basic(t *testing.T) {
	rels := []model.Relationship{
		rel("a", "b"),
		rel("c", "a"),
		rel("b", "c"),
		rel("d", "e"),
	}

	res := Of("a", rels)

	assert.Equal(t, []string{"a", "b", "c"}, res.Nodes)
	assert.Equal(t, []int{0, 1}, res.Edges)
	assert.True(t, res.HasNode("a"))
	assert.False(t, res.HasNode("d"))
	assert.True(t, res.HasEdge(1))
	assert.False(t, res.HasEdge(2))
}

func TestOf_IsolatedNode(t *testing.T) {
	res := Of("z", []model.Relationship{rel("a", "b")})

	assert.Equal(t, []string{"z"}, res.Nodes)
	assert.Empty(t, res.Edges)
	assert.True(t, res.HasNode("z"))
}

func TestOf_SelfLoopAndParallelEdges(t *testing.T) {
	rels := []model.Relationship{
		rel("a", "a"),
		{Source: "a", Target: "b", Type: "包含"},
		{Source: "a", Target: "b", Type: "前置"},
	}

	res := Of("a", rels)

	assert.Equal(t, []string{"a", "b"}, res.Nodes)
	assert.Equal(t, []int{0, 1, 2}, res.Edges)
}

func TestOf_DanglingEndpointCounts(t *testing.T) {
	res := Of("a", []model.Relationship{rel("a", "ghost")})

	assert.Equal(t, []string{"a", "ghost"}, res.Nodes)
}

// every incident edge's endpoints are in the node set and nothing else is
func TestOf_RandomGraphsMatchDefinition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		var rels []model.Relationship
		n := rng.Intn(40)
		for i := 0; i < n; i++ {
			rels = append(rels, rel(fmt.Sprintf("n%d", rng.Intn(10)), fmt.Sprintf("n%d", rng.Intn(10))))
		}
		focus := fmt.Sprintf("n%d", rng.Intn(10))

		res := Of(focus, rels)

		want := map[string]bool{focus: true}
		var wantEdges []int
		for i, r := range rels {
			if r.Source == focus || r.Target == focus {
				want[r.Source], want[r.Target] = true, true
				wantEdges = append(wantEdges, i)
			}
		}
		require.Len(t, res.Nodes, len(want))
		for _, id := range res.Nodes {
			assert.True(t, want[id], "unexpected node %s", id)
		}
		if wantEdges == nil {
			wantEdges = []int{}
		}
		assert.Equal(t, wantEdges, res.Edges)

		// deterministic
		assert.Equal(t, res.Nodes, Of(focus, rels).Nodes)
	}
}

func TestHighlight(t *testing.T) {
	doc := &model.Document{
		Nodes: []model.Node{
			{ID: "a", Label: "A", Level: 1},
			{ID: "b", Label: "B", Level: 2},
			{ID: "c", Label: "C", Level: 2},
			{ID: "d", Label: "D", Level: 3},
		},
		Relationships: []model.Relationship{
			rel("a", "b"),
			rel("c", "d"),
			rel("a", "ghost"),
		},
	}

	view, ok := Highlight(doc, "a")
	require.True(t, ok)

	assert.Equal(t, "A", view.Focus.Label)
	require.Len(t, view.Neighbors, 1)
	assert.Equal(t, "b", view.Neighbors[0].ID)
	assert.Len(t, view.Relationships, 2)
	assert.Equal(t, []string{"c", "d"}, view.DimmedNodeIDs)
	assert.Equal(t, []int{1}, view.DimmedEdges)
}

func TestHighlight_UnknownNode(t *testing.T) {
	_, ok := Highlight(&model.Document{}, "missing")
	assert.False(t, ok)
}
