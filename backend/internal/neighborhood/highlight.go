package neighborhood

import (
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
)

// View splits a document around a clicked node: what stays lit and what gets dimmed
type View struct {
	Focus model.Node `json:"focus"`
	// Neighbors are the adjacent nodes defined in the document, sorted by id
	Neighbors     []model.Node         `json:"neighbors"`
	Relationships []model.Relationship `json:"relationships"`
	// DimmedNodeIDs lists the remaining node ids in document order
	DimmedNodeIDs []string `json:"dimmed_node_ids"`
	// DimmedEdges are indices into the document's relationships
	DimmedEdges []int `json:"dimmed_edges"`
}

// Highlight builds the view for nodeID. It returns false when the document has no
// such node.
func Highlight(doc *model.Document, nodeID string) (View, bool) {
	focus, ok := doc.Node(nodeID)
	if !ok {
		return View{}, false
	}

	res := Of(nodeID, doc.Relationships)
	view := View{
		Focus:         focus,
		Neighbors:     []model.Node{},
		Relationships: make([]model.Relationship, 0, len(res.Edges)),
		DimmedNodeIDs: []string{},
		DimmedEdges:   []int{},
	}

	for _, id := range res.Nodes {
		if id == nodeID {
			continue
		}
		if node, ok := doc.Node(id); ok {
			view.Neighbors = append(view.Neighbors, node)
		}
	}

	seen := make(map[string]struct{}, len(doc.Nodes))
	for _, node := range doc.Nodes {
		if _, dup := seen[node.ID]; dup || res.HasNode(node.ID) {
			continue
		}
		seen[node.ID] = struct{}{}
		view.DimmedNodeIDs = append(view.DimmedNodeIDs, node.ID)
	}

	for i, rel := range doc.Relationships {
		if res.HasEdge(i) {
			view.Relationships = append(view.Relationships, rel)
		} else {
			view.DimmedEdges = append(view.DimmedEdges, i)
		}
	}
	return view, true
}
