// Package neighborhood computes the one-hop neighbourhood of a node over a list of
// relationships. Everything here is pure and safe for concurrent use.
package neighborhood

import (
	"sort"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
)

// Result is the set of nodes and relationships touching one node
type Result struct {
	NodeID string `json:"node_id"`
	// Nodes is sorted and always contains NodeID
	Nodes []string `json:"nodes"`
	// Edges are ascending indices into the relationship slice
	Edges []int `json:"edges"`

	nodes map[string]struct{}
	edges map[int]struct{}
}

// Of scans rels once and collects every relationship with nodeID as source or
// target, plus the node on its other end. Relationships whose endpoints are not in
// any document still count; this is a pure function of the relationship list.
func Of(nodeID string, rels []model.Relationship) Result {
	res := Result{
		NodeID: nodeID,
		Edges:  []int{},
		nodes:  map[string]struct{}{nodeID: {}},
		edges:  map[int]struct{}{},
	}

	for i, rel := range rels {
		switch nodeID {
		case rel.Source:
			res.nodes[rel.Target] = struct{}{}
		case rel.Target:
			res.nodes[rel.Source] = struct{}{}
		default:
			continue
		}
		res.edges[i] = struct{}{}
		res.Edges = append(res.Edges, i)
	}

	res.Nodes = make([]string, 0, len(res.nodes))
	for id := range res.nodes {
		res.Nodes = append(res.Nodes, id)
	}
	sort.Strings(res.Nodes)
	return res
}

// HasNode reports whether id is the focus node or adjacent to it
func (r Result) HasNode(id string) bool {
	_, ok := r.nodes[id]
	return ok
}

// HasEdge reports whether the relationship at index i touches the focus node
func (r Result) HasEdge(i int) bool {
	_, ok := r.edges[i]
	return ok
}
