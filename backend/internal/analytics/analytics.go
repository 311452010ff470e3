// Package analytics aggregates interaction events into the learning statistics shown
// to operators.
package analytics

import (
	"sort"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
)

const (
	// TopN caps the node and student rankings
	TopN = 10
	// PathLimit caps the learning path of a single student
	PathLimit = 20
	// UncategorizedCategory collects visits to nodes the document does not know
	UncategorizedCategory = "其他"
)

// Count is one row of a ranking
type Count struct {
	Key    string `json:"key"`
	Label  string `json:"label,omitempty"`
	Visits int    `json:"visits"`
}

// Summary is the namespace-wide view of interactions
type Summary struct {
	TotalVisits    int `json:"total_visits"`
	UniqueStudents int `json:"unique_students"`
	UniqueNodes    int `json:"unique_nodes"`
	// AverageDuration covers measured visits only (duration > 0); nil when there are none
	AverageDuration  *float64 `json:"average_duration"`
	TopNodes         []Count  `json:"top_nodes"`
	TopStudents      []Count  `json:"top_students"`
	VisitsByCategory []Count  `json:"visits_by_category"`
	Students         []string `json:"students"`
}

// StudentSummary is the view of one student's interactions
type StudentSummary struct {
	StudentID     string  `json:"student_id"`
	Visits        int     `json:"visits"`
	DistinctNodes int     `json:"distinct_nodes"`
	TotalDuration float64 `json:"total_duration"`
	// Path holds node labels oldest first, at most PathLimit of them
	Path          []string `json:"path"`
	PathTruncated bool     `json:"path_truncated"`
}

// Summarize aggregates events. doc supplies node categories and labels and may be nil.
func Summarize(events []model.Interaction, doc *model.Document) Summary {
	summary := Summary{
		TopNodes:         []Count{},
		TopStudents:      []Count{},
		VisitsByCategory: []Count{},
		Students:         []string{},
	}
	if len(events) == 0 {
		return summary
	}

	nodes := indexNodes(doc)
	nodeVisits := map[string]int{}
	nodeLabels := map[string]string{}
	studentVisits := map[string]int{}
	categoryVisits := map[string]int{}

	var measured int
	var durationSum float64
	for _, ev := range events {
		nodeVisits[ev.NodeID]++
		if _, ok := nodeLabels[ev.NodeID]; !ok {
			nodeLabels[ev.NodeID] = ev.NodeLabel
		}
		if _, ok := studentVisits[ev.StudentID]; !ok {
			summary.Students = append(summary.Students, ev.StudentID)
		}
		studentVisits[ev.StudentID]++
		categoryVisits[categoryOf(nodes, ev.NodeID)]++

		if ev.Duration > 0 {
			measured++
			durationSum += ev.Duration
		}
	}

	summary.TotalVisits = len(events)
	summary.UniqueStudents = len(studentVisits)
	summary.UniqueNodes = len(nodeVisits)
	if measured > 0 {
		avg := durationSum / float64(measured)
		summary.AverageDuration = &avg
	}

	for id, visits := range nodeVisits {
		label := nodeLabels[id]
		if node, ok := nodes[id]; ok {
			label = node.Label
		}
		summary.TopNodes = append(summary.TopNodes, Count{Key: id, Label: label, Visits: visits})
	}
	summary.TopNodes = rank(summary.TopNodes, TopN)

	for id, visits := range studentVisits {
		summary.TopStudents = append(summary.TopStudents, Count{Key: id, Visits: visits})
	}
	summary.TopStudents = rank(summary.TopStudents, TopN)

	for category, visits := range categoryVisits {
		summary.VisitsByCategory = append(summary.VisitsByCategory, Count{Key: category, Visits: visits})
	}
	summary.VisitsByCategory = rank(summary.VisitsByCategory, 0)

	return summary
}

// Student summarises one student's events
func Student(events []model.Interaction, studentID string) StudentSummary {
	summary := StudentSummary{StudentID: studentID, Path: []string{}}

	var own []model.Interaction
	nodes := map[string]struct{}{}
	for _, ev := range events {
		if ev.StudentID != studentID {
			continue
		}
		own = append(own, ev)
		nodes[ev.NodeID] = struct{}{}
		if ev.Duration > 0 {
			summary.TotalDuration += ev.Duration
		}
	}
	summary.Visits = len(own)
	summary.DistinctNodes = len(nodes)

	// reads arrive newest first; the path is told oldest first
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Timestamp.Before(own[j].Timestamp)
	})
	for _, ev := range own {
		if len(summary.Path) == PathLimit {
			summary.PathTruncated = true
			break
		}
		summary.Path = append(summary.Path, ev.NodeLabel)
	}
	return summary
}

// indexNodes maps node ids to nodes; a repeated id keeps its last definition
func indexNodes(doc *model.Document) map[string]model.Node {
	if doc == nil {
		return map[string]model.Node{}
	}
	index := make(map[string]model.Node, len(doc.Nodes))
	for _, node := range doc.Nodes {
		index[node.ID] = node
	}
	return index
}

func categoryOf(nodes map[string]model.Node, nodeID string) string {
	node, ok := nodes[nodeID]
	if !ok || node.Category == "" {
		return UncategorizedCategory
	}
	return node.Category
}

// rank sorts by visits descending then key ascending, keeping at most limit rows
// (0 keeps all)
func rank(counts []Count, limit int) []Count {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Visits != counts[j].Visits {
			return counts[i].Visits > counts[j].Visits
		}
		return counts[i].Key < counts[j].Key
	})
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
