package model

import (
	"fmt"
	"regexp"
	"time"
)

const (
	// DefaultRelationshipType labels relationships whose document entry has no type
	DefaultRelationshipType = "关联"

	// DefaultWarehouseVersion is stamped on freshly created documents
	DefaultWarehouseVersion = "1.0"

	// DefaultWarehouseTitle is the title of a freshly created document
	DefaultWarehouseTitle = "新建知识图谱"

	// MetadataTimeLayout formats Metadata.CreatedTime
	MetadataTimeLayout = "2006-01-02 15:04:05"
)

// Node is a single knowledge point in the graph
type Node struct {
	ID         string     `json:"id" yaml:"id" validate:"required"`
	Label      string     `json:"label" yaml:"label" validate:"required"`
	Category   string     `json:"category" yaml:"category"`
	Level      int        `json:"level" yaml:"level" validate:"min=1"`
	Type       string     `json:"type" yaml:"type"`
	Properties Properties `json:"properties" yaml:"properties"`
}

// Relationship is a typed, directed edge between two node ids
type Relationship struct {
	Source     string     `json:"source" yaml:"source" validate:"required"`
	Target     string     `json:"target" yaml:"target" validate:"required"`
	Type       string     `json:"type,omitempty" yaml:"type,omitempty"`
	Properties Properties `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// EffectiveType returns the relationship type, falling back to DefaultRelationshipType
func (r Relationship) EffectiveType() string {
	if r.Type == "" {
		return DefaultRelationshipType
	}
	return r.Type
}

// Metadata describes a whole document
type Metadata struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	CreatedTime string `json:"created_time" yaml:"created_time"`
	Version     string `json:"version" yaml:"version"`
}

// Document is the on-disk and in-memory representation of one knowledge graph
type Document struct {
	Metadata      Metadata       `json:"metadata" yaml:"metadata"`
	Nodes         []Node         `json:"nodes" yaml:"nodes" validate:"dive"`
	Relationships []Relationship `json:"relationships" yaml:"relationships" validate:"dive"`
}

// NewEmptyWarehouse returns a document with no nodes or relationships
func NewEmptyWarehouse(now time.Time) *Document {
	return &Document{
		Metadata: Metadata{
			Title:       DefaultWarehouseTitle,
			Description: "",
			CreatedTime: now.Format(MetadataTimeLayout),
			Version:     DefaultWarehouseVersion,
		},
		Nodes:         []Node{},
		Relationships: []Relationship{},
	}
}

// Node looks up a node by id. When the document defines the id more than once the
// last definition wins, matching what an import leaves in the backend.
func (d *Document) Node(id string) (Node, bool) {
	for i := len(d.Nodes) - 1; i >= 0; i-- {
		if d.Nodes[i].ID == id {
			return d.Nodes[i], true
		}
	}
	return Node{}, false
}

// ActionType names what a student did with a node
type ActionType string

const (
	ActionView ActionType = "view"
)

// Interaction is one recorded student action against a node
type Interaction struct {
	InteractionID string     `json:"interaction_id"`
	StudentID     string     `json:"student_id"`
	NodeID        string     `json:"node_id"`
	NodeLabel     string     `json:"node_label"`
	ActionType    ActionType `json:"action_type"`
	Duration      float64    `json:"duration"` // seconds, 0 = not measured
	Timestamp     time.Time  `json:"timestamp"`
}

// Namespace partitions graph and interaction data inside one backend
type Namespace string

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks that the namespace can be used as a partition key
func (ns Namespace) Validate() error {
	if ns == "" {
		return ErrInvalidNamespace{Namespace: string(ns), Reason: "cannot be empty"}
	}
	if len(ns) > 64 {
		return ErrInvalidNamespace{Namespace: string(ns), Reason: "longer than 64 characters"}
	}
	if !namespacePattern.MatchString(string(ns)) {
		return ErrInvalidNamespace{Namespace: string(ns), Reason: "only letters, digits, '_' and '-' are allowed"}
	}
	return nil
}

func (ns Namespace) String() string {
	return string(ns)
}

// Errors

type ErrInvalidNamespace struct {
	Namespace string
	Reason    string
}

func (e ErrInvalidNamespace) Error() string {
	return fmt.Sprintf("invalid namespace %q: %s", e.Namespace, e.Reason)
}
