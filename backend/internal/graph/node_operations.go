package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"go.uber.org/zap"
)

// ============================================================================
// Knowledge Node & Relationship Operations
// ============================================================================

const upsertNodeQuery = `
		MERGE (n:KnowledgeNode {namespace: $namespace, node_id: $node_id})
		SET n.label = $label,
		    n.category = $category,
		    n.level = $level,
		    n.type = $type,
		    n.properties = $properties,
		    n.updated_at = datetime()
		RETURN n.node_id AS node_id
	`

const upsertRelationshipQuery = `
		MATCH (a:KnowledgeNode {namespace: $namespace, node_id: $source})
		MATCH (b:KnowledgeNode {namespace: $namespace, node_id: $target})
		MERGE (a)-[r:RELATES {type: $rel_type}]->(b)
		SET r.properties = $properties
		RETURN count(r) AS applied
	`

const clearNamespaceQuery = `
		MATCH (n)
		WHERE (n:KnowledgeNode OR n:Interaction) AND n.namespace = $namespace
		DETACH DELETE n
	`

const namespaceStatsQuery = `
		OPTIONAL MATCH (n:KnowledgeNode {namespace: $namespace})
		WITH count(n) AS nodes
		OPTIONAL MATCH (:KnowledgeNode {namespace: $namespace})-[r:RELATES]->(:KnowledgeNode {namespace: $namespace})
		WITH nodes, count(r) AS relationships
		OPTIONAL MATCH (i:Interaction {namespace: $namespace})
		RETURN nodes, relationships, count(i) AS interactions
	`

var schemaStatements = []string{
	"CREATE CONSTRAINT knowledge_node_key IF NOT EXISTS FOR (n:KnowledgeNode) REQUIRE (n.namespace, n.node_id) IS UNIQUE",
	"CREATE CONSTRAINT interaction_id_unique IF NOT EXISTS FOR (i:Interaction) REQUIRE i.interaction_id IS UNIQUE",
	"CREATE INDEX interaction_namespace IF NOT EXISTS FOR (i:Interaction) ON (i.namespace)",
}

// NamespaceStats counts what a namespace holds in the backend
type NamespaceStats struct {
	Nodes         int64 `json:"nodes"`
	Relationships int64 `json:"relationships"`
	Interactions  int64 `json:"interactions"`
}

// UpsertNode creates the node or overwrites every field of the existing node with the
// same id in the namespace
func (s *Store) UpsertNode(ctx context.Context, ns model.Namespace, node model.Node) (Outcome, error) {
	properties, err := encodeProperties(node.Properties)
	if err != nil {
		return Failed, fmt.Errorf("failed to encode properties of node %s: %w", node.ID, err)
	}

	_, outcome, err := s.write(ctx, "upsert_node", upsertNodeQuery, map[string]any{
		"namespace":  ns.String(),
		"node_id":    node.ID,
		"label":      node.Label,
		"category":   node.Category,
		"level":      int64(node.Level),
		"type":       node.Type,
		"properties": properties,
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to upsert node %s: %w", node.ID, err)
	}
	return outcome, nil
}

// UpsertRelationship merges the (source, target, type) relationship. When either
// endpoint is missing from the namespace nothing is written and Skipped is returned.
func (s *Store) UpsertRelationship(ctx context.Context, ns model.Namespace, rel model.Relationship) (Outcome, error) {
	properties, err := encodeProperties(rel.Properties)
	if err != nil {
		return Failed, fmt.Errorf("failed to encode properties of relationship %s->%s: %w", rel.Source, rel.Target, err)
	}

	records, outcome, err := s.write(ctx, "upsert_relationship", upsertRelationshipQuery, map[string]any{
		"namespace":  ns.String(),
		"source":     rel.Source,
		"target":     rel.Target,
		"rel_type":   rel.EffectiveType(),
		"properties": properties,
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to upsert relationship %s->%s: %w", rel.Source, rel.Target, err)
	}
	if outcome != Applied {
		return outcome, nil
	}

	if len(records) == 0 || records[0].Int64("applied") == 0 {
		s.logger.Debug("Relationship skipped, endpoint missing",
			zap.String("namespace", ns.String()),
			zap.String("source", rel.Source),
			zap.String("target", rel.Target),
		)
		return Skipped, nil
	}
	return Applied, nil
}

// ClearNamespace deletes every knowledge node, relationship and interaction of the
// namespace in a single statement
func (s *Store) ClearNamespace(ctx context.Context, ns model.Namespace) (Outcome, error) {
	_, outcome, err := s.write(ctx, "clear_namespace", clearNamespaceQuery, map[string]any{
		"namespace": ns.String(),
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to clear namespace %s: %w", ns, err)
	}
	if outcome == Applied {
		s.logger.Info("Namespace cleared", zap.String("namespace", ns.String()))
	}
	return outcome, nil
}

// EnsureConstraints creates the uniqueness constraints and indexes the store relies on.
// Every statement is attempted; the first error is returned.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	var firstErr error
	for _, stmt := range schemaStatements {
		if _, _, err := s.write(ctx, "ensure_constraints", stmt, nil); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return firstErr
}

// Stats counts the nodes, relationships and interactions of a namespace. A disabled
// store reports zeros.
func (s *Store) Stats(ctx context.Context, ns model.Namespace) (NamespaceStats, error) {
	records, err := s.read(ctx, "namespace_stats", namespaceStatsQuery, map[string]any{
		"namespace": ns.String(),
	})
	if err != nil {
		return NamespaceStats{}, fmt.Errorf("failed to count namespace %s: %w", ns, err)
	}
	if len(records) == 0 {
		return NamespaceStats{}, nil
	}
	return NamespaceStats{
		Nodes:         records[0].Int64("nodes"),
		Relationships: records[0].Int64("relationships"),
		Interactions:  records[0].Int64("interactions"),
	}, nil
}

// encodeProperties stores properties as an ordered JSON object string; Neo4j has no
// ordered map property type
func encodeProperties(props model.Properties) (string, error) {
	encoded, err := json.Marshal(props)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
