package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
)

// ============================================================================
// Interaction Operations
// ============================================================================

// MERGE on interaction_id keeps a retried write from counting twice
const createInteractionQuery = `
		MERGE (i:Interaction {interaction_id: $interaction_id})
		ON CREATE SET
			i.namespace = $namespace,
			i.student_id = $student_id,
			i.node_id = $node_id,
			i.node_label = $node_label,
			i.action_type = $action_type,
			i.duration = $duration,
			i.timestamp = datetime($timestamp)
		RETURN i.interaction_id AS interaction_id
	`

const listInteractionsQuery = `
		MATCH (i:Interaction {namespace: $namespace})
		RETURN i.interaction_id AS interaction_id,
		       i.student_id AS student_id,
		       i.node_id AS node_id,
		       i.node_label AS node_label,
		       i.action_type AS action_type,
		       i.duration AS duration,
		       i.timestamp AS timestamp
		ORDER BY i.timestamp DESC
	`

const listStudentInteractionsQuery = `
		MATCH (i:Interaction {namespace: $namespace, student_id: $student_id})
		RETURN i.interaction_id AS interaction_id,
		       i.student_id AS student_id,
		       i.node_id AS node_id,
		       i.node_label AS node_label,
		       i.action_type AS action_type,
		       i.duration AS duration,
		       i.timestamp AS timestamp
		ORDER BY i.timestamp DESC
	`

const deleteInteractionsQuery = `
		MATCH (i:Interaction {namespace: $namespace})
		DETACH DELETE i
	`

// CreateInteraction stores one interaction event in the namespace
func (s *Store) CreateInteraction(ctx context.Context, ns model.Namespace, event model.Interaction) (Outcome, error) {
	_, outcome, err := s.write(ctx, "create_interaction", createInteractionQuery, map[string]any{
		"interaction_id": event.InteractionID,
		"namespace":      ns.String(),
		"student_id":     event.StudentID,
		"node_id":        event.NodeID,
		"node_label":     event.NodeLabel,
		"action_type":    string(event.ActionType),
		"duration":       event.Duration,
		"timestamp":      event.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to log interaction: %w", err)
	}
	return outcome, nil
}

// ListInteractions returns every interaction of the namespace, newest first
func (s *Store) ListInteractions(ctx context.Context, ns model.Namespace) ([]model.Interaction, error) {
	records, err := s.read(ctx, "list_interactions", listInteractionsQuery, map[string]any{
		"namespace": ns.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return interactionsFromRecords(records), nil
}

// ListStudentInteractions returns one student's interactions, newest first
func (s *Store) ListStudentInteractions(ctx context.Context, ns model.Namespace, studentID string) ([]model.Interaction, error) {
	records, err := s.read(ctx, "list_student_interactions", listStudentInteractionsQuery, map[string]any{
		"namespace":  ns.String(),
		"student_id": studentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions of student %s: %w", studentID, err)
	}
	return interactionsFromRecords(records), nil
}

// DeleteInteractions removes every interaction of the namespace
func (s *Store) DeleteInteractions(ctx context.Context, ns model.Namespace) (Outcome, error) {
	_, outcome, err := s.write(ctx, "delete_interactions", deleteInteractionsQuery, map[string]any{
		"namespace": ns.String(),
	})
	if err != nil {
		return outcome, fmt.Errorf("failed to delete interactions: %w", err)
	}
	return outcome, nil
}

func interactionsFromRecords(records []Record) []model.Interaction {
	interactions := make([]model.Interaction, 0, len(records))
	for _, record := range records {
		interactions = append(interactions, model.Interaction{
			InteractionID: record.String("interaction_id"),
			StudentID:     record.String("student_id"),
			NodeID:        record.String("node_id"),
			NodeLabel:     record.String("node_label"),
			ActionType:    model.ActionType(record.String("action_type")),
			Duration:      record.Float64("duration"),
			Timestamp:     record.Time("timestamp"),
		})
	}
	return interactions
}
