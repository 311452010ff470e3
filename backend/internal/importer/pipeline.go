// Package importer rebuilds a namespace in the graph backend from a source document.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/document"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/graph"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/observability"
	apperrors "github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/errors"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/logger"
	"go.uber.org/zap"
)

// Writer is the slice of the graph store a rebuild needs. *graph.Store satisfies it.
type Writer interface {
	IsAvailable() bool
	ClearNamespace(ctx context.Context, ns model.Namespace) (graph.Outcome, error)
	UpsertNode(ctx context.Context, ns model.Namespace, node model.Node) (graph.Outcome, error)
	UpsertRelationship(ctx context.Context, ns model.Namespace, rel model.Relationship) (graph.Outcome, error)
}

// LocalClearer removes the local interaction file. *interactions.Log satisfies it.
type LocalClearer interface {
	ClearLocal() error
}

// Options tunes a Pipeline
type Options struct {
	// StrictReferences rejects documents with dangling relationships before the
	// namespace is cleared. Off by default: dangling relationships are skipped.
	StrictReferences bool
}

// Report summarises one rebuild
type Report struct {
	Namespace            model.Namespace `json:"namespace"`
	Status               graph.Outcome   `json:"status"`
	NodesApplied         int             `json:"nodes_applied"`
	RelationshipsApplied int             `json:"relationships_applied"`
	RelationshipsSkipped int             `json:"relationships_skipped"`
	// SkippedRelationships are indices into the document's relationships
	SkippedRelationships []int         `json:"skipped_relationships,omitempty"`
	Duration             time.Duration `json:"duration"`
}

// Pipeline performs destructive rebuilds of a namespace
type Pipeline struct {
	writer Writer
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewPipeline creates a pipeline writing through w
func NewPipeline(w Writer, opts Options, log *zap.Logger) *Pipeline {
	return &Pipeline{
		writer: w,
		opts:   opts,
		logger: logger.OrDefault(log),
		now:    time.Now,
	}
}

// Rebuild clears the namespace, then upserts every node and then every relationship
// in document order. A failing statement aborts the rebuild and leaves the namespace
// partially rebuilt. With the backend unavailable nothing is attempted and the
// report's Status is graph.Unavailable.
func (p *Pipeline) Rebuild(ctx context.Context, ns model.Namespace, doc *model.Document) (report Report, err error) {
	report = Report{Namespace: ns, Status: graph.Applied}

	if err := ns.Validate(); err != nil {
		return report, apperrors.NewInvalidNamespace(ns.String(), err.Error())
	}
	if doc == nil {
		return report, apperrors.NewDocumentInvalid([]string{"document is empty"}, nil)
	}
	if p.opts.StrictReferences {
		if err := checkReferences(doc); err != nil {
			return report, err
		}
	}

	if !p.writer.IsAvailable() {
		report.Status = graph.Unavailable
		p.logger.Warn("Graph backend unavailable, rebuild skipped", zap.String("namespace", ns.String()))
		return report, nil
	}

	start := p.now()
	defer func() {
		report.Duration = p.now().Sub(start)
		observability.RebuildDuration.Observe(report.Duration.Seconds())
	}()

	p.logger.Info("Rebuilding namespace",
		zap.String("namespace", ns.String()),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("relationships", len(doc.Relationships)),
	)

	outcome, err := p.writer.ClearNamespace(ctx, ns)
	if err != nil {
		report.Status = graph.Failed
		return report, fmt.Errorf("failed to clear namespace before rebuild: %w", err)
	}
	if outcome == graph.Unavailable {
		report.Status = graph.Unavailable
		return report, nil
	}

	for _, node := range doc.Nodes {
		outcome, err := p.writer.UpsertNode(ctx, ns, node)
		observability.RebuildEntitiesTotal.WithLabelValues("node", outcome.String()).Inc()
		if err != nil {
			report.Status = graph.Failed
			return report, fmt.Errorf("rebuild aborted after %d nodes: %w", report.NodesApplied, err)
		}
		if outcome == graph.Applied {
			report.NodesApplied++
		}
	}

	for i, rel := range doc.Relationships {
		outcome, err := p.writer.UpsertRelationship(ctx, ns, rel)
		observability.RebuildEntitiesTotal.WithLabelValues("relationship", outcome.String()).Inc()
		if err != nil {
			report.Status = graph.Failed
			return report, fmt.Errorf("rebuild aborted after %d relationships: %w", report.RelationshipsApplied, err)
		}
		switch outcome {
		case graph.Applied:
			report.RelationshipsApplied++
		case graph.Skipped:
			report.RelationshipsSkipped++
			report.SkippedRelationships = append(report.SkippedRelationships, i)
		}
	}

	p.logger.Info("Namespace rebuilt",
		zap.String("namespace", ns.String()),
		zap.Int("nodes_applied", report.NodesApplied),
		zap.Int("relationships_applied", report.RelationshipsApplied),
		zap.Int("relationships_skipped", report.RelationshipsSkipped),
	)
	return report, nil
}

// CreateEmptyWarehouse returns a fresh document with default metadata. Nothing is
// persisted.
func (p *Pipeline) CreateEmptyWarehouse() *model.Document {
	return model.NewEmptyWarehouse(p.now())
}

// NewWarehouse starts over: it clears the namespace in the backend, removes the local
// interaction file and writes an empty document to path
func (p *Pipeline) NewWarehouse(ctx context.Context, ns model.Namespace, path string, local LocalClearer) (*model.Document, error) {
	if err := ns.Validate(); err != nil {
		return nil, apperrors.NewInvalidNamespace(ns.String(), err.Error())
	}

	if p.writer.IsAvailable() {
		if _, err := p.writer.ClearNamespace(ctx, ns); err != nil {
			return nil, fmt.Errorf("failed to clear namespace for new warehouse: %w", err)
		}
	}
	if local != nil {
		if err := local.ClearLocal(); err != nil {
			return nil, err
		}
	}

	doc := p.CreateEmptyWarehouse()
	if err := document.Save(path, doc); err != nil {
		return nil, fmt.Errorf("failed to save new warehouse: %w", err)
	}

	p.logger.Info("New warehouse created",
		zap.String("namespace", ns.String()),
		zap.String("path", path),
	)
	return doc, nil
}

func checkReferences(doc *model.Document) error {
	report, err := document.Validate(doc)
	if err != nil {
		return err
	}
	if len(report.DanglingRelationships) == 0 {
		return nil
	}

	problems := make([]string, 0, len(report.DanglingRelationships))
	for _, i := range report.DanglingRelationships {
		rel := doc.Relationships[i]
		problems = append(problems, fmt.Sprintf("relationships[%d] %s->%s references an unknown node", i, rel.Source, rel.Target))
	}
	return apperrors.NewDocumentInvalid(problems, nil)
}
