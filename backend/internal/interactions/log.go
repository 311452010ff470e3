package interactions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/graph"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/observability"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Primary is the graph-backed interaction sink. *graph.Store satisfies it.
type Primary interface {
	IsAvailable() bool
	CreateInteraction(ctx context.Context, ns model.Namespace, event model.Interaction) (graph.Outcome, error)
	ListInteractions(ctx context.Context, ns model.Namespace) ([]model.Interaction, error)
	ListStudentInteractions(ctx context.Context, ns model.Namespace, studentID string) ([]model.Interaction, error)
	DeleteInteractions(ctx context.Context, ns model.Namespace) (graph.Outcome, error)
}

// Source names the sink that answered a read
type Source string

const (
	SourcePrimary Source = "primary"
	SourceLocal   Source = "local"
)

// RecordResult reports what each sink did with one event. Record never fails as a
// whole; callers that care about durability inspect the outcomes.
type RecordResult struct {
	Event      model.Interaction `json:"event"`
	Primary    graph.Outcome     `json:"primary"`
	Local      graph.Outcome     `json:"local"`
	PrimaryErr error             `json:"-"`
	LocalErr   error             `json:"-"`
}

// Persisted reports whether at least one sink stored the event
func (r RecordResult) Persisted() bool {
	return r.Primary == graph.Applied || r.Local == graph.Applied
}

// Log dual-writes interaction events to the graph backend and a local file, and reads
// from whichever of the two holds data
type Log struct {
	primary Primary
	local   *LocalStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewLog creates an interaction log over both sinks
func NewLog(primary Primary, local *LocalStore, log *zap.Logger) *Log {
	return &Log{
		primary: primary,
		local:   local,
		logger:  logger.OrDefault(log),
		now:     time.Now,
	}
}

// PrimaryAvailable reports whether the graph sink is live
func (l *Log) PrimaryAvailable() bool {
	return l.primary != nil && l.primary.IsAvailable()
}

// LocalPath returns the local sink's file path
func (l *Log) LocalPath() string {
	return l.local.Path()
}

// Record stamps a new event and attempts both sinks independently
func (l *Log) Record(ctx context.Context, ns model.Namespace, studentID, nodeID, nodeLabel string, action model.ActionType, duration float64) RecordResult {
	now := l.now()
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		duration = 0
	}
	if action == "" {
		action = model.ActionView
	}

	event := model.Interaction{
		InteractionID: NewInteractionID(studentID, nodeID, now),
		StudentID:     studentID,
		NodeID:        nodeID,
		NodeLabel:     nodeLabel,
		ActionType:    action,
		Duration:      duration,
		Timestamp:     now,
	}
	result := RecordResult{Event: event, Primary: graph.Unavailable}

	if l.PrimaryAvailable() {
		result.Primary, result.PrimaryErr = l.primary.CreateInteraction(ctx, ns, event)
		if result.PrimaryErr != nil {
			l.logger.Warn("Primary interaction sink failed, relying on local store",
				zap.String("namespace", ns.String()),
				zap.String("interaction_id", event.InteractionID),
				zap.Error(result.PrimaryErr),
			)
		}
	}

	if err := l.local.Append(ns, event); err != nil {
		result.Local, result.LocalErr = graph.Failed, err
		l.logger.Warn("Local interaction sink failed",
			zap.String("interaction_id", event.InteractionID),
			zap.Error(err),
		)
	} else {
		result.Local = graph.Applied
	}

	observability.InteractionSinkWritesTotal.WithLabelValues("primary", result.Primary.String()).Inc()
	observability.InteractionSinkWritesTotal.WithLabelValues("local", result.Local.String()).Inc()

	l.logger.Debug("Interaction recorded",
		zap.String("interaction_id", event.InteractionID),
		zap.Stringer("primary", result.Primary),
		zap.Stringer("local", result.Local),
	)
	return result
}

// ReadAll returns the namespace's interactions newest first. The primary sink answers
// when it is available and holds at least one event; otherwise the local file does,
// even if the primary is live but empty. Local rows recorded under another namespace
// are skipped.
func (l *Log) ReadAll(ctx context.Context, ns model.Namespace) ([]model.Interaction, Source, error) {
	if l.PrimaryAvailable() {
		events, err := l.primary.ListInteractions(ctx, ns)
		if err != nil {
			return nil, SourcePrimary, fmt.Errorf("failed to read interactions: %w", err)
		}
		if len(events) > 0 {
			observability.InteractionReadsTotal.WithLabelValues(string(SourcePrimary)).Inc()
			return events, SourcePrimary, nil
		}
	}

	events, err := l.local.Load(ns)
	if err != nil {
		return nil, SourceLocal, fmt.Errorf("failed to read local interactions: %w", err)
	}
	sortNewestFirst(events)
	observability.InteractionReadsTotal.WithLabelValues(string(SourceLocal)).Inc()
	return events, SourceLocal, nil
}

// ReadForStudent returns one student's interactions from the primary sink only. With
// the primary unavailable the result is empty.
func (l *Log) ReadForStudent(ctx context.Context, ns model.Namespace, studentID string) ([]model.Interaction, error) {
	if !l.PrimaryAvailable() {
		return []model.Interaction{}, nil
	}
	events, err := l.primary.ListStudentInteractions(ctx, ns, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read interactions of student %s: %w", studentID, err)
	}
	return events, nil
}

// Clear removes the namespace's interactions from the primary sink (when available)
// and deletes the local file. Both are attempted; errors are joined.
func (l *Log) Clear(ctx context.Context, ns model.Namespace) error {
	var errs []error
	if l.PrimaryAvailable() {
		if _, err := l.primary.DeleteInteractions(ctx, ns); err != nil {
			errs = append(errs, err)
		}
	}
	if err := l.ClearLocal(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	l.logger.Info("Interactions cleared", zap.String("namespace", ns.String()))
	return nil
}

// ClearLocal deletes the local file only
func (l *Log) ClearLocal() error {
	if err := l.local.Remove(); err != nil {
		return fmt.Errorf("failed to clear local interactions: %w", err)
	}
	return nil
}

// NewInteractionID derives an id from the student, node and microsecond timestamp. The
// random suffix keeps ids distinct when the clock does not advance between calls.
func NewInteractionID(studentID, nodeID string, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	stamp := fmt.Sprintf("%s%06d", at.Format("20060102150405"), at.Nanosecond()/int(time.Microsecond))
	return fmt.Sprintf("%s_%s_%s_%s", studentID, nodeID, stamp, suffix)
}

// sortNewestFirst orders by timestamp descending. The file has second precision, so
// ties keep reverse append order (the later append is newer).
func sortNewestFirst(events []model.Interaction) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
}
