package document

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/observability"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/logger"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 300 * time.Millisecond

// Watcher reloads a Holder when its file changes on disk. Reloads, and the onReload
// callbacks they trigger, never overlap.
type Watcher struct {
	holder   *Holder
	onReload func(*model.Document)
	debounce time.Duration
	logger   *zap.Logger
	ready    chan struct{}
	reloadMu sync.Mutex
}

// NewWatcher creates a watcher. onReload, if set, runs after every successful reload.
func NewWatcher(holder *Holder, onReload func(*model.Document), log *zap.Logger) *Watcher {
	return &Watcher{
		holder:   holder,
		onReload: onReload,
		debounce: defaultDebounce,
		logger:   logger.OrDefault(log),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the file system watch is registered
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done. The directory is watched rather than the file so
// editors that save by rename are still seen.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsWatcher.Close()

	target := filepath.Clean(w.holder.Path())
	if err := fsWatcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	close(w.ready)

	w.logger.Info("Watching graph document", zap.String("path", target))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Document watcher error", zap.Error(err))

		case <-ctx.Done():
			w.logger.Info("Stopping document watcher")
			return nil
		}
	}
}

func (w *Watcher) reload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	doc, report, err := w.holder.Reload()
	if err != nil {
		observability.DocumentReloadsTotal.WithLabelValues("error").Inc()
		w.logger.Error("Graph document reload failed, keeping previous version",
			zap.String("path", w.holder.Path()),
			zap.Error(err),
		)
		return
	}
	observability.DocumentReloadsTotal.WithLabelValues("ok").Inc()

	w.logger.Info("Graph document reloaded",
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("relationships", len(doc.Relationships)),
		zap.Strings("duplicate_node_ids", report.DuplicateNodeIDs),
		zap.Int("dangling_relationships", len(report.DanglingRelationships)),
	)

	if w.onReload != nil {
		w.onReload(doc)
	}
}
