package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/api"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/document"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/graph"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/importer"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/interactions"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/config"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration first so the logger matches the environment
	cfg, cfgErr := config.Load()
	env := "development"
	if cfg != nil {
		env = cfg.Env
	}

	// Initialize logger
	if err := logger.Init(env); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	if cfgErr != nil {
		log.Fatal("Failed to load configuration", zap.Error(cfgErr))
	}
	log.Info("Starting graph warehouse server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
	log.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	ns := model.Namespace(cfg.Namespace)

	// Connect to Neo4j; an unreachable backend leaves the store disabled
	store := graph.Connect(ctx, graph.Options{
		URI:            cfg.Neo4jURI,
		Username:       cfg.Neo4jUser,
		Password:       cfg.Neo4jPassword,
		Database:       cfg.Neo4jDatabase,
		ConnectTimeout: cfg.Neo4jConnectTimeout,
		QueryTimeout:   cfg.Neo4jQueryTimeout,
		Logger:         log,
	})
	defer store.Close(context.Background())

	if store.IsAvailable() {
		if err := store.EnsureConstraints(ctx); err != nil {
			log.Warn("Failed to apply graph constraints", zap.Error(err))
		}
	}

	pipeline := importer.NewPipeline(store, importer.Options{StrictReferences: cfg.StrictImport}, log)
	doc, err := loadDocument(cfg.DocumentPath, pipeline, log)
	if err != nil {
		return err
	}
	holder := document.NewHolder(cfg.DocumentPath, doc)
	interactionLog := interactions.NewLog(store, interactions.NewLocalStore(cfg.InteractionsFile), log)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Graph:        store,
		Interactions: interactionLog,
		Pipeline:     pipeline,
		Documents:    holder,
		Namespace:    ns,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server started", zap.String("port", cfg.Port), zap.String("namespace", ns.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	if cfg.WatchDocument {
		watcher := document.NewWatcher(holder, func(updated *model.Document) {
			if !cfg.AutoRebuild {
				return
			}
			report, err := pipeline.Rebuild(gctx, ns, updated)
			if err != nil {
				log.Error("Rebuild after document reload failed", zap.Error(err))
				return
			}
			log.Info("Rebuild after document reload finished", zap.Stringer("status", report.Status))
		}, log)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

// loadDocument reads the source document, creating an empty warehouse on first start
func loadDocument(path string, pipeline *importer.Pipeline, log *zap.Logger) (*model.Document, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		doc := pipeline.CreateEmptyWarehouse()
		if err := document.Save(path, doc); err != nil {
			return nil, err
		}
		log.Info("Created empty graph document", zap.String("path", path))
		return doc, nil
	}

	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	report, err := document.Validate(doc)
	if err != nil {
		return nil, err
	}
	if !report.Clean() {
		log.Warn("Graph document has referential problems",
			zap.Strings("duplicate_node_ids", report.DuplicateNodeIDs),
			zap.Int("dangling_relationships", len(report.DanglingRelationships)),
		)
	}
	return doc, nil
}
