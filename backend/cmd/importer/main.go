package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/document"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/graph"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/importer"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/interactions"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/model"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/config"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	docPath := flag.String("doc", "", "Graph document to import (default GRAPH_DOCUMENT_PATH)")
	namespace := flag.String("namespace", "", "Namespace to rebuild (default GRAPH_NAMESPACE)")
	strict := flag.Bool("strict", false, "Reject documents with relationships to unknown nodes")
	newWarehouse := flag.Bool("new-warehouse", false, "Clear the namespace and local interactions and write an empty document instead of importing")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	applyFlags(cfg, *docPath, *namespace, *strict)

	ns := model.Namespace(cfg.Namespace)
	if err := ns.Validate(); err != nil {
		log.Fatal("Invalid namespace", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	pipeline := importer.NewPipeline(store, importer.Options{StrictReferences: cfg.StrictImport}, log)

	if *newWarehouse {
		local := interactions.NewLog(store, interactions.NewLocalStore(cfg.InteractionsFile), log)
		if _, err := pipeline.NewWarehouse(ctx, ns, cfg.DocumentPath, local); err != nil {
			log.Fatal("Failed to create new warehouse", zap.Error(err))
		}
		fmt.Printf("New empty warehouse written to %s\n", cfg.DocumentPath)
		return
	}

	if !store.IsAvailable() {
		log.Fatal("Neo4j is required for an import; set NEO4J_URI and check connectivity")
	}

	// Create constraints
	log.Info("Creating constraints...")
	if err := store.EnsureConstraints(ctx); err != nil {
		log.Warn("Failed to create some constraints (may already exist)", zap.Error(err))
	}

	doc, err := document.Load(cfg.DocumentPath)
	if err != nil {
		log.Fatal("Failed to load graph document", zap.Error(err))
	}
	report, err := document.Validate(doc)
	if err != nil {
		log.Fatal("Graph document is invalid", zap.Error(err))
	}
	if len(report.DuplicateNodeIDs) > 0 {
		log.Warn("Duplicate node ids, the last definition wins", zap.Strings("node_ids", report.DuplicateNodeIDs))
	}

	log.Info("Importing graph document",
		zap.String("path", cfg.DocumentPath),
		zap.String("namespace", ns.String()),
	)
	result, err := pipeline.Rebuild(ctx, ns, doc)
	if err != nil {
		log.Fatal("Import failed", zap.Error(err))
	}

	// Verify what landed in the backend
	stats, err := store.Stats(ctx, ns)
	if err != nil {
		log.Fatal("Failed to verify import", zap.Error(err))
	}

	fmt.Println("Import finished")
	fmt.Printf("  namespace:              %s\n", ns)
	fmt.Printf("  nodes applied:          %d\n", result.NodesApplied)
	fmt.Printf("  relationships applied:  %d\n", result.RelationshipsApplied)
	fmt.Printf("  relationships skipped:  %d\n", result.RelationshipsSkipped)
	fmt.Printf("  duration:               %s\n", result.Duration)
	fmt.Printf("  backend nodes:          %d\n", stats.Nodes)
	fmt.Printf("  backend relationships:  %d\n", stats.Relationships)

	for _, i := range result.SkippedRelationships {
		rel := doc.Relationships[i]
		log.Warn("Relationship skipped, endpoint missing",
			zap.Int("index", i),
			zap.String("source", rel.Source),
			zap.String("target", rel.Target),
		)
	}
}

// applyFlags lets command-line flags override the environment
func applyFlags(cfg *config.Config, docPath, namespace string, strict bool) {
	if docPath != "" {
		cfg.DocumentPath = docPath
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}
	if strict {
		cfg.StrictImport = true
	}
}
