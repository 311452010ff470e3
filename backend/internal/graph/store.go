package graph

import (
	"context"
	"time"

	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/internal/observability"
	apperrors "github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/errors"
	"github.com/chaocai1-lgtm/20260106-glx-demo/backend/pkg/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"
)

// Outcome reports what a single graph statement did
type Outcome int

const (
	// Applied means the statement ran against a live backend
	Applied Outcome = iota
	// Unavailable means the store is disabled and nothing was attempted
	Unavailable
	// Skipped means the statement ran but matched nothing (e.g. a dangling relationship)
	Skipped
	// Failed means the statement ran against a live backend and returned an error
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Unavailable:
		return "unavailable"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome by name in JSON payloads
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Record is one result row keyed by the RETURN aliases
type Record map[string]any

// Runner executes Cypher against a live backend
type Runner interface {
	Run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]Record, error)
	Close(ctx context.Context) error
}

// Options configures Connect
type Options struct {
	URI            string
	Username       string
	Password       string
	Database       string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
	Logger         *zap.Logger
}

// Store owns the connection to the primary graph backend. A Store without a runner is
// disabled: reads return nothing and writes report Unavailable.
type Store struct {
	runner Runner
	logger *zap.Logger
}

// NewStore wraps an already connected runner
func NewStore(runner Runner, log *zap.Logger) *Store {
	return &Store{
		runner: runner,
		logger: logger.OrDefault(log),
	}
}

// Disabled returns a store with no backend
func Disabled(log *zap.Logger) *Store {
	return &Store{logger: logger.OrDefault(log)}
}

// Connect creates a Neo4j driver and verifies it. It never fails: when the backend is
// not configured or cannot be reached the returned store is disabled.
func Connect(ctx context.Context, opts Options) *Store {
	log := logger.OrDefault(opts.Logger)

	if opts.URI == "" {
		log.Warn("Neo4j not configured, running in file-only mode")
		observability.BackendAvailable.Set(0)
		return Disabled(log)
	}

	driver, err := neo4j.NewDriverWithContext(
		opts.URI,
		neo4j.BasicAuth(opts.Username, opts.Password, ""),
		func(c *neo4jconfig.Config) {
			if opts.ConnectTimeout > 0 {
				c.SocketConnectTimeout = opts.ConnectTimeout
				c.ConnectionAcquisitionTimeout = opts.ConnectTimeout
			}
		},
	)
	if err != nil {
		log.Warn("Neo4j driver unavailable, running in file-only mode",
			zap.Error(apperrors.NewGraphConnectionFailed(opts.URI, err)),
		)
		observability.BackendAvailable.Set(0)
		return Disabled(log)
	}

	verifyCtx := ctx
	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		log.Warn("Neo4j unreachable, running in file-only mode",
			zap.Error(apperrors.NewGraphConnectionFailed(opts.URI, err)),
		)
		observability.BackendAvailable.Set(0)
		return Disabled(log)
	}

	log.Info("Connected to Neo4j", zap.String("uri", apperrors.RedactURI(opts.URI)))
	observability.BackendAvailable.Set(1)
	return NewStore(&neo4jRunner{
		driver:       driver,
		database:     opts.Database,
		queryTimeout: opts.QueryTimeout,
	}, log)
}

// IsAvailable reports whether a live, verified connection exists
func (s *Store) IsAvailable() bool {
	return s != nil && s.runner != nil
}

// Close releases the backend connection
func (s *Store) Close(ctx context.Context) error {
	if !s.IsAvailable() {
		return nil
	}
	return s.runner.Close(ctx)
}

// RunRead executes a read query. A disabled store returns no records.
func (s *Store) RunRead(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	return s.read(ctx, "run_read", query, params)
}

// RunWrite executes a write query. A disabled store does nothing.
func (s *Store) RunWrite(ctx context.Context, query string, params map[string]any) (Outcome, error) {
	_, outcome, err := s.write(ctx, "run_write", query, params)
	return outcome, err
}

func (s *Store) read(ctx context.Context, operation, query string, params map[string]any) ([]Record, error) {
	if !s.IsAvailable() {
		return nil, nil
	}
	records, err := s.runner.Run(ctx, neo4j.AccessModeRead, query, params)
	if err != nil {
		s.logger.Error("Graph read failed", zap.String("operation", operation), zap.Error(err))
		return nil, wrapQueryError(ctx, operation, err)
	}
	return records, nil
}

func (s *Store) write(ctx context.Context, operation, query string, params map[string]any) ([]Record, Outcome, error) {
	if !s.IsAvailable() {
		observability.GraphStatementsTotal.WithLabelValues(operation, Unavailable.String()).Inc()
		return nil, Unavailable, nil
	}
	records, err := s.runner.Run(ctx, neo4j.AccessModeWrite, query, params)
	if err != nil {
		s.logger.Error("Graph write failed", zap.String("operation", operation), zap.Error(err))
		observability.GraphStatementsTotal.WithLabelValues(operation, Failed.String()).Inc()
		return nil, Failed, wrapQueryError(ctx, operation, err)
	}
	observability.GraphStatementsTotal.WithLabelValues(operation, Applied.String()).Inc()
	return records, Applied, nil
}

func wrapQueryError(ctx context.Context, operation string, err error) error {
	if ctx.Err() != nil {
		return apperrors.NewContextCancelled(operation, err)
	}
	return apperrors.NewGraphQueryFailed(operation, err)
}

// neo4jRunner runs each statement in its own auto-commit session
type neo4jRunner struct {
	driver       neo4j.DriverWithContext
	database     string
	queryTimeout time.Duration
}

func (r *neo4jRunner) Run(ctx context.Context, mode neo4j.AccessMode, cypher string, params map[string]any) ([]Record, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
	defer session.Close(ctx)

	var txConfig []func(*neo4j.TransactionConfig)
	if r.queryTimeout > 0 {
		txConfig = append(txConfig, neo4j.WithTxTimeout(r.queryTimeout))
	}

	result, err := session.Run(ctx, cypher, params, txConfig...)
	if err != nil {
		return nil, err
	}
	rows, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record(row.AsMap()))
	}
	return records, nil
}

func (r *neo4jRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
