// Package service wires the query pipeline behind one facade: parse,
// compile, execute, normalize.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/satishbabariya/quarry/catalog"
	"github.com/satishbabariya/quarry/query/ast"
	"github.com/satishbabariya/quarry/query/cache"
	"github.com/satishbabariya/quarry/query/compiler"
	"github.com/satishbabariya/quarry/query/executor"
	"github.com/satishbabariya/quarry/query/qerr"
	"github.com/satishbabariya/quarry/query/sqlgen"
)

// QueryService compiles and runs query descriptions for workspaces.
type QueryService struct {
	registry *catalog.Registry
	exec     *executor.Executor
	cache    *cache.LRUCache
	logger   zerolog.Logger
}

// Option configures a QueryService.
type Option func(*QueryService)

// WithLogger sets the service logger. The default discards events.
func WithLogger(l zerolog.Logger) Option {
	return func(s *QueryService) {
		s.logger = l
	}
}

// WithCache sets a compiled-statement cache. Compilation is deterministic,
// so cached statements stay valid for as long as the catalog is fixed.
func WithCache(c *cache.LRUCache) Option {
	return func(s *QueryService) {
		s.cache = c
	}
}

// NewQueryService creates a service over a catalog and a database handle.
// db may be nil for compile-only use; Run then fails.
func NewQueryService(reg *catalog.Registry, db executor.DBTX, opts ...Option) *QueryService {
	s := &QueryService{
		registry: reg,
		logger:   zerolog.Nop(),
	}
	if db != nil {
		s.exec = executor.New(db)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile parses and compiles a JSON query description for a workspace
// without touching the database.
func (s *QueryService) Compile(workspaceID string, payload []byte) (*sqlgen.Statement, error) {
	if workspaceID == "" {
		return nil, qerr.NewValidationError("workspaceId", "workspace id is required")
	}
	q, err := ast.Parse(payload)
	if err != nil {
		return nil, err
	}
	stmt, _, err := s.compile(workspaceID, q, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to compile query: %w", err)
	}
	return stmt, nil
}

// compile runs the compiler for a parsed query, consulting the statement
// cache when one is configured. Cache hits return a copy so that callers
// cannot mutate the cached arguments.
func (s *QueryService) compile(workspaceID string, q *ast.Query, payload []byte) (*sqlgen.Statement, bool, error) {
	if s.cache == nil {
		stmt, err := compiler.Compile(s.registry, workspaceID, q)
		return stmt, false, err
	}

	key := cache.Key(workspaceID, payload)
	if cached, ok := s.cache.Get(key); ok {
		return copyStatement(cached), true, nil
	}

	stmt, err := compiler.Compile(s.registry, workspaceID, q)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(key, stmt, 0)
	return copyStatement(stmt), false, nil
}

func copyStatement(stmt *sqlgen.Statement) *sqlgen.Statement {
	return &sqlgen.Statement{
		SQL:  stmt.SQL,
		Args: append([]any(nil), stmt.Args...),
	}
}

// Run compiles then executes a query description, returning normalized
// rows in result order. Each run is tagged with a fresh query id in the
// service log.
func (s *QueryService) Run(ctx context.Context, workspaceID string, payload []byte) ([]executor.Row, error) {
	if s.exec == nil {
		return nil, fmt.Errorf("no database configured")
	}
	if workspaceID == "" {
		return nil, qerr.NewValidationError("workspaceId", "workspace id is required")
	}

	queryID := uuid.New().String()
	start := time.Now()

	q, err := ast.Parse(payload)
	if err != nil {
		s.logger.Warn().
			Str("query_id", queryID).
			Str("workspace", workspaceID).
			Err(err).
			Msg("query rejected")
		return nil, err
	}

	logger := s.logger.With().
		Str("query_id", queryID).
		Str("workspace", workspaceID).
		Str("table", q.Table).
		Logger()

	stmt, hit, err := s.compile(workspaceID, q, payload)
	if err != nil {
		logEvent(logger, err).Dur("elapsed", time.Since(start)).Msg("query rejected")
		return nil, fmt.Errorf("failed to compile query: %w", err)
	}
	logger.Debug().Int("args", len(stmt.Args)).Bool("cache_hit", hit).Msg("query compiled")

	rows, err := s.exec.Execute(ctx, stmt)
	if err != nil {
		logEvent(logger, err).Dur("elapsed", time.Since(start)).Msg("query failed")
		return nil, err
	}

	logger.Info().
		Int("rows", len(rows)).
		Dur("elapsed", time.Since(start)).
		Msg("query executed")
	return rows, nil
}

// logEvent picks the event level for a failure: caller mistakes log at
// warn, everything else at error.
func logEvent(logger zerolog.Logger, err error) *zerolog.Event {
	if qerr.IsClientError(err) {
		return logger.Warn().Err(err)
	}
	return logger.Error().Err(err)
}
