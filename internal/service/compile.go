// Package service orchestrates the compiler for callers: it gates on
// need_sql, pins a catalog snapshot per request, and records every attempt
// in the compile history.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"planql/internal/catalog"
	"planql/internal/compiler"
	"planql/internal/domain"
)

// HistoryStore records compilation attempts. Implementations must be safe
// for concurrent use.
type HistoryStore interface {
	Record(ctx context.Context, e domain.HistoryEntry) error
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

// CompileService is the application-facing entry point for compilations.
type CompileService struct {
	catalog  *catalog.Store
	compiler *compiler.Compiler
	history  HistoryStore // nil disables history recording
	logger   *slog.Logger
	nowFn    func() time.Time
}

func NewCompileService(store *catalog.Store, comp *compiler.Compiler, history HistoryStore, logger *slog.Logger) *CompileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompileService{
		catalog:  store,
		compiler: comp,
		history:  history,
		logger:   logger.With("component", "compile-service"),
		nowFn:    time.Now,
	}
}

// Compile compiles one plan. When the plan does not require SQL the
// compiler is not invoked and an empty-SQL result is synthesized. All
// attempts, including failures, are recorded in the history; recording
// failures are logged and never fail the request.
func (s *CompileService) Compile(ctx context.Context, plan domain.Plan) (*domain.Result, error) {
	if !plan.NeedSQL {
		result := &domain.Result{
			Notes: []string{"plan did not require SQL; nothing compiled"},
		}
		s.record(ctx, plan, result, nil, 0)
		return result, nil
	}

	start := s.nowFn()
	snap := s.catalog.Snapshot()
	result, err := s.compiler.Compile(snap, plan)
	elapsed := s.nowFn().Sub(start)

	s.record(ctx, plan, result, err, elapsed)
	if err != nil {
		s.logger.Warn("compilation failed",
			"kind", domain.ErrorKind(err), "intent", plan.Intent, "error", err)
		return nil, err
	}

	s.logger.Debug("compiled plan",
		"table", result.UsedTable, "dims", len(result.Dims), "metrics", len(result.Metrics),
		"duration_ms", elapsed.Milliseconds())
	return result, nil
}

// ReloadCatalog atomically swaps in a freshly parsed catalog snapshot.
func (s *CompileService) ReloadCatalog() error {
	if err := s.catalog.Reload(); err != nil {
		s.logger.Error("catalog reload failed", "error", err)
		return err
	}
	s.logger.Info("catalog reloaded")
	return nil
}

// CatalogSnapshot exposes the current snapshot for listings.
func (s *CompileService) CatalogSnapshot() *catalog.Snapshot {
	return s.catalog.Snapshot()
}

// History lists recent compilation attempts, newest first.
func (s *CompileService) History(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(ctx, limit)
}

func (s *CompileService) record(ctx context.Context, plan domain.Plan, result *domain.Result, compileErr error, elapsed time.Duration) {
	if s.history == nil {
		return
	}
	entry := domain.HistoryEntry{
		ID:         uuid.NewString(),
		CreatedAt:  s.nowFn().UTC(),
		Intent:     plan.Intent,
		Status:     "ok",
		DurationMS: elapsed.Milliseconds(),
	}
	if result != nil {
		entry.UsedTable = result.UsedTable
		entry.SQL = result.SQL
		entry.Notes = strings.Join(result.Notes, " | ")
	}
	if compileErr != nil {
		entry.Status = "error"
		entry.ErrorKind = domain.ErrorKind(compileErr)
		entry.ErrorText = compileErr.Error()
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.Warn("history record failed", "error", err)
	}
}
