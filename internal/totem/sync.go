package totem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"examsync/internal/store"
)

// Orchestrator drives one full synchronization pass across the totem sheets.
// Sheets are independent data partitions and are processed concurrently;
// rows within a sheet are processed sequentially in source order so that
// placeholder creation is deterministic (first occurrence wins).
type Orchestrator struct {
	store    store.Store
	source   RowSource
	resolver *Resolver
	guard    *UpsertGuard
	limiter  *RunLimiter

	sheetNames       []string
	sheetConcurrency int
}

// OrchestratorOptions configures a sync run.
type OrchestratorOptions struct {
	// SheetNames is the fallback list used when the row source cannot
	// enumerate its sheets.
	SheetNames []string
	// SheetConcurrency bounds how many sheets are processed at once.
	// Values below 1 mean sequential.
	SheetConcurrency int
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(st store.Store, source RowSource, resolver *Resolver, guard *UpsertGuard, opts OrchestratorOptions) *Orchestrator {
	if opts.SheetConcurrency < 1 {
		opts.SheetConcurrency = 1
	}
	return &Orchestrator{
		store:            st,
		source:           source,
		resolver:         resolver,
		guard:            guard,
		limiter:          NewRunLimiter(),
		sheetNames:       opts.SheetNames,
		sheetConcurrency: opts.SheetConcurrency,
	}
}

// Running reports whether a sync run is currently in flight.
func (o *Orchestrator) Running() bool { return o.limiter.Active() }

// WaitForDrain blocks until the in-flight run (if any) completes.
func (o *Orchestrator) WaitForDrain(ctx context.Context) error { return o.limiter.WaitForDrain(ctx) }

// Run executes one synchronization pass and returns its summary. A second
// run requested while one is in flight is rejected with ErrSyncInProgress.
// Per-row and per-sheet failures are recovered locally and aggregated into
// the summary; only the inability to reach the row source at all (no sheets
// to process) aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (*SyncSummary, error) {
	if !o.limiter.TryAcquire() {
		return nil, ErrSyncInProgress
	}
	defer o.limiter.Release()

	start := time.Now()
	runID := uuid.New().String()
	logger := slog.Default().With("run_id", runID)

	sheets, err := o.source.SheetNames(ctx)
	if err != nil || len(sheets) == 0 {
		if len(o.sheetNames) == 0 {
			return nil, fmt.Errorf("no sheets to process: %w", err)
		}
		logger.Warn("sheet detection failed, using configured sheet list",
			"error", err, "sheets", len(o.sheetNames))
		sheets = o.sheetNames
	}
	logger.Info("sync started", "sheets", len(sheets))

	results := make([]SheetResult, len(sheets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.sheetConcurrency)
	for i, name := range sheets {
		g.Go(func() error {
			results[i] = o.syncSheet(gctx, logger, name)
			return nil
		})
	}
	// Sheet workers never return errors; failures land in their results.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &SyncSummary{
		RunID:    runID,
		Sheets:   results,
		Duration: time.Since(start),
	}
	for _, r := range results {
		summary.SheetsProcessed++
		summary.RowsProcessed += r.RowsProcessed
		summary.ExamsCreated += r.ExamsCreated
		summary.DuplicatesAvoided += r.DuplicatesAvoided
		summary.Skipped += r.Skipped
		summary.Unresolved += r.Unresolved
		summary.RowErrors += r.RowErrors
		if r.Error != "" {
			if summary.ErrorsPerSheet == nil {
				summary.ErrorsPerSheet = make(map[string]string)
			}
			summary.ErrorsPerSheet[r.SheetName] = r.Error
		}
	}

	logger.Info("sync completed",
		"duration_ms", summary.Duration.Milliseconds(),
		"rows", summary.RowsProcessed,
		"exams_created", summary.ExamsCreated,
		"duplicates_avoided", summary.DuplicatesAvoided,
		"skipped", summary.Skipped,
		"unresolved", summary.Unresolved,
	)
	return summary, nil
}

// syncSheet processes one sheet. All failures are captured in the returned
// result; the run continues with the remaining sheets.
func (o *Orchestrator) syncSheet(ctx context.Context, logger *slog.Logger, sheetName string) SheetResult {
	result := SheetResult{SheetName: sheetName}
	logger = logger.With("sheet", sheetName)

	rows, err := o.source.Rows(ctx, sheetName)
	if err != nil {
		logger.Error("sheet fetch failed", "error", err)
		result.Error = err.Error()
		return result
	}
	if len(rows) == 0 {
		logger.Info("sheet empty, nothing to process")
		return result
	}

	// The raw payload is snapshotted before processing so unmapped codes
	// stay inspectable even when every row fails resolution.
	if _, err := o.store.SaveSheetSnapshot(ctx, sheetName, rowsAsMaps(rows)); err != nil {
		logger.Error("snapshot failed", "error", err)
		result.Error = fmt.Sprintf("save snapshot: %v", err)
		return result
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			result.Error = err.Error()
			return result
		}
		result.RowsProcessed++
		o.syncRow(ctx, logger, NormalizeRow(row), &result)
	}

	logger.Info("sheet processed",
		"rows", result.RowsProcessed,
		"exams_created", result.ExamsCreated,
		"duplicates_avoided", result.DuplicatesAvoided,
		"skipped", result.Skipped,
		"unresolved", result.Unresolved,
	)
	return result
}

// syncRow advances one normalized draft through resolution and upsert,
// bumping the matching counter for every terminal outcome.
func (o *Orchestrator) syncRow(ctx context.Context, logger *slog.Logger, draft ExamDraft, result *SheetResult) {
	if !draft.Complete() {
		result.Skipped++
		return
	}

	faculty, err := o.resolver.ResolveFaculty(ctx, draft.SectorCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			result.Unresolved++
			return
		}
		logger.Error("faculty resolution failed", "sector", draft.SectorCode, "error", err)
		result.RowErrors++
		return
	}

	career, err := o.resolver.ResolveCareer(ctx, draft.CareerCode, faculty.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			result.Unresolved++
			return
		}
		logger.Error("career resolution failed", "career_code", draft.CareerCode, "error", err)
		result.RowErrors++
		return
	}

	_, created, err := o.guard.Ensure(ctx, draft, career.ID)
	if err != nil {
		logger.Error("exam upsert failed", "subject", draft.SubjectDisplayName(), "error", err)
		result.RowErrors++
		return
	}
	if created {
		result.ExamsCreated++
	} else {
		result.DuplicatesAvoided++
	}
}

// rowsAsMaps converts []Row to the plain map slice the snapshot store
// expects.
func rowsAsMaps(rows []Row) []map[string]string {
	out := make([]map[string]string, len(rows))
	for i, r := range rows {
		out[i] = map[string]string(r)
	}
	return out
}
