package totem

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"examsync/internal/store"
	"examsync/internal/store/memory"
)

type fakeSource struct {
	mu      sync.Mutex
	sheets  map[string][]Row
	failAll bool
	block   chan struct{} // when set, Rows blocks until closed
}

func (f *fakeSource) SheetNames(ctx context.Context) ([]string, error) {
	if f.failAll {
		return nil, errors.New("detection unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.sheets))
	for name := range f.sheets {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeSource) Rows(ctx context.Context, sheetName string) ([]Row, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rows, ok := f.sheets[sheetName]
	if !ok {
		return nil, fmt.Errorf("sheet %q unavailable", sheetName)
	}
	return rows, nil
}

func sheetRow(sector, career, subject, name, date, hour string) Row {
	return Row{
		"SECTOR":       sector,
		"CARRERA":      career,
		"MATERIA":      subject,
		"NOMBRE CORTO": name,
		"FECHA":        date,
		"Hora":         hour,
	}
}

func newOrchestrator(st *memory.Store, source RowSource, opts OrchestratorOptions) *Orchestrator {
	resolver := NewResolver(st)
	guard := NewUpsertGuard(st)
	return NewOrchestrator(st, source, resolver, guard, opts)
}

func TestRunOutcomeCounters(t *testing.T) {
	st, _, career := seedCatalog(t)
	st.AddCareerMapping(store.CareerMapping{
		ExternalCode: "13", CareerID: &career.ID, Resolved: true, Active: true,
	})

	source := &fakeSource{sheets: map[string][]Row{
		"1° Turno Ordinario": {
			// Creates an exam.
			sheetRow("2", "13", "10037", "Derecho Romano", "4/7/2025", "18:00"),
			// Same identity again: duplicate avoided.
			sheetRow("2", "13", "10037", "Derecho Romano", "4/7/2025", "18:00"),
			// Unknown career code: placeholder + unresolved.
			sheetRow("2", "99", "10050", "Filosofía", "5/7/2025", "9:00"),
			// No date: skipped.
			sheetRow("2", "13", "10038", "Derecho Civil", "", "9:00"),
		},
	}}

	o := newOrchestrator(st, source, OrchestratorOptions{})
	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.RowsProcessed != 4 {
		t.Errorf("RowsProcessed = %d, want 4", summary.RowsProcessed)
	}
	if summary.ExamsCreated != 1 {
		t.Errorf("ExamsCreated = %d, want 1", summary.ExamsCreated)
	}
	if summary.DuplicatesAvoided != 1 {
		t.Errorf("DuplicatesAvoided = %d, want 1", summary.DuplicatesAvoided)
	}
	if summary.Unresolved != 1 {
		t.Errorf("Unresolved = %d, want 1", summary.Unresolved)
	}
	if summary.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", summary.Skipped)
	}
	if summary.RowErrors != 0 {
		t.Errorf("RowErrors = %d, want 0", summary.RowErrors)
	}
	if summary.RunID == "" {
		t.Error("RunID is empty")
	}

	// The unknown code left a placeholder behind.
	m, err := st.CareerMappingByCode(context.Background(), "99")
	if err != nil {
		t.Fatalf("placeholder for code 99 missing: %v", err)
	}
	if m.Resolved {
		t.Error("placeholder Resolved = true, want false")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	st, _, career := seedCatalog(t)
	st.AddCareerMapping(store.CareerMapping{
		ExternalCode: "13", CareerID: &career.ID, Resolved: true, Active: true,
	})
	source := &fakeSource{sheets: map[string][]Row{
		"1° Turno Ordinario": {
			sheetRow("2", "13", "10037", "Derecho Romano", "4/7/2025", "18:00"),
			sheetRow("2", "13", "10038", "Derecho Civil", "5/7/2025", "9:00"),
		},
	}}

	o := newOrchestrator(st, source, OrchestratorOptions{})
	ctx := context.Background()

	first, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.ExamsCreated != 2 {
		t.Fatalf("first run ExamsCreated = %d, want 2", first.ExamsCreated)
	}

	second, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if second.ExamsCreated != 0 {
		t.Errorf("second run ExamsCreated = %d, want 0", second.ExamsCreated)
	}
	if second.DuplicatesAvoided != 2 {
		t.Errorf("second run DuplicatesAvoided = %d, want 2", second.DuplicatesAvoided)
	}
}

func TestRunSheetFailureIsIsolated(t *testing.T) {
	st, _, career := seedCatalog(t)
	st.AddCareerMapping(store.CareerMapping{
		ExternalCode: "13", CareerID: &career.ID, Resolved: true, Active: true,
	})
	source := &fakeSource{
		failAll: true, // force the configured fallback list
		sheets: map[string][]Row{
			"1° Turno Ordinario": {
				sheetRow("2", "13", "10037", "Derecho Romano", "4/7/2025", "18:00"),
			},
			// "Especial Abril" is configured but not served: its fetch fails.
		},
	}

	o := newOrchestrator(st, source, OrchestratorOptions{
		SheetNames: []string{"1° Turno Ordinario", "Especial Abril"},
	})
	summary, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.SheetsProcessed != 2 {
		t.Errorf("SheetsProcessed = %d, want 2", summary.SheetsProcessed)
	}
	if summary.ExamsCreated != 1 {
		t.Errorf("ExamsCreated = %d, want 1", summary.ExamsCreated)
	}

	var failed int
	for _, r := range summary.Sheets {
		if r.Error != "" {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("failed sheets = %d, want 1", failed)
	}

	if len(summary.ErrorsPerSheet) != 1 {
		t.Fatalf("ErrorsPerSheet = %v, want one entry", summary.ErrorsPerSheet)
	}
	if summary.ErrorsPerSheet["Especial Abril"] == "" {
		t.Errorf("ErrorsPerSheet missing the failed sheet: %v", summary.ErrorsPerSheet)
	}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	st, _, _ := seedCatalog(t)
	block := make(chan struct{})
	source := &fakeSource{
		sheets: map[string][]Row{"1° Turno Ordinario": {}},
		block:  block,
	}

	o := newOrchestrator(st, source, OrchestratorOptions{})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := o.Run(ctx); err != nil {
			t.Errorf("blocked Run() error = %v", err)
		}
	}()

	// Wait until the first run holds the slot.
	for i := 0; !o.Running() && i < 100; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	if !o.Running() {
		t.Fatal("first run never started")
	}

	if _, err := o.Run(ctx); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("overlapping Run() error = %v, want ErrSyncInProgress", err)
	}

	close(block)
	<-done

	if o.Running() {
		t.Error("Running() = true after completion")
	}

	// Slot is free again.
	if _, err := o.Run(ctx); err != nil {
		t.Errorf("Run() after drain error = %v", err)
	}
}

func TestRunSavesSnapshots(t *testing.T) {
	st, _, _ := seedCatalog(t)
	source := &fakeSource{sheets: map[string][]Row{
		"1° Turno Ordinario": {
			sheetRow("7", "55", "10090", "", "4/7/2025", ""),
		},
	}}

	o := newOrchestrator(st, source, OrchestratorOptions{})
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Sector 7 has no mapping; the snapshot must make it reportable.
	sectors, err := st.ListSnapshotSectors(context.Background())
	if err != nil {
		t.Fatalf("ListSnapshotSectors() error = %v", err)
	}
	if len(sectors) != 1 || sectors[0] != "7" {
		t.Errorf("snapshot sectors = %v, want [7]", sectors)
	}
}
