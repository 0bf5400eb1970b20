package totem

import (
	"context"
	"fmt"
	"time"

	"examsync/internal/store"
)

// Service bundles the sync core behind one facade for the trigger surfaces
// (HTTP server, admin CLI). All collaborators are injected; nothing here
// holds implicit global state.
type Service struct {
	store        store.Store
	orchestrator *Orchestrator
	resolver     *Resolver
	guard        *UpsertGuard
	fetcher      *Fetcher
	allocator    *Allocator
}

// ServiceOptions carries the tunables the service's components need.
type ServiceOptions struct {
	SheetNames       []string
	SheetConcurrency int
	BatchSize        int
	BatchPause       time.Duration
}

// NewService wires the full sync core from its external collaborators.
func NewService(st store.Store, source RowSource, registrar EnrollmentClient, opts ServiceOptions) *Service {
	resolver := NewResolver(st)
	guard := NewUpsertGuard(st)
	return &Service{
		store:    st,
		resolver: resolver,
		guard:    guard,
		orchestrator: NewOrchestrator(st, source, resolver, guard, OrchestratorOptions{
			SheetNames:       opts.SheetNames,
			SheetConcurrency: opts.SheetConcurrency,
		}),
		fetcher: NewFetcher(registrar, st, FetcherOptions{
			BatchSize:  opts.BatchSize,
			BatchPause: opts.BatchPause,
		}),
		allocator: NewAllocator(st),
	}
}

// Sync runs one synchronization pass. See Orchestrator.Run.
func (s *Service) Sync(ctx context.Context) (*SyncSummary, error) {
	return s.orchestrator.Run(ctx)
}

// SyncRunning reports whether a sync run is in flight.
func (s *Service) SyncRunning() bool { return s.orchestrator.Running() }

// WaitForSync blocks until the in-flight run (if any) completes.
func (s *Service) WaitForSync(ctx context.Context) error { return s.orchestrator.WaitForDrain(ctx) }

// Reconcile runs the corrective duplicate cleanup. See UpsertGuard.Reconcile.
func (s *Service) Reconcile(ctx context.Context) (ReconcileResult, error) {
	return s.guard.Reconcile(ctx)
}

// DuplicateGroups reports duplicates without deleting. See UpsertGuard.
func (s *Service) DuplicateGroups(ctx context.Context) (map[string][]int, error) {
	return s.guard.DuplicateGroups(ctx)
}

// Suggestion pairs a proposed room with how the sizing was obtained.
type Suggestion struct {
	Classroom     store.Classroom
	RequiredSeats int
	// EnrollmentErr is set when the registrar could not confirm enrollment.
	// RequiredSeats is then 0 meaning "unsized", not a confirmed zero.
	EnrollmentErr string
}

// SuggestClassroom suggests a room free at the exam's slot, sizing it by the
// exam's confirmed enrollment when the registrar answers. When it does not,
// the suggestion is unsized and marked so the caller can tell the difference
// from an exam nobody enrolled in.
func (s *Service) SuggestClassroom(ctx context.Context, examID int) (Suggestion, error) {
	exam, err := s.store.ExamByID(ctx, examID)
	if err != nil {
		return Suggestion{}, fmt.Errorf("exam %d: %w", examID, err)
	}

	var sug Suggestion
	enrollment, err := s.fetcher.ForExam(ctx, examID, DateWindow{From: exam.Date})
	switch {
	case err != nil:
		sug.EnrollmentErr = err.Error()
	case enrollment.Err != "":
		sug.EnrollmentErr = enrollment.Err
	default:
		sug.RequiredSeats = enrollment.Count
	}

	room, err := s.allocator.Suggest(ctx, sug.RequiredSeats, exam.Date, exam.Time)
	if err != nil {
		return sug, err
	}
	sug.Classroom = room
	return sug, nil
}

// AssignClassroom books the room for the exam. See Allocator.Assign.
func (s *Service) AssignClassroom(ctx context.Context, examID, classroomID, requiredSeats int) (AssignmentResult, error) {
	return s.allocator.Assign(ctx, examID, classroomID, requiredSeats)
}

// UnassignClassroom releases the exam's room. See Allocator.Unassign.
func (s *Service) UnassignClassroom(ctx context.Context, examID int) error {
	return s.allocator.Unassign(ctx, examID)
}

// EnrollmentForExam returns the registrar's matched records for one exam.
func (s *Service) EnrollmentForExam(ctx context.Context, examID int) (ExamEnrollment, error) {
	exam, err := s.store.ExamByID(ctx, examID)
	if err != nil {
		return ExamEnrollment{}, fmt.Errorf("exam %d: %w", examID, err)
	}
	return s.fetcher.ForExam(ctx, examID, DateWindow{From: exam.Date})
}

// FetchEnrollment exposes the batched fetch for bulk dashboards.
func (s *Service) FetchEnrollment(ctx context.Context, subjectCodes []string, window DateWindow) (map[string]EnrollmentResult, error) {
	return s.fetcher.FetchEnrollment(ctx, subjectCodes, window)
}

// UnassignedExams lists exams without a classroom plus the rooms currently
// available, for the assignment workflow.
func (s *Service) UnassignedExams(ctx context.Context) ([]store.Exam, []store.Classroom, error) {
	exams, err := s.store.ListUnassignedExams(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list unassigned exams: %w", err)
	}
	rooms, err := s.store.ListAvailableClassrooms(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list classrooms: %w", err)
	}
	return exams, rooms, nil
}

// Stats aggregates totem statistics for dashboards and the admin CLI.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	return s.store.Stats(ctx)
}

// UnmappedSectors lists sector codes with no faculty mapping.
func (s *Service) UnmappedSectors(ctx context.Context) ([]string, error) {
	return s.resolver.UnmappedSectors(ctx)
}

// UnresolvedCareerMappings lists placeholder career mappings.
func (s *Service) UnresolvedCareerMappings(ctx context.Context) ([]store.CareerMapping, error) {
	return s.resolver.UnresolvedCareerMappings(ctx)
}

// CreateSectorMapping registers a sector -> faculty mapping.
func (s *Service) CreateSectorMapping(ctx context.Context, sector string, facultyID int) (store.SectorMapping, error) {
	return s.resolver.CreateSectorMapping(ctx, sector, facultyID)
}

// ResolveCareerMapping binds a placeholder mapping to a local career.
func (s *Service) ResolveCareerMapping(ctx context.Context, externalCode string, careerID int) (store.CareerMapping, error) {
	return s.resolver.ResolveCareerMapping(ctx, externalCode, careerID)
}
