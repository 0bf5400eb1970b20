// Package store defines the persistence entities and the Store contract used
// by the synchronization core. Implementations live in the postgres and
// memory subpackages; the core only ever sees this interface, so tests can
// substitute the in-memory store.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by lookups when no row matches. Callers that treat
// absence as a normal outcome (mapping resolution in particular) must check
// for it with errors.Is rather than failing the run.
var ErrNotFound = errors.New("not found")

// ClockTime is a time of day without a date component, as parsed from the
// spreadsheet's H:MM column.
type ClockTime struct {
	Hour   int
	Minute int
}

// String formats the time as HH:MM.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Faculty is created by administrative setup and read-only from the sync
// core's perspective.
type Faculty struct {
	ID     int
	Name   string
	Active bool
}

// Career is a degree program owned by a Faculty.
type Career struct {
	ID        int
	FacultyID int
	Code      string
	Name      string
	Active    bool
}

// SectorMapping links a spreadsheet sector code to a local faculty.
// Sector is a natural key; the sync core never creates sectors.
type SectorMapping struct {
	ID        int
	Sector    string
	FacultyID int
	Active    bool
}

// CareerMapping links the spreadsheet's career code to a local career.
// Unresolved mappings (Resolved=false, CareerID=nil) are placeholders created
// during sync so unknown codes stay visible for manual resolution.
type CareerMapping struct {
	ID           int
	ExternalCode string
	CareerID     *int
	DisplayName  string
	Resolved     bool
	Active       bool
}

// Exam is one scheduled exam session. ClassroomID is a weak reference set by
// the allocator; Time is nil when the source row had no parseable hour.
type Exam struct {
	ID               int
	CareerID         int
	ClassroomID      *int
	SubjectName      string
	Date             time.Time
	Time             *ClockTime
	ExamType         string
	AllowedMaterials string
	Observations     string
	CreatedAt        time.Time
}

// ExamSourceLink captures the spreadsheet provenance of an exam, one-to-one.
// RawPayload holds the original row verbatim for debugging.
type ExamSourceLink struct {
	ExamID             int
	SectorCode         string
	ExternalCareerCode string
	SubjectCode        string
	AreaTopicCode      string
	RawPayload         map[string]string
}

// ExamWithLink pairs an exam with its provenance record, as needed by the
// duplicate reconciliation pass.
type ExamWithLink struct {
	Exam Exam
	Link ExamSourceLink
}

// Classroom is independently managed; the core reads capacity/availability
// and writes the exam link only.
type Classroom struct {
	ID        int
	Name      string
	Capacity  int
	Location  string
	Available bool
}

// SheetSnapshot is the raw payload of one synced sheet, kept for debugging
// and for the unmapped-sector report.
type SheetSnapshot struct {
	ID        int
	SheetName string
	Rows      []map[string]string
	Processed bool
	CreatedAt time.Time
}

// Stats aggregates counts for the statistics endpoint and the admin CLI.
type Stats struct {
	Snapshots         int
	Exams             int
	UnmappedSectors   []string
	UnresolvedCareers []CareerMapping
}

// Store is the persistence contract for the sync core. Every method takes a
// context and returns ErrNotFound (possibly wrapped) for missing rows.
//
// Multi-row operations (CreateExamWithLink, DeleteExams, AssignClassroom) are
// atomic: implementations must commit all of their writes or none.
type Store interface {
	// Mapping resolution.
	FacultyBySector(ctx context.Context, sector string) (Faculty, error)
	CareerMappingByCode(ctx context.Context, externalCode string) (CareerMapping, error)
	// EnsureCareerMapping creates the mapping if no row exists for its
	// external code and returns the stored row either way. It never
	// overwrites an existing mapping.
	EnsureCareerMapping(ctx context.Context, m CareerMapping) (CareerMapping, error)
	// ResolveCareerMapping sets CareerID and marks the mapping resolved.
	ResolveCareerMapping(ctx context.Context, externalCode string, careerID int) (CareerMapping, error)
	CreateSectorMapping(ctx context.Context, sector string, facultyID int) (SectorMapping, error)
	ListUnresolvedCareerMappings(ctx context.Context) ([]CareerMapping, error)
	ListMappedSectors(ctx context.Context) ([]string, error)

	// Reference data.
	CareerByID(ctx context.Context, id int) (Career, error)
	ListFaculties(ctx context.Context) ([]Faculty, error)

	// Exams.
	FindExamByIdentity(ctx context.Context, careerID int, subjectName string, date time.Time) (Exam, error)
	CreateExamWithLink(ctx context.Context, exam Exam, link ExamSourceLink) (Exam, error)
	ExamByID(ctx context.Context, id int) (Exam, error)
	ExamLink(ctx context.Context, examID int) (ExamSourceLink, error)
	ListExamsWithLinks(ctx context.Context) ([]ExamWithLink, error)
	ListUnassignedExams(ctx context.Context) ([]Exam, error)
	DeleteExams(ctx context.Context, ids []int) error

	// Classrooms.
	ClassroomByID(ctx context.Context, id int) (Classroom, error)
	ListAvailableClassrooms(ctx context.Context) ([]Classroom, error)
	EnsureClassroom(ctx context.Context, c Classroom) (Classroom, error)
	// OccupiedClassroomIDs lists the classrooms already holding an exam at
	// the given date and time. A nil clock matches only exams with no time.
	OccupiedClassroomIDs(ctx context.Context, date time.Time, at *ClockTime) ([]int, error)
	// AssignClassroom atomically re-checks for another exam holding the same
	// classroom at the same date and time and, if none exists, points the
	// exam at the classroom. A non-nil conflict means the assignment was
	// rejected and nothing was written.
	AssignClassroom(ctx context.Context, examID, classroomID int) (conflict *Exam, err error)
	// UnassignClassroom clears the exam's classroom reference. Clearing an
	// exam with no classroom is a no-op, not an error.
	UnassignClassroom(ctx context.Context, examID int) error

	// Sheet snapshots.
	SaveSheetSnapshot(ctx context.Context, sheetName string, rows []map[string]string) (SheetSnapshot, error)
	ListSnapshotSectors(ctx context.Context) ([]string, error)

	Stats(ctx context.Context) (Stats, error)
}
