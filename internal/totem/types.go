// Package totem implements the exam synchronization core: row normalization,
// mapping resolution, idempotent exam upserts, enrollment lookups and
// classroom allocation. It talks to its collaborators (persistence store,
// spreadsheet row source, enrollment registrar) only through interfaces so
// every component can be exercised against in-memory substitutes.
//
// "Totem" is the university's name for the central spreadsheet that is the
// source of truth for exam scheduling.
package totem

import (
	"context"
	"time"

	"examsync/internal/store"
)

// Row is one raw spreadsheet row, keyed by header name. Transient; never
// persisted except as part of a sheet snapshot payload.
type Row map[string]string

// Spreadsheet column headers, exactly as the totem sheet publishes them.
const (
	ColSector           = "SECTOR"
	ColCareer           = "CARRERA"
	ColMode             = "MODO"
	ColAreaTopic        = "AREATEMA"
	ColSubject          = "MATERIA"
	ColShortName        = "NOMBRE CORTO"
	ColDate             = "FECHA"
	ColURL              = "URL"
	ColChair            = "CÁTEDRA"
	ColProfessor        = "Docente"
	ColTime             = "Hora"
	ColExamType         = "Tipo Examen"
	ColMonitoring       = "Monitoreo"
	ColControlledBy     = "Control a cargo de:"
	ColObservations     = "Observaciones"
	ColAllowedMaterials = "Material Permitido"
)

// ExamDraft is the typed intermediate record produced from one Row. A nil
// Date means the source text was unparseable; the orchestrator skips such
// rows. A nil Time is normal (many exams publish no hour).
type ExamDraft struct {
	SectorCode    string
	CareerCode    string
	SubjectCode   string
	AreaTopicCode string
	ShortName     string
	Date          *time.Time
	Time          *store.ClockTime

	ExamType         string
	Professor        string
	Observations     string
	MonitoringNote   string
	Mode             string
	URL              string
	Chair            string
	ControlledBy     string
	AllowedMaterials string

	// Raw keeps the source row verbatim for the provenance record.
	Raw Row
}

// Complete reports whether the draft carries every field required before
// mapping resolution is attempted. Incomplete drafts are counted as skipped,
// not as failures.
func (d ExamDraft) Complete() bool {
	return d.SectorCode != "" && d.CareerCode != "" && d.SubjectCode != "" && d.Date != nil
}

// SubjectDisplayName is the exam's subject name as persisted: the sheet's
// short name when present, otherwise a fallback derived from the subject
// code. The fallback string matches historical data, so re-syncs keep
// matching exams created before short names were published.
func (d ExamDraft) SubjectDisplayName() string {
	if d.ShortName != "" {
		return d.ShortName
	}
	return "Materia " + d.SubjectCode
}

// SheetResult is the outcome of one sheet within a sync run.
type SheetResult struct {
	SheetName         string `json:"sheetName"`
	RowsProcessed     int    `json:"rowsProcessed"`
	ExamsCreated      int    `json:"examsCreated"`
	DuplicatesAvoided int    `json:"duplicatesAvoided"`
	Skipped           int    `json:"skipped"`
	Unresolved        int    `json:"unresolved"`
	RowErrors         int    `json:"rowErrors"`
	Error             string `json:"error,omitempty"`
}

// SyncSummary aggregates a full synchronization run. Per-row and per-sheet
// failures are folded into counts here; only a total inability to reach the
// store or the row source aborts a run without a summary.
type SyncSummary struct {
	RunID             string        `json:"runId"`
	SheetsProcessed   int           `json:"sheetsProcessed"`
	RowsProcessed     int           `json:"rowsProcessed"`
	ExamsCreated      int           `json:"examsCreated"`
	DuplicatesAvoided int           `json:"duplicatesAvoided"`
	Skipped           int           `json:"skipped"`
	Unresolved        int           `json:"unresolved"`
	RowErrors         int           `json:"rowErrors"`
	// ErrorsPerSheet maps sheet name to the sheet-level error, for sheets
	// that failed outright.
	ErrorsPerSheet map[string]string `json:"errorsPerSheet,omitempty"`
	Sheets         []SheetResult     `json:"sheets"`
	Duration       time.Duration     `json:"duration"`
}

// ReconcileResult reports a duplicate-reconciliation pass.
type ReconcileResult struct {
	GroupsFound    int `json:"groupsFound"`
	RecordsDeleted int `json:"recordsDeleted"`
}

// RowSource yields raw rows per named sheet. Implemented by the Google
// Sheets CSV client; tests substitute a fixture source.
type RowSource interface {
	// SheetNames returns the sheet names available for processing. Sources
	// that cannot enumerate sheets may return an error; the orchestrator
	// then falls back to its configured list.
	SheetNames(ctx context.Context) ([]string, error)
	// Rows returns all data rows of the named sheet.
	Rows(ctx context.Context, sheetName string) ([]Row, error)
}

// EnrollmentRecord is one matched student from the external registrar.
// Transient; never persisted by this core.
type EnrollmentRecord struct {
	StudentID     string `json:"studentId"`
	DisplayName   string `json:"displayName"`
	SubjectCode   string `json:"subjectCode"`
	AreaTopicCode string `json:"areaTopicCode"`
}

// DateWindow bounds an enrollment query. To is optional.
type DateWindow struct {
	From time.Time
	To   *time.Time
}

// EnrollmentClient queries the external registrar for one subject code.
// Implementations are expected to be safe for concurrent use; the fetcher
// issues batched concurrent calls against a single client.
type EnrollmentClient interface {
	Enrollments(ctx context.Context, subjectCode string, window DateWindow) ([]EnrollmentRecord, error)
}

// EnrollmentResult is the per-code outcome of a batched fetch. The three
// caller-visible states are: failed (Err non-empty, Count forced to 0),
// confirmed zero (Err empty, Count 0) and counted. "Not yet queried" is the
// absence of a result from the map entirely.
type EnrollmentResult struct {
	SubjectCode string             `json:"subjectCode"`
	Records     []EnrollmentRecord `json:"records,omitempty"`
	Count       int                `json:"count"`
	Err         string             `json:"error,omitempty"`
}

// Failed reports whether the registrar call for this code failed. A failed
// result's count must not be read as a confirmed zero.
func (r EnrollmentResult) Failed() bool { return r.Err != "" }
