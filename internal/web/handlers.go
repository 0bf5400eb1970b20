package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"examsync/internal/logging"
	"examsync/internal/store"
)

// handleHealth answers liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSync runs a full synchronization and answers with the run summary.
// A run already in flight is rejected with 409.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())
	logger.Info("sync requested")

	summary, err := s.service.Sync(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logger.Info("sync finished",
		"run_id", summary.RunID,
		"exams_created", summary.ExamsCreated,
		"duplicates_avoided", summary.DuplicatesAvoided,
	)
	writeJSON(w, http.StatusOK, summary)
}

// handleSyncStatus reports whether a run is currently in flight.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"running": s.service.SyncRunning()})
}

// handleReconcile collapses duplicate exam groups left by earlier imports.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Reconcile(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Snapshots:         stats.Snapshots,
		Exams:             stats.Exams,
		UnmappedSectors:   stats.UnmappedSectors,
		UnresolvedCareers: careerMappings(stats.UnresolvedCareers),
	})
}

type statsResponse struct {
	Snapshots         int                     `json:"snapshots"`
	Exams             int                     `json:"exams"`
	UnmappedSectors   []string                `json:"unmappedSectors"`
	UnresolvedCareers []careerMappingResponse `json:"unresolvedCareers"`
}

// handleUnassignedExams lists exams without a classroom alongside the rooms
// currently available for assignment.
func (s *Server) handleUnassignedExams(w http.ResponseWriter, r *http.Request) {
	exams, rooms, err := s.service.UnassignedExams(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := unassignedResponse{
		Exams:      make([]examResponse, 0, len(exams)),
		Classrooms: make([]classroomResponse, 0, len(rooms)),
	}
	for _, e := range exams {
		resp.Exams = append(resp.Exams, toExamResponse(e))
	}
	for _, c := range rooms {
		resp.Classrooms = append(resp.Classrooms, toClassroomResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

type unassignedResponse struct {
	Exams      []examResponse      `json:"exams"`
	Classrooms []classroomResponse `json:"classrooms"`
}

// handleExamEnrollment queries the registrar for one exam's enrollment.
func (s *Server) handleExamEnrollment(w http.ResponseWriter, r *http.Request) {
	examID, err := urlInt(r, "examID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	enrollment, err := s.service.EnrollmentForExam(r.Context(), examID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

// handleSuggestClassroom proposes the smallest available room, free at the
// exam's slot, that fits the exam's enrollment. When the registrar cannot
// confirm enrollment the response says so instead of passing off an unsized
// suggestion as a confirmed-zero one.
func (s *Server) handleSuggestClassroom(w http.ResponseWriter, r *http.Request) {
	examID, err := urlInt(r, "examID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	sug, err := s.service.SuggestClassroom(r.Context(), examID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestionResponse{
		Classroom:             toClassroomResponse(sug.Classroom),
		RequiredSeats:         sug.RequiredSeats,
		EnrollmentUnconfirmed: sug.EnrollmentErr != "",
		EnrollmentError:       sug.EnrollmentErr,
	})
}

type suggestionResponse struct {
	Classroom             classroomResponse `json:"classroom"`
	RequiredSeats         int               `json:"requiredSeats"`
	EnrollmentUnconfirmed bool              `json:"enrollmentUnconfirmed"`
	EnrollmentError       string            `json:"enrollmentError,omitempty"`
}

type assignRequest struct {
	ClassroomID   int `json:"classroomId"`
	RequiredSeats int `json:"requiredSeats"`
}

// handleAssignClassroom assigns a classroom to an exam. A room already taken
// at the same date and time yields 409 with the conflicting exam's identity.
func (s *Server) handleAssignClassroom(w http.ResponseWriter, r *http.Request) {
	examID, err := urlInt(r, "examID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid JSON body", errBadRequest))
		return
	}
	if req.ClassroomID <= 0 {
		s.respondError(w, r, fmt.Errorf("%w: classroomId must be positive", errBadRequest))
		return
	}

	result, err := s.service.AssignClassroom(r.Context(), examID, req.ClassroomID, req.RequiredSeats)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("classroom assigned",
		"exam_id", examID,
		"classroom_id", req.ClassroomID,
		"over_capacity", result.OverCapacity,
	)

	resp := assignResponse{
		ExamID:        result.ExamID,
		Classroom:     toClassroomResponse(result.Classroom),
		OverCapacity:  result.OverCapacity,
		RequiredSeats: result.RequiredSeats,
	}
	if result.Previous != nil {
		prev := toClassroomResponse(*result.Previous)
		resp.Previous = &prev
	}
	writeJSON(w, http.StatusOK, resp)
}

type assignResponse struct {
	ExamID        int                `json:"examId"`
	Classroom     classroomResponse  `json:"classroom"`
	Previous      *classroomResponse `json:"previous,omitempty"`
	OverCapacity  bool               `json:"overCapacity"`
	RequiredSeats int                `json:"requiredSeats,omitempty"`
}

// handleUnassignClassroom clears an exam's classroom. Idempotent.
func (s *Server) handleUnassignClassroom(w http.ResponseWriter, r *http.Request) {
	examID, err := urlInt(r, "examID")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.UnassignClassroom(r.Context(), examID); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"examId": examID, "classroom": nil})
}

func (s *Server) handleUnmappedSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := s.service.UnmappedSectors(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if sectors == nil {
		sectors = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sectors": sectors})
}

type sectorMappingRequest struct {
	Sector    string `json:"sector"`
	FacultyID int    `json:"facultyId"`
}

func (s *Server) handleCreateSectorMapping(w http.ResponseWriter, r *http.Request) {
	var req sectorMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid JSON body", errBadRequest))
		return
	}
	if req.Sector == "" || req.FacultyID <= 0 {
		s.respondError(w, r, fmt.Errorf("%w: sector and facultyId are required", errBadRequest))
		return
	}

	m, err := s.service.CreateSectorMapping(r.Context(), req.Sector, req.FacultyID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        m.ID,
		"sector":    m.Sector,
		"facultyId": m.FacultyID,
	})
}

func (s *Server) handleUnresolvedCareers(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.service.UnresolvedCareerMappings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]careerMappingResponse{
		"careers": careerMappings(mappings),
	})
}

type resolveCareerRequest struct {
	CareerID int `json:"careerId"`
}

// handleResolveCareer points a placeholder career mapping at a local career.
func (s *Server) handleResolveCareer(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req resolveCareerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid JSON body", errBadRequest))
		return
	}
	if req.CareerID <= 0 {
		s.respondError(w, r, fmt.Errorf("%w: careerId must be positive", errBadRequest))
		return
	}

	m, err := s.service.ResolveCareerMapping(r.Context(), code, req.CareerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("career mapping resolved",
		"external_code", code,
		"career_id", req.CareerID,
	)
	writeJSON(w, http.StatusOK, toCareerMappingResponse(m))
}

// --- response shapes ---

type examResponse struct {
	ID               int     `json:"id"`
	CareerID         int     `json:"careerId"`
	ClassroomID      *int    `json:"classroomId"`
	SubjectName      string  `json:"subjectName"`
	Date             string  `json:"date"`
	Time             *string `json:"time"`
	ExamType         string  `json:"examType,omitempty"`
	AllowedMaterials string  `json:"allowedMaterials,omitempty"`
	Observations     string  `json:"observations,omitempty"`
}

func toExamResponse(e store.Exam) examResponse {
	resp := examResponse{
		ID:               e.ID,
		CareerID:         e.CareerID,
		ClassroomID:      e.ClassroomID,
		SubjectName:      e.SubjectName,
		Date:             e.Date.Format(time.DateOnly),
		ExamType:         e.ExamType,
		AllowedMaterials: e.AllowedMaterials,
		Observations:     e.Observations,
	}
	if e.Time != nil {
		t := e.Time.String()
		resp.Time = &t
	}
	return resp
}

type classroomResponse struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Location string `json:"location,omitempty"`
}

func toClassroomResponse(c store.Classroom) classroomResponse {
	return classroomResponse{ID: c.ID, Name: c.Name, Capacity: c.Capacity, Location: c.Location}
}

type careerMappingResponse struct {
	ID           int    `json:"id"`
	ExternalCode string `json:"externalCode"`
	CareerID     *int   `json:"careerId"`
	DisplayName  string `json:"displayName"`
	Resolved     bool   `json:"resolved"`
}

func toCareerMappingResponse(m store.CareerMapping) careerMappingResponse {
	return careerMappingResponse{
		ID:           m.ID,
		ExternalCode: m.ExternalCode,
		CareerID:     m.CareerID,
		DisplayName:  m.DisplayName,
		Resolved:     m.Resolved,
	}
}

func careerMappings(in []store.CareerMapping) []careerMappingResponse {
	out := make([]careerMappingResponse, 0, len(in))
	for _, m := range in {
		out = append(out, toCareerMappingResponse(m))
	}
	return out
}

// urlInt parses a positive integer URL parameter.
func urlInt(r *http.Request, key string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, key)
	}
	return v, nil
}
