// Package memory provides an in-memory Store implementation for tests and
// local development. All operations are guarded by a single mutex, which also
// gives the assignment path its required serialization.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"examsync/internal/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	faculties      map[int]store.Faculty
	careers        map[int]store.Career
	sectorMappings map[string]store.SectorMapping // keyed by sector
	careerMappings map[string]store.CareerMapping // keyed by external code
	exams          map[int]store.Exam
	links          map[int]store.ExamSourceLink // keyed by exam ID
	classrooms     map[int]store.Classroom
	snapshots      []store.SheetSnapshot

	nextID int
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		faculties:      make(map[int]store.Faculty),
		careers:        make(map[int]store.Career),
		sectorMappings: make(map[string]store.SectorMapping),
		careerMappings: make(map[string]store.CareerMapping),
		exams:          make(map[int]store.Exam),
		links:          make(map[int]store.ExamSourceLink),
		classrooms:     make(map[int]store.Classroom),
		nextID:         1,
	}
}

func (s *Store) nextSeq() int {
	id := s.nextID
	s.nextID++
	return id
}

// Seed helpers for tests. They bypass the Store contract on purpose so tests
// can build arbitrary starting states, including pre-invariant duplicates.

// AddFaculty inserts a faculty and returns it with an assigned ID.
func (s *Store) AddFaculty(f store.Faculty) store.Faculty {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == 0 {
		f.ID = s.nextSeq()
	}
	s.faculties[f.ID] = f
	return f
}

// AddCareer inserts a career and returns it with an assigned ID.
func (s *Store) AddCareer(c store.Career) store.Career {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextSeq()
	}
	s.careers[c.ID] = c
	return c
}

// AddSectorMapping inserts a sector mapping.
func (s *Store) AddSectorMapping(m store.SectorMapping) store.SectorMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.nextSeq()
	}
	s.sectorMappings[m.Sector] = m
	return m
}

// AddCareerMapping inserts a career mapping.
func (s *Store) AddCareerMapping(m store.CareerMapping) store.CareerMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.nextSeq()
	}
	s.careerMappings[m.ExternalCode] = m
	return m
}

// AddClassroom inserts a classroom.
func (s *Store) AddClassroom(c store.Classroom) store.Classroom {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextSeq()
	}
	s.classrooms[c.ID] = c
	return c
}

// AddExamWithLink inserts an exam and its link as-is, without the identity
// check. Tests use it to construct duplicate groups for reconciliation.
func (s *Store) AddExamWithLink(e store.Exam, l store.ExamSourceLink) store.Exam {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.nextSeq()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	l.ExamID = e.ID
	s.exams[e.ID] = e
	s.links[e.ID] = l
	return e
}

func (s *Store) FacultyBySector(ctx context.Context, sector string) (store.Faculty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.sectorMappings[sector]
	if !ok || !m.Active {
		return store.Faculty{}, store.ErrNotFound
	}
	f, ok := s.faculties[m.FacultyID]
	if !ok {
		return store.Faculty{}, store.ErrNotFound
	}
	return f, nil
}

func (s *Store) CareerMappingByCode(ctx context.Context, externalCode string) (store.CareerMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.careerMappings[externalCode]
	if !ok {
		return store.CareerMapping{}, store.ErrNotFound
	}
	return m, nil
}

func (s *Store) EnsureCareerMapping(ctx context.Context, m store.CareerMapping) (store.CareerMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.careerMappings[m.ExternalCode]; ok {
		return existing, nil
	}
	m.ID = s.nextSeq()
	s.careerMappings[m.ExternalCode] = m
	return m, nil
}

func (s *Store) ResolveCareerMapping(ctx context.Context, externalCode string, careerID int) (store.CareerMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.careerMappings[externalCode]
	if !ok {
		return store.CareerMapping{}, store.ErrNotFound
	}
	if _, ok := s.careers[careerID]; !ok {
		return store.CareerMapping{}, store.ErrNotFound
	}
	m.CareerID = &careerID
	m.Resolved = true
	s.careerMappings[externalCode] = m
	return m, nil
}

func (s *Store) CreateSectorMapping(ctx context.Context, sector string, facultyID int) (store.SectorMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sectorMappings[sector]; ok {
		return existing, nil
	}
	m := store.SectorMapping{ID: s.nextSeq(), Sector: sector, FacultyID: facultyID, Active: true}
	s.sectorMappings[sector] = m
	return m, nil
}

func (s *Store) ListUnresolvedCareerMappings(ctx context.Context) ([]store.CareerMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.CareerMapping
	for _, m := range s.careerMappings {
		if !m.Resolved && m.Active {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalCode < out[j].ExternalCode })
	return out, nil
}

func (s *Store) ListMappedSectors(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.sectorMappings))
	for sector := range s.sectorMappings {
		out = append(out, sector)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CareerByID(ctx context.Context, id int) (store.Career, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.careers[id]
	if !ok {
		return store.Career{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListFaculties(ctx context.Context) ([]store.Faculty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Faculty, 0, len(s.faculties))
	for _, f := range s.faculties {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindExamByIdentity(ctx context.Context, careerID int, subjectName string, date time.Time) (store.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.exams {
		if e.CareerID == careerID && e.SubjectName == subjectName && sameDay(e.Date, date) {
			return e, nil
		}
	}
	return store.Exam{}, store.ErrNotFound
}

func (s *Store) CreateExamWithLink(ctx context.Context, exam store.Exam, link store.ExamSourceLink) (store.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam.ID = s.nextSeq()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now()
	}
	link.ExamID = exam.ID
	s.exams[exam.ID] = exam
	s.links[exam.ID] = link
	return exam, nil
}

func (s *Store) ExamByID(ctx context.Context, id int) (store.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exams[id]
	if !ok {
		return store.Exam{}, store.ErrNotFound
	}
	return e, nil
}

func (s *Store) ExamLink(ctx context.Context, examID int) (store.ExamSourceLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[examID]
	if !ok {
		return store.ExamSourceLink{}, store.ErrNotFound
	}
	return l, nil
}

func (s *Store) ListExamsWithLinks(ctx context.Context) ([]store.ExamWithLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.ExamWithLink, 0, len(s.exams))
	for id, e := range s.exams {
		l, ok := s.links[id]
		if !ok {
			continue
		}
		out = append(out, store.ExamWithLink{Exam: e, Link: l})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Exam.ID < out[j].Exam.ID })
	return out, nil
}

func (s *Store) ListUnassignedExams(ctx context.Context) ([]store.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Exam
	for _, e := range s.exams {
		if e.ClassroomID == nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteExams(ctx context.Context, ids []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.links, id)
		delete(s.exams, id)
	}
	return nil
}

func (s *Store) ClassroomByID(ctx context.Context, id int) (store.Classroom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.classrooms[id]
	if !ok {
		return store.Classroom{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListAvailableClassrooms(ctx context.Context) ([]store.Classroom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.Classroom
	for _, c := range s.classrooms {
		if c.Available {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) EnsureClassroom(ctx context.Context, c store.Classroom) (store.Classroom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.classrooms {
		if strings.EqualFold(existing.Name, c.Name) {
			return existing, nil
		}
	}
	c.ID = s.nextSeq()
	s.classrooms[c.ID] = c
	return c, nil
}

func (s *Store) OccupiedClassroomIDs(ctx context.Context, date time.Time, at *store.ClockTime) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]bool)
	for _, e := range s.exams {
		if e.ClassroomID != nil && sameDay(e.Date, date) && sameClock(e.Time, at) {
			seen[*e.ClassroomID] = true
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

func (s *Store) AssignClassroom(ctx context.Context, examID, classroomID int) (*store.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam, ok := s.exams[examID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.classrooms[classroomID]; !ok {
		return nil, store.ErrNotFound
	}

	for id, other := range s.exams {
		if id == examID || other.ClassroomID == nil || *other.ClassroomID != classroomID {
			continue
		}
		if sameDay(other.Date, exam.Date) && sameClock(other.Time, exam.Time) {
			conflict := other
			return &conflict, nil
		}
	}

	exam.ClassroomID = &classroomID
	s.exams[examID] = exam
	return nil, nil
}

func (s *Store) UnassignClassroom(ctx context.Context, examID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam, ok := s.exams[examID]
	if !ok {
		return store.ErrNotFound
	}
	exam.ClassroomID = nil
	s.exams[examID] = exam
	return nil
}

func (s *Store) SaveSheetSnapshot(ctx context.Context, sheetName string, rows []map[string]string) (store.SheetSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := store.SheetSnapshot{
		ID:        s.nextSeq(),
		SheetName: sheetName,
		Rows:      rows,
		CreatedAt: time.Now(),
	}
	s.snapshots = append(s.snapshots, snap)
	return snap, nil
}

func (s *Store) ListSnapshotSectors(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	for _, snap := range s.snapshots {
		for _, row := range snap.Rows {
			if sector := strings.TrimSpace(row["SECTOR"]); sector != "" {
				seen[sector] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for sector := range seen {
		out = append(out, sector)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	unresolved, _ := s.ListUnresolvedCareerMappings(ctx)
	mapped, _ := s.ListMappedSectors(ctx)
	seen, _ := s.ListSnapshotSectors(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	mappedSet := make(map[string]bool, len(mapped))
	for _, sector := range mapped {
		mappedSet[sector] = true
	}
	var unmapped []string
	for _, sector := range seen {
		if !mappedSet[sector] {
			unmapped = append(unmapped, sector)
		}
	}

	return store.Stats{
		Snapshots:         len(s.snapshots),
		Exams:             len(s.exams),
		UnmappedSectors:   unmapped,
		UnresolvedCareers: unresolved,
	}, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func sameClock(a, b *store.ClockTime) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Hour == b.Hour && a.Minute == b.Minute
}
