// Package postgres implements store.Store on a pgx connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"examsync/internal/store"
)

// Store is the PostgreSQL-backed persistence layer.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store on the given pool. The caller owns the pool lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// InitSchema creates all tables and indexes if they do not exist yet.
// Safe to run on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS faculties (
			id     SERIAL PRIMARY KEY,
			name   TEXT NOT NULL UNIQUE,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS careers (
			id         SERIAL PRIMARY KEY,
			faculty_id INTEGER NOT NULL REFERENCES faculties(id),
			code       TEXT NOT NULL,
			name       TEXT NOT NULL,
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			UNIQUE (faculty_id, code)
		)`,
		`CREATE TABLE IF NOT EXISTS sector_mappings (
			id         SERIAL PRIMARY KEY,
			sector     TEXT NOT NULL UNIQUE,
			faculty_id INTEGER NOT NULL REFERENCES faculties(id),
			active     BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS career_mappings (
			id            SERIAL PRIMARY KEY,
			external_code TEXT NOT NULL UNIQUE,
			career_id     INTEGER REFERENCES careers(id),
			display_name  TEXT NOT NULL DEFAULT '',
			resolved      BOOLEAN NOT NULL DEFAULT FALSE,
			active        BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS classrooms (
			id        SERIAL PRIMARY KEY,
			name      TEXT NOT NULL UNIQUE,
			capacity  INTEGER NOT NULL DEFAULT 0,
			location  TEXT NOT NULL DEFAULT '',
			available BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS exams (
			id                SERIAL PRIMARY KEY,
			career_id         INTEGER NOT NULL REFERENCES careers(id),
			classroom_id      INTEGER REFERENCES classrooms(id),
			subject_name      TEXT NOT NULL,
			exam_date         DATE NOT NULL,
			exam_hour         INTEGER,
			exam_minute       INTEGER,
			exam_type         TEXT NOT NULL DEFAULT '',
			allowed_materials TEXT NOT NULL DEFAULT '',
			observations      TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exams_identity
			ON exams (career_id, subject_name, exam_date)`,
		`CREATE INDEX IF NOT EXISTS idx_exams_classroom
			ON exams (classroom_id, exam_date)`,
		`CREATE TABLE IF NOT EXISTS exam_source_links (
			exam_id              INTEGER PRIMARY KEY REFERENCES exams(id) ON DELETE CASCADE,
			sector_code          TEXT NOT NULL DEFAULT '',
			external_career_code TEXT NOT NULL DEFAULT '',
			subject_code         TEXT NOT NULL DEFAULT '',
			area_topic_code      TEXT NOT NULL DEFAULT '',
			raw_payload          JSONB NOT NULL DEFAULT '{}'::jsonb
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_snapshots (
			id         SERIAL PRIMARY KEY,
			sheet_name TEXT NOT NULL,
			rows       JSONB NOT NULL DEFAULT '[]'::jsonb,
			processed  BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// --- Mapping resolution ---

func (s *Store) FacultyBySector(ctx context.Context, sector string) (store.Faculty, error) {
	var f store.Faculty
	err := s.pool.QueryRow(ctx, `
		SELECT f.id, f.name, f.active
		FROM sector_mappings sm
		JOIN faculties f ON f.id = sm.faculty_id
		WHERE sm.sector = $1 AND sm.active AND f.active`,
		sector).Scan(&f.ID, &f.Name, &f.Active)
	if err != nil {
		return store.Faculty{}, fmt.Errorf("faculty by sector %q: %w", sector, notFound(err))
	}
	return f, nil
}

func (s *Store) CareerMappingByCode(ctx context.Context, externalCode string) (store.CareerMapping, error) {
	m, err := scanCareerMapping(s.pool.QueryRow(ctx, `
		SELECT id, external_code, career_id, display_name, resolved, active
		FROM career_mappings
		WHERE external_code = $1`,
		externalCode))
	if err != nil {
		return store.CareerMapping{}, fmt.Errorf("career mapping %q: %w", externalCode, notFound(err))
	}
	return m, nil
}

func (s *Store) EnsureCareerMapping(ctx context.Context, m store.CareerMapping) (store.CareerMapping, error) {
	// DO NOTHING keeps a concurrent or earlier row untouched; the follow-up
	// select returns whichever row won.
	_, err := s.pool.Exec(ctx, `
		INSERT INTO career_mappings (external_code, career_id, display_name, resolved, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_code) DO NOTHING`,
		m.ExternalCode, m.CareerID, m.DisplayName, m.Resolved, m.Active)
	if err != nil {
		return store.CareerMapping{}, fmt.Errorf("ensure career mapping %q: %w", m.ExternalCode, err)
	}
	return s.CareerMappingByCode(ctx, m.ExternalCode)
}

func (s *Store) ResolveCareerMapping(ctx context.Context, externalCode string, careerID int) (store.CareerMapping, error) {
	m, err := scanCareerMapping(s.pool.QueryRow(ctx, `
		UPDATE career_mappings
		SET career_id = $2, resolved = TRUE
		WHERE external_code = $1
		RETURNING id, external_code, career_id, display_name, resolved, active`,
		externalCode, careerID))
	if err != nil {
		return store.CareerMapping{}, fmt.Errorf("resolve career mapping %q: %w", externalCode, notFound(err))
	}
	return m, nil
}

func (s *Store) CreateSectorMapping(ctx context.Context, sector string, facultyID int) (store.SectorMapping, error) {
	var m store.SectorMapping
	err := s.pool.QueryRow(ctx, `
		INSERT INTO sector_mappings (sector, faculty_id, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (sector) DO UPDATE SET faculty_id = EXCLUDED.faculty_id, active = TRUE
		RETURNING id, sector, faculty_id, active`,
		sector, facultyID).Scan(&m.ID, &m.Sector, &m.FacultyID, &m.Active)
	if err != nil {
		return store.SectorMapping{}, fmt.Errorf("create sector mapping %q: %w", sector, err)
	}
	return m, nil
}

func (s *Store) ListUnresolvedCareerMappings(ctx context.Context) ([]store.CareerMapping, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, external_code, career_id, display_name, resolved, active
		FROM career_mappings
		WHERE NOT resolved AND active
		ORDER BY external_code`)
	if err != nil {
		return nil, fmt.Errorf("list unresolved career mappings: %w", err)
	}
	defer rows.Close()

	var out []store.CareerMapping
	for rows.Next() {
		m, err := scanCareerMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan career mapping: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) ListMappedSectors(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sector FROM sector_mappings WHERE active ORDER BY sector`)
	if err != nil {
		return nil, fmt.Errorf("list mapped sectors: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// --- Reference data ---

func (s *Store) CareerByID(ctx context.Context, id int) (store.Career, error) {
	var c store.Career
	err := s.pool.QueryRow(ctx, `
		SELECT id, faculty_id, code, name, active
		FROM careers WHERE id = $1`,
		id).Scan(&c.ID, &c.FacultyID, &c.Code, &c.Name, &c.Active)
	if err != nil {
		return store.Career{}, fmt.Errorf("career %d: %w", id, notFound(err))
	}
	return c, nil
}

func (s *Store) ListFaculties(ctx context.Context) ([]store.Faculty, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, active FROM faculties ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list faculties: %w", err)
	}
	defer rows.Close()

	var out []store.Faculty
	for rows.Next() {
		var f store.Faculty
		if err := rows.Scan(&f.ID, &f.Name, &f.Active); err != nil {
			return nil, fmt.Errorf("scan faculty: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- Exams ---

const examColumns = `id, career_id, classroom_id, subject_name, exam_date,
	exam_hour, exam_minute, exam_type, allowed_materials, observations, created_at`

func (s *Store) FindExamByIdentity(ctx context.Context, careerID int, subjectName string, date time.Time) (store.Exam, error) {
	e, err := scanExam(s.pool.QueryRow(ctx, `
		SELECT `+examColumns+`
		FROM exams
		WHERE career_id = $1 AND subject_name = $2 AND exam_date = $3::date
		ORDER BY created_at, id
		LIMIT 1`,
		careerID, subjectName, date))
	if err != nil {
		return store.Exam{}, fmt.Errorf("find exam: %w", notFound(err))
	}
	return e, nil
}

func (s *Store) CreateExamWithLink(ctx context.Context, exam store.Exam, link store.ExamSourceLink) (store.Exam, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return store.Exam{}, fmt.Errorf("create exam: begin: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	var hour, minute *int
	if exam.Time != nil {
		hour, minute = &exam.Time.Hour, &exam.Time.Minute
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO exams (career_id, classroom_id, subject_name, exam_date,
			exam_hour, exam_minute, exam_type, allowed_materials, observations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		exam.CareerID, exam.ClassroomID, exam.SubjectName, exam.Date,
		hour, minute, exam.ExamType, exam.AllowedMaterials, exam.Observations).
		Scan(&exam.ID, &exam.CreatedAt)
	if err != nil {
		return store.Exam{}, fmt.Errorf("create exam: insert: %w", err)
	}

	payload, err := json.Marshal(link.RawPayload)
	if err != nil {
		return store.Exam{}, fmt.Errorf("create exam: encode payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO exam_source_links (exam_id, sector_code, external_career_code,
			subject_code, area_topic_code, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		exam.ID, link.SectorCode, link.ExternalCareerCode,
		link.SubjectCode, link.AreaTopicCode, payload)
	if err != nil {
		return store.Exam{}, fmt.Errorf("create exam: insert link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return store.Exam{}, fmt.Errorf("create exam: commit: %w", err)
	}
	return exam, nil
}

func (s *Store) ExamByID(ctx context.Context, id int) (store.Exam, error) {
	e, err := scanExam(s.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if err != nil {
		return store.Exam{}, fmt.Errorf("exam %d: %w", id, notFound(err))
	}
	return e, nil
}

func (s *Store) ExamLink(ctx context.Context, examID int) (store.ExamSourceLink, error) {
	var (
		l       store.ExamSourceLink
		payload []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT exam_id, sector_code, external_career_code, subject_code, area_topic_code, raw_payload
		FROM exam_source_links WHERE exam_id = $1`,
		examID).Scan(&l.ExamID, &l.SectorCode, &l.ExternalCareerCode, &l.SubjectCode, &l.AreaTopicCode, &payload)
	if err != nil {
		return store.ExamSourceLink{}, fmt.Errorf("exam link %d: %w", examID, notFound(err))
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &l.RawPayload); err != nil {
			return store.ExamSourceLink{}, fmt.Errorf("exam link %d: decode payload: %w", examID, err)
		}
	}
	return l, nil
}

func (s *Store) ListExamsWithLinks(ctx context.Context) ([]store.ExamWithLink, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.career_id, e.classroom_id, e.subject_name, e.exam_date,
			e.exam_hour, e.exam_minute, e.exam_type, e.allowed_materials, e.observations, e.created_at,
			l.sector_code, l.external_career_code, l.subject_code, l.area_topic_code
		FROM exams e
		JOIN exam_source_links l ON l.exam_id = e.id
		ORDER BY e.created_at, e.id`)
	if err != nil {
		return nil, fmt.Errorf("list exams with links: %w", err)
	}
	defer rows.Close()

	var out []store.ExamWithLink
	for rows.Next() {
		var (
			e            store.Exam
			l            store.ExamSourceLink
			hour, minute *int
		)
		err := rows.Scan(&e.ID, &e.CareerID, &e.ClassroomID, &e.SubjectName, &e.Date,
			&hour, &minute, &e.ExamType, &e.AllowedMaterials, &e.Observations, &e.CreatedAt,
			&l.SectorCode, &l.ExternalCareerCode, &l.SubjectCode, &l.AreaTopicCode)
		if err != nil {
			return nil, fmt.Errorf("scan exam with link: %w", err)
		}
		e.Time = clockTime(hour, minute)
		l.ExamID = e.ID
		out = append(out, store.ExamWithLink{Exam: e, Link: l})
	}
	return out, rows.Err()
}

func (s *Store) ListUnassignedExams(ctx context.Context) ([]store.Exam, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+examColumns+`
		FROM exams
		WHERE classroom_id IS NULL
		ORDER BY exam_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list unassigned exams: %w", err)
	}
	defer rows.Close()

	var out []store.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteExams(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	// Links go with the exams via ON DELETE CASCADE.
	_, err := s.pool.Exec(ctx, `DELETE FROM exams WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("delete exams: %w", err)
	}
	return nil
}

// --- Classrooms ---

func (s *Store) ClassroomByID(ctx context.Context, id int) (store.Classroom, error) {
	var c store.Classroom
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, capacity, location, available
		FROM classrooms WHERE id = $1`,
		id).Scan(&c.ID, &c.Name, &c.Capacity, &c.Location, &c.Available)
	if err != nil {
		return store.Classroom{}, fmt.Errorf("classroom %d: %w", id, notFound(err))
	}
	return c, nil
}

func (s *Store) ListAvailableClassrooms(ctx context.Context) ([]store.Classroom, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, capacity, location, available
		FROM classrooms
		WHERE available
		ORDER BY capacity, id`)
	if err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	defer rows.Close()

	var out []store.Classroom
	for rows.Next() {
		var c store.Classroom
		if err := rows.Scan(&c.ID, &c.Name, &c.Capacity, &c.Location, &c.Available); err != nil {
			return nil, fmt.Errorf("scan classroom: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) EnsureClassroom(ctx context.Context, c store.Classroom) (store.Classroom, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO classrooms (name, capacity, location, available)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING`,
		c.Name, c.Capacity, c.Location, c.Available)
	if err != nil {
		return store.Classroom{}, fmt.Errorf("ensure classroom %q: %w", c.Name, err)
	}

	var stored store.Classroom
	err = s.pool.QueryRow(ctx, `
		SELECT id, name, capacity, location, available
		FROM classrooms WHERE name = $1`,
		c.Name).Scan(&stored.ID, &stored.Name, &stored.Capacity, &stored.Location, &stored.Available)
	if err != nil {
		return store.Classroom{}, fmt.Errorf("ensure classroom %q: %w", c.Name, notFound(err))
	}
	return stored, nil
}

func (s *Store) OccupiedClassroomIDs(ctx context.Context, date time.Time, at *store.ClockTime) ([]int, error) {
	var hour, minute *int
	if at != nil {
		hour, minute = &at.Hour, &at.Minute
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT classroom_id
		FROM exams
		WHERE classroom_id IS NOT NULL
			AND exam_date = $1::date
			AND exam_hour IS NOT DISTINCT FROM $2
			AND exam_minute IS NOT DISTINCT FROM $3
		ORDER BY classroom_id`,
		date, hour, minute)
	if err != nil {
		return nil, fmt.Errorf("occupied classrooms: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan classroom id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) AssignClassroom(ctx context.Context, examID, classroomID int) (*store.Exam, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("assign classroom: begin: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	// Lock the target exam so two assignments of the same exam serialize.
	target, err := scanExam(tx.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1 FOR UPDATE`, examID))
	if err != nil {
		return nil, fmt.Errorf("assign classroom: exam %d: %w", examID, notFound(err))
	}

	// Lock the classroom row next. Concurrent assignments of different exams
	// lock distinct exam rows, so without this all writers for the same room
	// would pass the conflict check below before either commit is visible.
	var lockedRoom int
	err = tx.QueryRow(ctx,
		`SELECT id FROM classrooms WHERE id = $1 FOR UPDATE`, classroomID).Scan(&lockedRoom)
	if err != nil {
		return nil, fmt.Errorf("assign classroom: classroom %d: %w", classroomID, notFound(err))
	}

	var hour, minute *int
	if target.Time != nil {
		hour, minute = &target.Time.Hour, &target.Time.Minute
	}

	// Another exam in the same room, same date and same time blocks the
	// assignment. IS NOT DISTINCT FROM keeps the null (no time) case honest.
	conflict, err := scanExam(tx.QueryRow(ctx, `
		SELECT `+examColumns+`
		FROM exams
		WHERE classroom_id = $1
			AND exam_date = $2::date
			AND exam_hour IS NOT DISTINCT FROM $3
			AND exam_minute IS NOT DISTINCT FROM $4
			AND id <> $5
		ORDER BY id
		LIMIT 1
		FOR UPDATE`,
		classroomID, target.Date, hour, minute, examID))
	if err == nil {
		return &conflict, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("assign classroom: conflict check: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE exams SET classroom_id = $2 WHERE id = $1`, examID, classroomID); err != nil {
		return nil, fmt.Errorf("assign classroom: update: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("assign classroom: commit: %w", err)
	}
	return nil, nil
}

func (s *Store) UnassignClassroom(ctx context.Context, examID int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE exams SET classroom_id = NULL WHERE id = $1`, examID)
	if err != nil {
		return fmt.Errorf("unassign classroom: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("unassign classroom: exam %d: %w", examID, store.ErrNotFound)
	}
	return nil
}

// --- Sheet snapshots ---

func (s *Store) SaveSheetSnapshot(ctx context.Context, sheetName string, rows []map[string]string) (store.SheetSnapshot, error) {
	payload, err := json.Marshal(rows)
	if err != nil {
		return store.SheetSnapshot{}, fmt.Errorf("save snapshot %q: encode rows: %w", sheetName, err)
	}

	snap := store.SheetSnapshot{SheetName: sheetName, Rows: rows, Processed: true}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO sheet_snapshots (sheet_name, rows, processed)
		VALUES ($1, $2, TRUE)
		RETURNING id, created_at`,
		sheetName, payload).Scan(&snap.ID, &snap.CreatedAt)
	if err != nil {
		return store.SheetSnapshot{}, fmt.Errorf("save snapshot %q: %w", sheetName, err)
	}
	return snap, nil
}

func (s *Store) ListSnapshotSectors(ctx context.Context) ([]string, error) {
	// 'SECTOR' is the sheet's header for the sector column; snapshot rows are
	// stored keyed by header.
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT r->>'SECTOR'
		FROM sheet_snapshots, jsonb_array_elements(rows) AS r
		WHERE COALESCE(r->>'SECTOR', '') <> ''
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list snapshot sectors: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var st store.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM sheet_snapshots),
			(SELECT count(*) FROM exams)`).
		Scan(&st.Snapshots, &st.Exams)
	if err != nil {
		return store.Stats{}, fmt.Errorf("stats: %w", err)
	}

	seen, err := s.ListSnapshotSectors(ctx)
	if err != nil {
		return store.Stats{}, err
	}
	mapped, err := s.ListMappedSectors(ctx)
	if err != nil {
		return store.Stats{}, err
	}
	mappedSet := make(map[string]bool, len(mapped))
	for _, sec := range mapped {
		mappedSet[sec] = true
	}
	for _, sec := range seen {
		if !mappedSet[sec] {
			st.UnmappedSectors = append(st.UnmappedSectors, sec)
		}
	}

	st.UnresolvedCareers, err = s.ListUnresolvedCareerMappings(ctx)
	if err != nil {
		return store.Stats{}, err
	}
	return st, nil
}

// --- scan helpers ---

func scanCareerMapping(row pgx.Row) (store.CareerMapping, error) {
	var m store.CareerMapping
	err := row.Scan(&m.ID, &m.ExternalCode, &m.CareerID, &m.DisplayName, &m.Resolved, &m.Active)
	return m, err
}

func scanExam(row pgx.Row) (store.Exam, error) {
	var (
		e            store.Exam
		hour, minute *int
	)
	err := row.Scan(&e.ID, &e.CareerID, &e.ClassroomID, &e.SubjectName, &e.Date,
		&hour, &minute, &e.ExamType, &e.AllowedMaterials, &e.Observations, &e.CreatedAt)
	if err != nil {
		return store.Exam{}, err
	}
	e.Time = clockTime(hour, minute)
	return e, nil
}

func clockTime(hour, minute *int) *store.ClockTime {
	if hour == nil || minute == nil {
		return nil
	}
	return &store.ClockTime{Hour: *hour, Minute: *minute}
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
