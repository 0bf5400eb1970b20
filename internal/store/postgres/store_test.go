package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"examsync/internal/store"
)

// testStore connects to the database named by TEST_DATABASE_URL; tests that
// need a live server are skipped when it is unset.
func testStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	st := New(pool)
	if err := st.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	return st
}

// seedAssignmentFixture creates a faculty, a career, a classroom and n exams
// sharing one (date, time) slot. Names are unique per call so test runs do
// not collide; everything is removed on cleanup.
func seedAssignmentFixture(t *testing.T, st *Store, n int) (roomID int, examIDs []int) {
	t.Helper()
	ctx := context.Background()
	tag := fmt.Sprintf("t%d", time.Now().UnixNano())

	var facultyID int
	err := st.pool.QueryRow(ctx,
		`INSERT INTO faculties (name) VALUES ($1) RETURNING id`,
		"Facultad "+tag).Scan(&facultyID)
	if err != nil {
		t.Fatalf("seed faculty: %v", err)
	}

	var careerID int
	err = st.pool.QueryRow(ctx,
		`INSERT INTO careers (faculty_id, code, name) VALUES ($1, $2, $3) RETURNING id`,
		facultyID, tag, "Carrera "+tag).Scan(&careerID)
	if err != nil {
		t.Fatalf("seed career: %v", err)
	}

	room, err := st.EnsureClassroom(ctx, store.Classroom{
		Name: "Aula " + tag, Capacity: 100, Available: true,
	})
	if err != nil {
		t.Fatalf("seed classroom: %v", err)
	}

	date := time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC)
	clock := &store.ClockTime{Hour: 18, Minute: 0}
	for i := 0; i < n; i++ {
		exam, err := st.CreateExamWithLink(ctx, store.Exam{
			CareerID:    careerID,
			SubjectName: fmt.Sprintf("Materia %s-%d", tag, i),
			Date:        date,
			Time:        clock,
		}, store.ExamSourceLink{SubjectCode: fmt.Sprintf("%s-%d", tag, i)})
		if err != nil {
			t.Fatalf("seed exam %d: %v", i, err)
		}
		examIDs = append(examIDs, exam.ID)
	}

	t.Cleanup(func() {
		st.DeleteExams(ctx, examIDs)
		st.pool.Exec(ctx, `DELETE FROM classrooms WHERE id = $1`, room.ID)
		st.pool.Exec(ctx, `DELETE FROM careers WHERE id = $1`, careerID)
		st.pool.Exec(ctx, `DELETE FROM faculties WHERE id = $1`, facultyID)
	})
	return room.ID, examIDs
}

func TestAssignClassroomDetectsConflict(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	roomID, examIDs := seedAssignmentFixture(t, st, 2)

	conflict, err := st.AssignClassroom(ctx, examIDs[0], roomID)
	if err != nil {
		t.Fatalf("first AssignClassroom() error = %v", err)
	}
	if conflict != nil {
		t.Fatalf("first AssignClassroom() conflict = exam %d, want none", conflict.ID)
	}

	conflict, err = st.AssignClassroom(ctx, examIDs[1], roomID)
	if err != nil {
		t.Fatalf("second AssignClassroom() error = %v", err)
	}
	if conflict == nil {
		t.Fatal("second AssignClassroom() conflict = nil, want the first exam")
	}
	if conflict.ID != examIDs[0] {
		t.Errorf("conflicting exam = %d, want %d", conflict.ID, examIDs[0])
	}
}

// Two concurrent assignments of different exams to the same room and slot
// must not both commit: the classroom-row lock forces one transaction to
// wait and then see the other's write in its conflict check.
func TestAssignClassroomSerializesPerRoom(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	const attempts = 10
	for i := 0; i < attempts; i++ {
		roomID, examIDs := seedAssignmentFixture(t, st, 2)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for _, examID := range examIDs {
			wg.Add(1)
			go func(examID int) {
				defer wg.Done()
				conflict, err := st.AssignClassroom(ctx, examID, roomID)
				if err != nil {
					t.Errorf("AssignClassroom(%d) error = %v", examID, err)
					return
				}
				if conflict == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}(examID)
		}
		wg.Wait()

		if succeeded != 1 {
			t.Fatalf("attempt %d: %d assignments committed, want exactly 1", i, succeeded)
		}

		var booked int
		err := st.pool.QueryRow(ctx,
			`SELECT count(*) FROM exams WHERE classroom_id = $1`, roomID).Scan(&booked)
		if err != nil {
			t.Fatalf("count booked exams: %v", err)
		}
		if booked != 1 {
			t.Fatalf("attempt %d: %d exams hold the room, want exactly 1", i, booked)
		}
	}
}

func TestUnassignClassroomUnknownExam(t *testing.T) {
	st := testStore(t)
	if err := st.UnassignClassroom(context.Background(), -1); err == nil {
		t.Fatal("UnassignClassroom(-1) error = nil, want ErrNotFound")
	}
}
