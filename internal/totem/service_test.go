package totem

import (
	"context"
	"fmt"
	"testing"
	"time"

	"examsync/internal/store"
	"examsync/internal/store/memory"
)

func newSuggestService(st *memory.Store, reg EnrollmentClient) *Service {
	source := &fakeSource{sheets: map[string][]Row{}}
	return NewService(st, source, reg, ServiceOptions{BatchPause: time.Millisecond})
}

func TestSuggestClassroomSizedByEnrollment(t *testing.T) {
	st := memory.New()
	st.AddClassroom(store.Classroom{Name: "Aula 101", Capacity: 30, Available: true})
	big := st.AddClassroom(store.Classroom{Name: "Aula Magna", Capacity: 200, Available: true})
	exam := st.AddExamWithLink(
		store.Exam{CareerID: 1, SubjectName: "Derecho Romano", Date: time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)},
		store.ExamSourceLink{SubjectCode: "10037"},
	)

	reg := newFakeRegistrar()
	for i := 0; i < 45; i++ {
		reg.records["10037"] = append(reg.records["10037"],
			student(fmt.Sprintf("30%07d", i), "ALUMNO", "10037", ""))
	}

	svc := newSuggestService(st, reg)
	sug, err := svc.SuggestClassroom(context.Background(), exam.ID)
	if err != nil {
		t.Fatalf("SuggestClassroom() error = %v", err)
	}
	if sug.EnrollmentErr != "" {
		t.Errorf("EnrollmentErr = %q, want confirmed sizing", sug.EnrollmentErr)
	}
	if sug.RequiredSeats != 45 {
		t.Errorf("RequiredSeats = %d, want 45", sug.RequiredSeats)
	}
	// 45 students do not fit the 30-seat room.
	if sug.Classroom.ID != big.ID {
		t.Errorf("suggested room = %q, want %q", sug.Classroom.Name, big.Name)
	}
}

func TestSuggestClassroomUnconfirmedEnrollment(t *testing.T) {
	st := memory.New()
	room := st.AddClassroom(store.Classroom{Name: "Aula 101", Capacity: 30, Available: true})
	exam := st.AddExamWithLink(
		store.Exam{CareerID: 1, SubjectName: "Derecho Romano", Date: time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)},
		store.ExamSourceLink{SubjectCode: "10037"},
	)

	reg := newFakeRegistrar()
	reg.failing["10037"] = true

	svc := newSuggestService(st, reg)
	sug, err := svc.SuggestClassroom(context.Background(), exam.ID)
	if err != nil {
		t.Fatalf("SuggestClassroom() error = %v", err)
	}

	// A registrar failure must be visible: an unsized suggestion is not the
	// same thing as a confirmed-zero enrollment.
	if sug.EnrollmentErr == "" {
		t.Error("EnrollmentErr is empty, want failure marker")
	}
	if sug.RequiredSeats != 0 {
		t.Errorf("RequiredSeats = %d, want 0 (unsized)", sug.RequiredSeats)
	}
	if sug.Classroom.ID != room.ID {
		t.Errorf("suggested room = %q, want fallback %q", sug.Classroom.Name, room.Name)
	}
}

func TestSuggestClassroomSkipsBookedRoom(t *testing.T) {
	st := memory.New()
	small := st.AddClassroom(store.Classroom{Name: "Aula 101", Capacity: 30, Available: true})
	medium := st.AddClassroom(store.Classroom{Name: "Aula 205", Capacity: 60, Available: true})
	date := time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)
	clock := &store.ClockTime{Hour: 18}

	st.AddExamWithLink(
		store.Exam{CareerID: 1, ClassroomID: &small.ID, SubjectName: "Derecho Civil", Date: date, Time: clock},
		store.ExamSourceLink{SubjectCode: "10038"},
	)
	exam := st.AddExamWithLink(
		store.Exam{CareerID: 1, SubjectName: "Derecho Romano", Date: date, Time: clock},
		store.ExamSourceLink{SubjectCode: "10037"},
	)

	svc := newSuggestService(st, newFakeRegistrar())
	sug, err := svc.SuggestClassroom(context.Background(), exam.ID)
	if err != nil {
		t.Fatalf("SuggestClassroom() error = %v", err)
	}
	if sug.Classroom.ID != medium.ID {
		t.Errorf("suggested room = %q, want %q (small room is booked at the slot)", sug.Classroom.Name, medium.Name)
	}
}
