package totem

import (
	"context"
	"fmt"
	"time"

	"examsync/internal/store"
)

// Allocator selects and releases classrooms for exams. Capacity is advisory
// at assignment time: an operator may overbook a room, but the result flags
// it so the caller can warn. Double-booking a room at the same date and time
// is the one hard rule, enforced transactionally by the store.
type Allocator struct {
	store store.Store
}

// NewAllocator returns an Allocator backed by st.
func NewAllocator(st store.Store) *Allocator {
	return &Allocator{store: st}
}

// AssignmentResult reports a committed classroom assignment.
type AssignmentResult struct {
	ExamID        int              `json:"examId"`
	Classroom     store.Classroom  `json:"classroom"`
	Previous      *store.Classroom `json:"previous,omitempty"`
	OverCapacity  bool             `json:"overCapacity"`
	RequiredSeats int              `json:"requiredSeats,omitempty"`
}

// Suggest returns the smallest-capacity available classroom that seats
// requiredCapacity and is free at the given date and time, ties broken by
// lowest capacity then lowest ID. ErrNoClassroomAvailable is a normal
// outcome, not an exception.
func (a *Allocator) Suggest(ctx context.Context, requiredCapacity int, date time.Time, at *store.ClockTime) (store.Classroom, error) {
	rooms, err := a.store.ListAvailableClassrooms(ctx)
	if err != nil {
		return store.Classroom{}, fmt.Errorf("list classrooms: %w", err)
	}
	occupied, err := a.store.OccupiedClassroomIDs(ctx, date, at)
	if err != nil {
		return store.Classroom{}, fmt.Errorf("occupied classrooms: %w", err)
	}
	taken := make(map[int]bool, len(occupied))
	for _, id := range occupied {
		taken[id] = true
	}

	var best *store.Classroom
	for i := range rooms {
		room := &rooms[i]
		if room.Capacity < requiredCapacity || taken[room.ID] {
			continue
		}
		if best == nil || room.Capacity < best.Capacity ||
			(room.Capacity == best.Capacity && room.ID < best.ID) {
			best = room
		}
	}
	if best == nil {
		return store.Classroom{}, ErrNoClassroomAvailable
	}
	return *best, nil
}

// Assign books the classroom for the exam. The store re-checks the slot
// conflict inside the same transaction that writes the reference, so two
// concurrent assignments for the same (date, time, classroom) cannot both
// commit. requiredSeats <= 0 skips the capacity advisory.
func (a *Allocator) Assign(ctx context.Context, examID, classroomID, requiredSeats int) (AssignmentResult, error) {
	exam, err := a.store.ExamByID(ctx, examID)
	if err != nil {
		return AssignmentResult{}, fmt.Errorf("exam %d: %w", examID, err)
	}
	room, err := a.store.ClassroomByID(ctx, classroomID)
	if err != nil {
		return AssignmentResult{}, fmt.Errorf("classroom %d: %w", classroomID, err)
	}
	if !room.Available {
		return AssignmentResult{}, ErrClassroomUnavailable
	}

	var previous *store.Classroom
	if exam.ClassroomID != nil {
		if prev, err := a.store.ClassroomByID(ctx, *exam.ClassroomID); err == nil {
			previous = &prev
		}
	}

	conflict, err := a.store.AssignClassroom(ctx, examID, classroomID)
	if err != nil {
		return AssignmentResult{}, fmt.Errorf("assign classroom %d to exam %d: %w", classroomID, examID, err)
	}
	if conflict != nil {
		return AssignmentResult{}, &ConflictError{Conflict: *conflict}
	}

	return AssignmentResult{
		ExamID:        examID,
		Classroom:     room,
		Previous:      previous,
		OverCapacity:  requiredSeats > 0 && requiredSeats > room.Capacity,
		RequiredSeats: requiredSeats,
	}, nil
}

// Unassign clears the exam's classroom reference, freeing the slot.
// Idempotent: releasing an exam with no classroom is a no-op success.
func (a *Allocator) Unassign(ctx context.Context, examID int) error {
	if err := a.store.UnassignClassroom(ctx, examID); err != nil {
		return fmt.Errorf("unassign exam %d: %w", examID, err)
	}
	return nil
}
