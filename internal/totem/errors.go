package totem

import (
	"errors"
	"fmt"
	"strings"

	"examsync/internal/store"
)

// Sentinel errors for the trigger surface. Handlers map these to HTTP status
// codes with errors.Is / errors.As.
var (
	// ErrSyncInProgress is returned when a sync run is requested while
	// another is still in flight. Runs are strictly one at a time.
	ErrSyncInProgress = errors.New("a synchronization run is already in progress")

	// ErrNoClassroomAvailable is the normal outcome of a suggestion when no
	// available classroom has sufficient capacity.
	ErrNoClassroomAvailable = errors.New("no available classroom satisfies the required capacity")

	// ErrClassroomUnavailable rejects assignment to a room marked unavailable.
	ErrClassroomUnavailable = errors.New("classroom is not available")
)

// ConflictError rejects a classroom assignment that collides with an existing
// assignment at the same date and time. Conflict identifies the exam already
// holding the room.
type ConflictError struct {
	Conflict store.Exam
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("classroom already occupied at that slot by exam %d (%s)",
		e.Conflict.ID, e.Conflict.SubjectName)
}

// UserMessage is a user-facing rendering of an internal error, with a stable
// code for support reference and a suggested action.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// MapError translates an internal error into a UserMessage. Technical detail
// stays in the server logs; clients get the short form.
func MapError(err error) UserMessage {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		return UserMessage{
			Code:    "SYNC004",
			Message: fmt.Sprintf("The classroom is already booked at that time by exam %d.", conflict.Conflict.ID),
			Action:  "Pick another classroom or move one of the exams.",
		}
	case errors.Is(err, ErrSyncInProgress):
		return UserMessage{
			Code:    "SYNC001",
			Message: "A synchronization run is already in progress.",
			Action:  "Wait for the current run to finish and try again.",
		}
	case errors.Is(err, ErrNoClassroomAvailable):
		return UserMessage{
			Code:    "SYNC002",
			Message: "No available classroom is large enough for this exam.",
			Action:  "Review classroom availability or split the exam.",
		}
	case errors.Is(err, ErrClassroomUnavailable):
		return UserMessage{
			Code:    "SYNC003",
			Message: "The selected classroom is marked unavailable.",
			Action:  "Choose an available classroom.",
		}
	case errors.Is(err, store.ErrNotFound):
		return UserMessage{
			Code:    "SYNC005",
			Message: "The requested record was not found.",
			Action:  "Check the identifier and try again.",
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return UserMessage{
			Code:    "DB001",
			Message: "The database is unreachable.",
			Action:  "Try again in a few moments.",
		}
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return UserMessage{
			Code:    "DB002",
			Message: "The operation timed out.",
			Action:  "Try again; if it persists, check the external services.",
		}
	}

	return UserMessage{
		Code:    "GEN001",
		Message: "An unexpected error occurred.",
		Action:  "Quote this code to support if the problem persists.",
	}
}
