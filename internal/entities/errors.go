package entities

import (
	"errors"
	"fmt"
)

var (
	ErrNoDevelopers      = errors.New("no active developers")
	ErrDeveloperNotFound = errors.New("developer not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrSprintNotFound    = errors.New("sprint not found")
	ErrTaskExists        = errors.New("task exists")
	ErrDeveloperExists   = errors.New("developer exists")
	ErrInvalidEffort     = errors.New("estimated effort must be positive")
	ErrInvalidDates      = errors.New("sprint end date must be after start date")
)

// PersistenceError attributes a failed collaborator call to a single task so
// batch operations can report per-item outcomes instead of aborting.
type PersistenceError struct {
	TaskID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting task %s: %v", e.TaskID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
