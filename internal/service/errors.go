package service

import (
	"errors"

	"whiteboard-sync-server/internal/domain"
)

// ErrSaveInProgress rejects a second save request (or a mutation) while a
// cycle is writing. Requests are rejected, not queued.
var ErrSaveInProgress = errors.New("save cycle already in progress")

// ErrResolutionPending rejects saves while a conflict awaits resolution.
var ErrResolutionPending = errors.New("conflict resolution pending")

// ErrNoPendingConflict is returned by a resolution request when there is
// nothing to resolve.
var ErrNoPendingConflict = errors.New("no pending conflict")

// PendingConflictError reports the version mismatch that ended a save cycle,
// carrying the {local, remote} pair awaiting a resolution choice.
type PendingConflictError struct {
	Conflict *domain.Conflict
}

func (e *PendingConflictError) Error() string {
	return "conflict detected"
}
