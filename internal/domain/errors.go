package domain

import "errors"

// Validation errors, returned synchronously and never retried (spec §7).
var (
	ErrUnknownAgent        = errors.New("unknown agent")
	ErrUnknownAddress      = errors.New("agent has no address in the current mode")
	ErrEmptyRecipients     = errors.New("message has no recipients")
	ErrIllegalTransition   = errors.New("illegal task state transition")
	ErrDependencyNotMet    = errors.New("task has unsatisfied dependencies")
	ErrNotClaimable        = errors.New("task is not claimable by this agent")
	ErrClaimDeadlinePassed = errors.New("claim deadline has passed")
	ErrTaskNotFound        = errors.New("task not found")
	ErrSameAuthorReviewer  = errors.New("pr author and reviewer must differ")
	ErrWrongReviewer       = errors.New("reviewer does not match assignment")
	ErrDuplicateComponent  = errors.New("component name already registered")
	ErrComponentNotFound   = errors.New("component not found")
)
