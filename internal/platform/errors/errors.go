package apperrors

import "errors"

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrTrialAborted  = errors.New("trial aborted")
	ErrEmptyTimeline = errors.New("timeline has no trials")
	ErrHostStopped   = errors.New("host runtime stopped")
)
