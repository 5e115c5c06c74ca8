package domain

import (
	"errors"
	"strings"
)

var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidLogin     = errors.New("invalid credentials")
	ErrNotEnrolled      = errors.New("not enrolled in this course")
	ErrAlreadyEnrolled  = errors.New("already enrolled in this course")
	ErrSessionNotFound  = errors.New("course view not loaded")
	ErrModuleNotFound   = errors.New("module not found")
	ErrNoModuleSelected = errors.New("no module selected")
	ErrNotPlayable      = errors.New("selected module is not playable")
	ErrFeedbackExists   = errors.New("feedback already submitted for this course")
	ErrFeedbackPending  = errors.New("feedback submission in progress")
	ErrCourseNotFound   = errors.New("course not found")
	ErrInvalidPlayback  = errors.New("invalid playback position")
	ErrSnapshotNotFound = errors.New("no stored view for this course")
)

// LoadError is a failed reconciliation. Prior is the last good view model, if any.
type LoadError struct {
	Err   error
	Prior *CourseView
}

func (e *LoadError) Error() string {
	return "failed to load course: " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(flds ...FieldError) error {
	return &ValidationError{Fields: flds}
}

func (err ValidationError) Error() string {
	msgs := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, " ")
}

// Details maps field name to message, the shape returned to clients.
func (err ValidationError) Details() map[string]string {
	out := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		out[f.Field] = f.Message
	}
	return out
}
