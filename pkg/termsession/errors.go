// Package termsession owns the registry of live emulator sessions: one
// Session pairs a pseudo-terminal with an emulator.Emulator and persists
// its metadata to disk under a control path, the way the teacher's own
// session package drives native PTYs under its control path.
package termsession

import "fmt"

// ErrorCode classifies a Session/Manager failure for callers that want
// to branch on it rather than match error strings.
type ErrorCode string

const (
	ErrSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
	ErrSessionAlreadyExists ErrorCode = "SESSION_ALREADY_EXISTS"
	ErrSessionStartFailed   ErrorCode = "SESSION_START_FAILED"
	ErrSessionNotRunning    ErrorCode = "SESSION_NOT_RUNNING"

	ErrPTYCreationFailed ErrorCode = "PTY_CREATION_FAILED"
	ErrPTYResizeFailed   ErrorCode = "PTY_RESIZE_FAILED"

	ErrControlPathNotFound  ErrorCode = "CONTROL_PATH_NOT_FOUND"
	ErrControlFileCorrupted ErrorCode = "CONTROL_FILE_CORRUPTED"

	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
	ErrTimeout         ErrorCode = "TIMEOUT"
)

// SessionError is an error carrying session context and a stable code.
type SessionError struct {
	Message   string
	Code      ErrorCode
	SessionID string
	Cause     error
}

func (e *SessionError) Error() string {
	if e.SessionID != "" {
		id := e.SessionID
		if len(id) > 8 {
			id = id[:8]
		}
		return fmt.Sprintf("%s (session: %s, code: %s)", e.Message, id, e.Code)
	}
	return fmt.Sprintf("%s (code: %s)", e.Message, e.Code)
}

func (e *SessionError) Unwrap() error { return e.Cause }

// NewSessionError builds a SessionError with no underlying cause.
func NewSessionError(message string, code ErrorCode, sessionID string) *SessionError {
	return &SessionError{Message: message, Code: code, SessionID: sessionID}
}

// NewSessionErrorWithCause builds a SessionError wrapping cause.
func NewSessionErrorWithCause(message string, code ErrorCode, sessionID string, cause error) *SessionError {
	return &SessionError{Message: message, Code: code, SessionID: sessionID, Cause: cause}
}

// IsSessionError reports whether err is a SessionError carrying code.
func IsSessionError(err error, code ErrorCode) bool {
	se, ok := err.(*SessionError)
	return ok && se.Code == code
}

// ErrSessionNotFoundError builds the standard not-found error for id.
func ErrSessionNotFoundError(id string) *SessionError {
	return NewSessionError(fmt.Sprintf("session %s not found", shortID(id)), ErrSessionNotFound, id)
}

// ErrPTYCreationError builds the standard PTY-creation-failed error for id.
func ErrPTYCreationError(id string, cause error) *SessionError {
	return NewSessionErrorWithCause("failed to create pty", ErrPTYCreationFailed, id, cause)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
