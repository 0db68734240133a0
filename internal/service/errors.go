package service

import "errors"

// Domain errors. All of these are expected, user-facing conditions that
// handlers translate to typed response codes; only storage-layer failures
// propagate as wrapped infrastructure errors.
var (
	// ErrNotFound is returned by stores when a session or attempt row does
	// not exist. Store implementations must translate their driver's
	// not-found error into this sentinel.
	ErrNotFound = errors.New("record not found")

	// ErrSessionNotJoinable covers both a non-joinable session status and a
	// clock outside the permitted window.
	ErrSessionNotJoinable = errors.New("session is not joinable")

	// ErrAttemptLimitExceeded means the student's settled attempts already
	// reached the session's max attempts.
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")

	// ErrAttemptExpiredBeforeStart means the window closed between join and
	// start.
	ErrAttemptExpiredBeforeStart = errors.New("window closed before the attempt started")

	// ErrAttemptExpired means the attempt deadline passed during submit or
	// finish.
	ErrAttemptExpired = errors.New("attempt deadline has passed")

	// ErrRecordNotFound means start/submit/finish was called before join.
	ErrRecordNotFound = errors.New("no attempt record for this session and student")

	// ErrAttemptNotActive means the operation requires an in-progress
	// attempt but the record is in another non-expired state.
	ErrAttemptNotActive = errors.New("attempt is not in progress")

	// ErrInvalidTransition means the requested authority transition is not
	// legal from the session's current status.
	ErrInvalidTransition = errors.New("illegal session status transition")

	// ErrWindowLocked means the session's window can no longer be edited
	// because attempt records already reference it.
	ErrWindowLocked = errors.New("window is locked once attempts exist")

	// ErrSessionReferenced blocks deletion while attempt records still
	// reference the session.
	ErrSessionReferenced = errors.New("session is referenced by attempt records")
)
