package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden           ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly   ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAuthorityAccessOnly ErrCode = "AUTHORITY_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"
	ErrActionForbidden  ErrCode = "ACTION_FORBIDDEN"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrSessionNotJoinable    ErrCode = "SESSION_NOT_JOINABLE"
	ErrInvalidTransition     ErrCode = "INVALID_TRANSITION"
	ErrWindowLocked          ErrCode = "WINDOW_LOCKED"
	ErrSessionHasAttempts    ErrCode = "SESSION_HAS_ATTEMPTS"
	ErrAttemptLimitExceeded  ErrCode = "ATTEMPT_LIMIT_EXCEEDED"
	ErrAttemptExpired        ErrCode = "ATTEMPT_EXPIRED"
	ErrAttemptExpiredNoStart ErrCode = "ATTEMPT_EXPIRED_BEFORE_START"
	ErrAttemptNotActive      ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrAttemptNotFound       ErrCode = "ATTEMPT_NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAuthorityAccessOnly:
		return "This resource is restricted to exam authorities."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "The resource cannot be deleted because it is still in use."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Session lifecycle ─────────────────────────────────────────────
	case ErrSessionNotJoinable:
		return "This exam session is not open for joining."
	case ErrInvalidTransition:
		return "The session cannot move to the requested status."
	case ErrWindowLocked:
		return "The session window can no longer be edited."
	case ErrSessionHasAttempts:
		return "The session cannot be deleted while attempt records reference it."
	case ErrAttemptLimitExceeded:
		return "The maximum number of attempts has been reached."
	case ErrAttemptExpired:
		return "The attempt deadline has passed."
	case ErrAttemptExpiredNoStart:
		return "The session ended before this attempt was started."
	case ErrAttemptNotActive:
		return "There is no running attempt for this session."
	case ErrAttemptNotFound:
		return "No attempt record exists for this session."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
