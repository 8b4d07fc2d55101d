package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"
	ErrForbidden     ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrSessionNotReady   ErrCode = "SESSION_NOT_READY"
	ErrSessionReadOnly   ErrCode = "SESSION_READ_ONLY"
	ErrSessionLoadFailed ErrCode = "SESSION_LOAD_FAILED"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"
	ErrSubmitInFlight    ErrCode = "SUBMIT_IN_FLIGHT"
	ErrSubmitFailed      ErrCode = "SUBMIT_FAILED"

	// ─── AI upstream ───────────────────────────────────────────────────
	ErrAINotConfigured ErrCode = "AI_NOT_CONFIGURED"
	ErrAIGeneration    ErrCode = "AI_GENERATION_FAILED"
	ErrAIAnalysis      ErrCode = "AI_ANALYSIS_FAILED"

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
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."
	case ErrForbidden:
		return "You do not have permission to access this resource."

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

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Exam session not found."
	case ErrSessionNotReady:
		return "Exam session is still loading questions."
	case ErrSessionReadOnly:
		return "Exam session is no longer accepting changes."
	case ErrSessionLoadFailed:
		return "Question loading failed. Start a new exam to retry."
	case ErrUnknownQuestion:
		return "The question does not belong to this exam session."
	case ErrAlreadySubmitted:
		return "This exam has already been submitted."
	case ErrSubmitInFlight:
		return "A submission for this exam is already in progress."
	case ErrSubmitFailed:
		return "Saving your exam failed. Your answers are intact — please submit again."

	// ─── AI upstream ───────────────────────────────────────────────────
	case ErrAINotConfigured:
		return "AI_API_KEY not configured on server"
	case ErrAIGeneration:
		return "Failed to generate questions"
	case ErrAIAnalysis:
		return "Failed to analyze performance"

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
