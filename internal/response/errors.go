package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"
	ErrPremiumRequired   ErrCode = "PREMIUM_REQUIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Test-taking ───────────────────────────────────────────────────
	ErrTestNotAvailable  ErrCode = "TEST_NOT_AVAILABLE"
	ErrTestNotPublished  ErrCode = "TEST_NOT_PUBLISHED"
	ErrTestNotDraft      ErrCode = "TEST_NOT_DRAFT"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrNoActiveAttempt   ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrAttemptActive     ErrCode = "ATTEMPT_ALREADY_ACTIVE"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"
	ErrSubmitInProgress  ErrCode = "SUBMIT_IN_PROGRESS"
	ErrInvalidAnswer     ErrCode = "INVALID_ANSWER_SELECTION"
	ErrInvalidNavigation ErrCode = "INVALID_NAVIGATION"
	ErrResultNotSaved    ErrCode = "RESULT_NOT_SAVED"

	// ─── Import / Generation ───────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"
	ErrImportFailed    ErrCode = "IMPORT_FAILED"
	ErrGeneratorFailed ErrCode = "GENERATOR_FAILED"

	// ─── Billing ───────────────────────────────────────────────────────
	ErrPlanUnknown      ErrCode = "PLAN_UNKNOWN"
	ErrOrderFailed      ErrCode = "ORDER_FAILED"
	ErrPaymentSignature ErrCode = "PAYMENT_SIGNATURE_INVALID"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrPremiumRequired:
		return "This test requires an active subscription."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "Resource cannot be deleted because it is still in use."

	// ─── Test-taking ───────────────────────────────────────────────────
	case ErrTestNotAvailable:
		return "This test is not currently available."
	case ErrTestNotPublished:
		return "This test has not been published."
	case ErrTestNotDraft:
		return "This test is not in DRAFT status."
	case ErrNoQuestions:
		return "No questions are available for this test."
	case ErrNoActiveAttempt:
		return "You have no running attempt for this test."
	case ErrAttemptActive:
		return "You already have a running attempt. Finish or abandon it first."
	case ErrAlreadySubmitted:
		return "This attempt has already been submitted."
	case ErrSubmitInProgress:
		return "This attempt is being finalized. Please try again in a moment."
	case ErrInvalidAnswer:
		return "The selected answer does not match any option of this question."
	case ErrInvalidNavigation:
		return "The requested question number is out of range."
	case ErrResultNotSaved:
		return "Your result could not be saved. Your answers are kept — please submit again."

	// ─── Import / Generation ───────────────────────────────────────────
	case ErrFileRequired:
		return "File upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."
	case ErrImportFailed:
		return "The uploaded file could not be imported."
	case ErrGeneratorFailed:
		return "Question generation failed. Please try again."

	// ─── Billing ───────────────────────────────────────────────────────
	case ErrPlanUnknown:
		return "Unknown subscription plan."
	case ErrOrderFailed:
		return "Payment order could not be created."
	case ErrPaymentSignature:
		return "Payment verification failed."

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
