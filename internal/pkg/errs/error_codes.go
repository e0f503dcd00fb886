/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrEndpointNotFound indicates that the requested path matches no route.
	ErrEndpointNotFound = 1008

	// ErrMethodNotAllowed indicates that the route exists but not for the request method.
	ErrMethodNotAllowed = 1009
)

// 2xxx: Profile and Chat Business Logic Errors
const (
	// ErrValidationFailed indicates that one or more registration fields are
	// missing, malformed, or out of range. The individual violations travel
	// in CustomError.Details.
	ErrValidationFailed = 2101

	// ErrUserIDRequired indicates that a chat request arrived without the user_id form field.
	ErrUserIDRequired = 2102

	// ErrChatInputMissing indicates that a chat request carried neither text, image, nor audio.
	ErrChatInputMissing = 2103

	// ErrUploadUnreadable indicates that an uploaded file part could not be read.
	ErrUploadUnreadable = 2104

	// ErrNutritionData indicates that nutrition calculation rejected the stored
	// profile (missing or out-of-range data). The descriptive calculation
	// message is formatted into the response.
	ErrNutritionData = 2201
)

// 3xxx: User Account Errors
const (
	// ErrUserNotFound indicates that the supplied user id has no registered record.
	ErrUserNotFound = 3001

	// ErrUserAlreadyExists indicates a duplicate registration attempt for an existing user id.
	ErrUserAlreadyExists = 3002
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrRecordStorage indicates that reading or writing a user record failed.
	ErrRecordStorage = 5001

	// ErrProfileCreateFailed indicates that the registration flow could not
	// create or update the user profile on disk.
	ErrProfileCreateFailed = 5002
)
