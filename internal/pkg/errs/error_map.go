/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value carries the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "No data provided or malformed JSON.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "File too large. Maximum size is 16MB.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrEndpointNotFound:      {Code: ErrEndpointNotFound, Message: "Endpoint not found.", Status: http.StatusNotFound},
	ErrMethodNotAllowed:      {Code: ErrMethodNotAllowed, Message: "Method not allowed.", Status: http.StatusMethodNotAllowed},

	// 2xxx: Profile and Chat Business Logic Errors
	ErrValidationFailed: {Code: ErrValidationFailed, Message: "Validation failed.", Status: http.StatusBadRequest},
	ErrUserIDRequired:   {Code: ErrUserIDRequired, Message: "User ID is required.", Status: http.StatusBadRequest},
	ErrChatInputMissing: {Code: ErrChatInputMissing, Message: "Please provide a message, image, or voice input.", Status: http.StatusBadRequest},
	ErrUploadUnreadable: {Code: ErrUploadUnreadable, Message: "Failed to process %s upload.", Status: http.StatusBadRequest},
	ErrNutritionData:    {Code: ErrNutritionData, Message: "%s", Status: http.StatusBadRequest},

	// 3xxx: User Account Errors
	ErrUserNotFound:      {Code: ErrUserNotFound, Message: "User not found. Please register first.", Status: http.StatusNotFound},
	ErrUserAlreadyExists: {Code: ErrUserAlreadyExists, Message: "Username %q already exists. Please choose a different username.", Status: http.StatusConflict},

	// 5xxx: Internal System Errors
	ErrUnknown:             {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrRecordStorage:       {Code: ErrRecordStorage, Message: "Failed to access user records. Please try again.", Status: http.StatusInternalServerError},
	ErrProfileCreateFailed: {Code: ErrProfileCreateFailed, Message: "Failed to create user profile.", Status: http.StatusInternalServerError},
}
