// Package errors provides structured, coded error handling shared by services.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Auth errors
	CodeAuthTokenMissing Code = "AUTH_TOKEN_MISSING"
	CodeAuthTokenInvalid Code = "AUTH_TOKEN_INVALID"
	CodeAuthTokenExpired Code = "AUTH_TOKEN_EXPIRED"

	// Message errors
	CodeMessageEmpty         Code = "MESSAGE_EMPTY"
	CodeMessageTooLong       Code = "MESSAGE_TOO_LONG"
	CodeMessageTargetInvalid Code = "MESSAGE_TARGET_INVALID"

	// Conversation errors
	CodeConversationNotFound Code = "CONVERSATION_NOT_FOUND"

	// Storage errors
	CodePersistenceFailed Code = "PERSISTENCE_FAILED"
)
