// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.Context
	// Set by: auth.Middleware after credential validation and role resolution
	// Required by: all protected endpoints and the policy checks
	AuthKey Key = "auth_context"

	// RequestIDKey contains request ID string (UUID)
	// Set by: api request-id middleware
	// Used by: logger and audit trail
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: auth.Middleware after the user is resolved
	// Used by: logger and audit trail
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	LoggerKey Key = "logger"

	// CLICommandKey contains the value of the X-CLI-CMD header when present
	// Set by: audit.CLICommandMiddleware
	CLICommandKey Key = "cli_command"
)

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithCLICommand records the CLI command that initiated the request
func WithCLICommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, CLICommandKey, command)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetCLICommand retrieves the CLI command from context, if any
func GetCLICommand(ctx context.Context) string {
	if command, ok := ctx.Value(CLICommandKey).(string); ok {
		return command
	}
	return ""
}
