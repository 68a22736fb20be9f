package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Handlers and services enrich the context once; every log statement below them picks the
// fields up without passing them explicitly.
type LogFields struct {
	ReportID  *int64  // Report session ID
	IssueKey  *string // Tracker issue key being fetched
	EpicKey   *string // Epic whose children are being fetched
	Chunk     *int    // Batch chunk index (0-based)
	Component string  // Component name (OTel semantic convention style, e.g., "qareport.fetch.batch")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.ReportID != nil {
		result.ReportID = new.ReportID
	}
	if new.IssueKey != nil {
		result.IssueKey = new.IssueKey
	}
	if new.EpicKey != nil {
		result.EpicKey = new.EpicKey
	}
	if new.Chunk != nil {
		result.Chunk = new.Chunk
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{EpicKey: logger.Ptr(key)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
