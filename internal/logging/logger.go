// Package logging is the structured logger the record pipeline writes to.
// Callers hand a Logger to the SDK; library code never logs key material,
// payloads or tokens, and the slog backend redacts such attributes anyway.
package logging

import "context"

// Logger is a context-aware key/value logger:
//
//	log.Info(ctx, "attachment uploaded", "record_id", id, "variants", 3)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every record.
	With(args ...any) Logger
}
