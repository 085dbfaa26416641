// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
)

// Outcomes recorded with auth events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditLogger records security-relevant events as structured logs and counters.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger returns an AuditLogger writing to logger.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{logger: logger}
}

// AuthEvent records an authentication flow step such as "register" or "login".
func (l *AuditLogger) AuthEvent(ctx context.Context, event, outcome string, attrs ...any) {
	AuthEvents.WithLabelValues(event, outcome).Inc()
	attrs = append([]any{slog.String("event", event), slog.String("outcome", outcome)}, attrs...)
	if outcome == OutcomeFailure {
		l.logger.WarnContext(ctx, "auth event", attrs...)
		return
	}
	l.logger.InfoContext(ctx, "auth event", attrs...)
}

// FollowEvent records a follow graph mutation.
func (l *AuditLogger) FollowEvent(ctx context.Context, action string, followerID, followingID uint) {
	FollowGraphMutations.WithLabelValues(action).Inc()
	l.logger.InfoContext(ctx, "follow graph mutation",
		slog.String("action", action),
		slog.Uint64("follower_id", uint64(followerID)),
		slog.Uint64("following_id", uint64(followingID)),
	)
}

// ContentEvent records a content store write.
func (l *AuditLogger) ContentEvent(ctx context.Context, event string, attrs ...any) {
	ContentEvents.WithLabelValues(event).Inc()
	attrs = append([]any{slog.String("event", event)}, attrs...)
	l.logger.InfoContext(ctx, "content event", attrs...)
}
