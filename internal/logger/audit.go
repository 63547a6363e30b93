package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditAction represents the type of auditable pgframe action.
type AuditAction string

const (
	AuditActionCommand         AuditAction = "command"
	AuditActionConfigChange    AuditAction = "config_change"
	AuditActionMigrationApply  AuditAction = "migration_apply"
	AuditActionMigrationRevert AuditAction = "migration_revert"
	AuditActionJobTrigger      AuditAction = "job_trigger"
)

// AuditOutcome represents the result of an auditable action.
type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
)

// AuditEvent represents an auditable event.
type AuditEvent struct {
	Action    AuditAction    `json:"action"`
	Actor     string         `json:"actor"`
	Resource  string         `json:"resource"`
	Outcome   AuditOutcome   `json:"outcome"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
}

// AuditLogger writes AuditEvents as JSON lines to a dedicated, rotated file,
// independent of the process logger so audit records survive at a separate
// retention and aren't interleaved with operational noise.
type AuditLogger struct {
	logger *slog.Logger
	closer *lumberjack.Logger
}

// NewAuditLogger creates an audit logger writing to auditPath. maxAgeDays
// defaults to 365 when zero or negative, since audit trails are kept far
// longer than operational logs.
func NewAuditLogger(auditPath string, maxAgeDays int) (*AuditLogger, error) {
	if auditPath == "" {
		return nil, fmt.Errorf("audit path is required")
	}

	if err := os.MkdirAll(filepath.Dir(auditPath), 0750); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}

	if maxAgeDays <= 0 {
		maxAgeDays = 365
	}

	lj := &lumberjack.Logger{
		Filename:   auditPath,
		MaxSize:    100,
		MaxBackups: 0,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(lj, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	return &AuditLogger{
		logger: slog.New(handler),
		closer: lj,
	}, nil
}

// Log records an audit event. A nil receiver is a no-op, so callers can hold
// an *AuditLogger that is nil when audit logging is disabled without guarding
// every call site.
func (a *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if a == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		if cc := CommandContextFrom(ctx); cc != nil {
			event.RequestID = cc.RequestID
		}
	}

	attrs := []slog.Attr{
		slog.String("action", string(event.Action)),
		slog.String("actor", event.Actor),
		slog.String("resource", event.Resource),
		slog.String("outcome", string(event.Outcome)),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if len(event.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", event.Metadata))
	}

	a.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

// LogCommand records a CLI command's completion.
func (a *AuditLogger) LogCommand(ctx context.Context, command string, outcome AuditOutcome, metadata map[string]any) {
	a.Log(ctx, AuditEvent{
		Action:   AuditActionCommand,
		Actor:    actorFrom(ctx),
		Resource: command,
		Outcome:  outcome,
		Metadata: metadata,
	})
}

// LogConfigChange records that a configuration value was loaded or changed.
func (a *AuditLogger) LogConfigChange(ctx context.Context, resource string, outcome AuditOutcome, before, after any) {
	metadata := map[string]any{}
	if before != nil {
		metadata["before"] = before
	}
	if after != nil {
		metadata["after"] = after
	}

	a.Log(ctx, AuditEvent{
		Action:   AuditActionConfigChange,
		Actor:    actorFrom(ctx),
		Resource: resource,
		Outcome:  outcome,
		Metadata: metadata,
	})
}

// LogMigration records a migrate up/down run: reverted is false for an
// "up" run and true for a "down" run, and count is the number of migrations
// loaded for the run, not only those the run itself applied or rolled back.
func (a *AuditLogger) LogMigration(ctx context.Context, reverted bool, count int, outcome AuditOutcome) {
	action := AuditActionMigrationApply
	if reverted {
		action = AuditActionMigrationRevert
	}

	a.Log(ctx, AuditEvent{
		Action:   action,
		Actor:    actorFrom(ctx),
		Resource: "migrations",
		Outcome:  outcome,
		Metadata: map[string]any{"count": count},
	})
}

// LogJobTrigger records a job being enqueued by name, e.g. from the CLI's
// job-trigger surface or a daemon's HTTP trigger endpoint.
func (a *AuditLogger) LogJobTrigger(ctx context.Context, jobName string, outcome AuditOutcome, metadata map[string]any) {
	a.Log(ctx, AuditEvent{
		Action:   AuditActionJobTrigger,
		Actor:    actorFrom(ctx),
		Resource: jobName,
		Outcome:  outcome,
		Metadata: metadata,
	})
}

func actorFrom(ctx context.Context) string {
	if cc := CommandContextFrom(ctx); cc != nil && cc.User != "" {
		return cc.User
	}
	return "unknown"
}

// Close flushes and closes the underlying log file.
func (a *AuditLogger) Close() error {
	if a != nil && a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
