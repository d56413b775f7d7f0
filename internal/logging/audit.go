package logging

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditEntry records one moderation action.
type AuditEntry struct {
	Action   string
	TraceID  string
	GroupID  int64
	ActorID  int64
	TargetID int64
	Detail   string
	Success  bool
	Error    string
	Duration time.Duration
}

// NewAuditEntry starts an entry for action.
func NewAuditEntry(action, traceID string) *AuditEntry {
	return &AuditEntry{Action: action, TraceID: traceID, Success: true}
}

// WithTarget sets the group, invoking user and affected user.
func (e *AuditEntry) WithTarget(group, actor, target int64) *AuditEntry {
	e.GroupID, e.ActorID, e.TargetID = group, actor, target
	return e
}

// WithDetail attaches free text such as a reason or a duration.
func (e *AuditEntry) WithDetail(detail string) *AuditEntry {
	e.Detail = detail
	return e
}

// WithError marks the entry failed.
func (e *AuditEntry) WithError(msg string) *AuditEntry {
	e.Success = false
	e.Error = msg
	return e
}

// WithDuration sets the elapsed time since start.
func (e *AuditEntry) WithDuration(start time.Time) *AuditEntry {
	e.Duration = time.Since(start)
	return e
}

// AuditLogger writes moderation actions to a dedicated sink.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditEntry)
	Close() error
}

// AuditLoggerConfig enables and locates the audit log.
type AuditLoggerConfig struct {
	Enabled bool
	File    string
}

type nopAuditLogger struct{}

func (nopAuditLogger) Log(context.Context, AuditEntry) {}
func (nopAuditLogger) Close() error                    { return nil }

type fileAuditLogger struct {
	mu     sync.Mutex
	logger zerolog.Logger
	closer io.Closer
}

// NewAuditLogger returns a JSON-lines audit logger, or a no-op one when
// disabled or the file cannot be opened.
func NewAuditLogger(cfg AuditLoggerConfig) AuditLogger {
	if !cfg.Enabled {
		return nopAuditLogger{}
	}
	if cfg.File == "" {
		return newAuditLoggerTo(os.Stderr, nil)
	}
	f, err := openLogFile(cfg.File)
	if err != nil {
		return nopAuditLogger{}
	}
	return newAuditLoggerTo(f, f)
}

func newAuditLoggerTo(w io.Writer, c io.Closer) *fileAuditLogger {
	return &fileAuditLogger{
		logger: zerolog.New(w).With().Timestamp().Str("log", "audit").Logger(),
		closer: c,
	}
}

func (a *fileAuditLogger) Log(_ context.Context, e AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ev := a.logger.Info()
	if !e.Success {
		ev = a.logger.Warn().Str("error", e.Error)
	}
	ev.Str("action", e.Action).
		Str("trace_id", e.TraceID).
		Int64("group_id", e.GroupID).
		Int64("actor_id", e.ActorID).
		Int64("target_id", e.TargetID).
		Str("detail", e.Detail).
		Bool("success", e.Success).
		Dur("duration", e.Duration).
		Send()
}

func (a *fileAuditLogger) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

type auditLoggerKey struct{}

// ContextWithAuditLogger stores an AuditLogger in ctx.
func ContextWithAuditLogger(ctx context.Context, a AuditLogger) context.Context {
	return context.WithValue(ctx, auditLoggerKey{}, a)
}

// AuditLoggerFromContext returns the stored AuditLogger or a no-op one.
func AuditLoggerFromContext(ctx context.Context) AuditLogger {
	if ctx != nil {
		if a, ok := ctx.Value(auditLoggerKey{}).(AuditLogger); ok && a != nil {
			return a
		}
	}
	return nopAuditLogger{}
}
