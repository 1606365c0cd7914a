package audit

import (
	"context"
	"log"
	"time"
)

// LogLogger writes audit entries to a process logger. Used when no database
// is configured.
type LogLogger struct {
	logger *log.Logger
	now    func() time.Time
}

// NewLogLogger constructs a log-backed audit logger.
func NewLogLogger(logger *log.Logger) *LogLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &LogLogger{logger: logger, now: time.Now}
}

// Log writes one line per entry.
func (l *LogLogger) Log(ctx context.Context, entry Entry) error {
	entry.fill(l.now())
	l.logger.Printf("audit: id=%s tenant=%s actor=%s role=%s action=%s resource=%s/%s grid=%s digest=%s ip=%s",
		entry.ID, entry.TenantID, entry.Actor, entry.Role, entry.Action,
		entry.ResourceType, entry.ResourceID, entry.Grid, entry.PayloadDigest, entry.IP)
	return nil
}
