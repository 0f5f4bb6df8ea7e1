package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// Entry represents an audit log entry.
type Entry struct {
	ID            string
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	StationID     string
	Period        string
	Metadata      json.RawMessage
	PayloadDigest string
	IP            string
	UserAgent     string
	CreatedAt     time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	return "audit-" + uuid.NewString()
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StdLogger writes audit entries to a log.Logger. Used when no database is configured.
type StdLogger struct {
	logger *log.Logger
}

// NewStdLogger constructs a log-backed audit logger.
func NewStdLogger(logger *log.Logger) *StdLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &StdLogger{logger: logger}
}

// Log prints the entry.
func (l *StdLogger) Log(ctx context.Context, entry Entry) error {
	_ = ctx
	l.logger.Printf("audit: actor=%s role=%s action=%s resource=%s/%s station=%s period=%s ip=%s digest=%s",
		entry.Actor, entry.Role, entry.Action, entry.ResourceType, entry.ResourceID,
		entry.StationID, entry.Period, entry.IP, DigestJSON(entry.Metadata))
	return nil
}
