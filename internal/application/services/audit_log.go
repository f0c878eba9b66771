package services

import (
	"sync"
	"time"
)

const auditCapacity = 200

// AuditEntry is one operational event kept for the staff console.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
}

// AuditLog is a bounded in-memory trail of queue operations. Oldest
// entries are dropped once capacity is reached; durable audit belongs to
// the archive, not here.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewAuditLog creates an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{entries: make([]AuditEntry, 0, auditCapacity)}
}

// Record appends an entry, evicting the oldest when full.
func (a *AuditLog) Record(eventType string, details map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) >= auditCapacity {
		a.entries = a.entries[1:]
	}
	a.entries = append(a.entries, AuditEntry{
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Details:   details,
	})
}

// Recent returns up to limit entries, newest first.
func (a *AuditLog) Recent(limit int) []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if limit <= 0 || limit > len(a.entries) {
		limit = len(a.entries)
	}
	out := make([]AuditEntry, 0, limit)
	for i := len(a.entries) - 1; i >= len(a.entries)-limit; i-- {
		out = append(out, a.entries[i])
	}
	return out
}
