package models

import (
	"time"
)

const (
	AuditActionCreated = "created"
	AuditActionClaimed = "claimed"
)

type AuditEvent struct {
	ID        int64
	RefundID  int64
	Action    string
	Details   string
	Timestamp time.Time
}

// Audit event joined with the refund it belongs to
type AuditEntry struct {
	Refund Refund
	Event  AuditEvent
}
