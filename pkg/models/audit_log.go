package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit action verbs.
const (
	AuditActionCreate   = "CREATE"
	AuditActionUpdate   = "UPDATE"
	AuditActionDelete   = "DELETE"
	AuditActionApprove  = "APPROVE"
	AuditActionStart    = "START"
	AuditActionHold     = "HOLD"
	AuditActionComplete = "COMPLETE"
	AuditActionClose    = "CLOSE"
	AuditActionGenerate = "GENERATE"
	AuditActionConsume  = "CONSUME"
	AuditActionAttach   = "ATTACH"
)

// AuditLogEntry is one immutable record of a mutating action. Entries are
// written in the same transaction as the mutation they describe.
type AuditLogEntry struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Action    string     `json:"action"`
	TableName string     `json:"table_name"`
	RecordID  uuid.UUID  `json:"record_id"`
	Details   string     `json:"details,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
