// Package notify sends transactional email to pipeline participants.
package notify

import "context"

// RequestItemLine is one display row in the approval email.
type RequestItemLine struct {
	MaterialName string
	Quantity     float64
	UnitName     string
	Comment      string
}

// MaterialRequestApprovedMessage carries everything the approval email needs.
type MaterialRequestApprovedMessage struct {
	Recipients  []string
	ProjectName string
	RequestID   int64
	Comment     string
	Items       []RequestItemLine
}

// TempPasswordMessage carries a temporary password issued by an admin.
type TempPasswordMessage struct {
	Recipient    string
	TempPassword string
}

// Mailer is the outbound email dispatcher. The approval path awaits the send
// inside its transaction, so a failure rolls the approval back.
type Mailer interface {
	SendMaterialRequestApproved(ctx context.Context, msg MaterialRequestApprovedMessage) error
	SendTempPassword(ctx context.Context, msg TempPasswordMessage) error
}
