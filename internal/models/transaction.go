package models

import "time"

// TransactionKind names the mutation an audit record describes.
type TransactionKind string

const (
	TxCreated       TransactionKind = "created"
	TxStatusChanged TransactionKind = "status_changed"
	TxAssigned      TransactionKind = "assigned"
	TxMessageAdded  TransactionKind = "message_added"
)

// Transaction is an audit record of a complaint mutation. It is written in the
// same database transaction as the change it describes.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ComplaintID string          `gorm:"type:uuid;not null;index" json:"complaintId"`
	ActorID     string          `gorm:"type:uuid;not null;index" json:"actorId"`
	Kind        TransactionKind `gorm:"type:text;not null" json:"kind"`
	Detail      string          `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"createdAt"`
}
