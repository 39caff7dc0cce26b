package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one entry of a complaint's thread. Messages are append-only and
// each one is a separate row, so concurrent appends never overwrite each other.
type Message struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID string `gorm:"type:uuid;not null;index:idx_complaint_msg" json:"complaintId"`
	// AuthorID is the account that sent the message.
	AuthorID string `gorm:"type:uuid;not null" json:"authorId"`
	// Author is the display identity (the account email).
	Author    string    `gorm:"type:text;not null" json:"author"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index:idx_complaint_msg" json:"timestamp"`
}

// BeforeCreate is a GORM hook that assigns a UUID when ID is empty.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
