package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Complaint is a user-submitted issue with a status and a message thread.
// OwnerID is written on create only; updates never touch it.
type Complaint struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string         `gorm:"type:text;not null" json:"title"`
	Description     string         `gorm:"type:text;not null" json:"description"`
	Status          string         `gorm:"type:text;not null;index" json:"status"`
	OwnerID         string         `gorm:"<-:create;type:uuid;not null;index" json:"ownerId"`
	AssignedAgentID *string        `gorm:"type:uuid;index" json:"assignedAgentId,omitempty"`
	Tags            pq.StringArray `gorm:"type:text[]" json:"tags"`
	Messages        []Message      `gorm:"foreignKey:ComplaintID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"index" json:"updatedAt"`
}

// BeforeCreate is a GORM hook that assigns a UUID when ID is empty.
func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}
