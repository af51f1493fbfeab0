package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionPublished     = "published"
	ActionPublishFailed = "publish_failed"
	ActionDeleted       = "deleted"
	ActionRestored      = "restored"
)

// ActionHistory is the free-form audit trail, written on every
// user-triggered operation regardless of whether content changed.
type ActionHistory struct {
	ID                uint              `json:"id" gorm:"primarykey"`
	DocumentID        uint              `json:"document_id" gorm:"not null;index"`
	UserName          string            `json:"user_name"`
	ActionType        string            `json:"action_type" gorm:"not null"`
	ActionDescription string            `json:"action_description"`
	Details           datatypes.JSONMap `json:"details" gorm:"type:jsonb"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (ActionHistory) TableName() string {
	return "action_history"
}
