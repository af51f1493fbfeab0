package models

import "time"

type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// FieldHistory records one leaf-field transition. Rows are append-only and
// ordered by changed_at; replaying them reconstructs every historical value.
type FieldHistory struct {
	ID                uint       `json:"id" gorm:"primarykey"`
	DocumentID        uint       `json:"document_id" gorm:"not null;index"`
	FieldName         string     `json:"field_name" gorm:"not null"`
	FieldPath         string     `json:"field_path" gorm:"not null"`
	OldValue          *string    `json:"old_value"`
	NewValue          *string    `json:"new_value"`
	ChangedBy         string     `json:"changed_by"`
	ChangedAt         time.Time  `json:"changed_at" gorm:"autoCreateTime"`
	ChangeType        ChangeType `json:"change_type" gorm:"default:'update'"`
	Description       string     `json:"description"`
	DocumentVersionID *uint      `json:"document_version_id"`
}

func (FieldHistory) TableName() string {
	return "field_history"
}
