package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusPublished DocumentStatus = "published"
	StatusError     DocumentStatus = "error"
)

type Document struct {
	ID                 uint              `json:"id" gorm:"primarykey"`
	Title              string            `json:"title" gorm:"not null"`
	Project            string            `json:"project" gorm:"not null"`
	Author             string            `json:"author" gorm:"not null"`
	Status             DocumentStatus    `json:"status" gorm:"default:'draft'"`
	Data               datatypes.JSONMap `json:"data" gorm:"type:jsonb"`
	ConfluenceSpace    string            `json:"confluence_space"`
	ConfluenceParentID *int64            `json:"confluence_parent_id"`
	ConfluencePageID   *int64            `json:"confluence_page_id"`
	ConfluencePageURL  string            `json:"confluence_page_url"`
	LastPublishAt      *time.Time        `json:"last_publish_at"`
	LastError          *string           `json:"last_error"`
	Tags               []Tag             `json:"tags,omitempty" gorm:"many2many:document_tags;"`
	Versions           []DocumentVersion `json:"versions,omitempty" gorm:"foreignKey:DocumentID"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `json:"deleted_at,omitempty" gorm:"index"`
}

// FieldSet flattens the JSON data column into the string map the diff
// engine and completeness checker operate on. Non-string values are
// dropped; the form only ever submits strings.
func FieldSet(data datatypes.JSONMap) map[string]string {
	fields := make(map[string]string, len(data))
	for key, value := range data {
		if s, ok := value.(string); ok {
			fields[key] = s
		}
	}
	return fields
}
