package models

import (
	"time"

	"gorm.io/datatypes"
)

// DocumentVersion is an immutable snapshot of a document at one save point.
// The version number is the label the user wrote into the document's own
// history-of-changes table, so (document_id, version_number) is unique but
// not guaranteed monotonic.
type DocumentVersion struct {
	ID                 uint              `json:"id" gorm:"primarykey"`
	DocumentID         uint              `json:"document_id" gorm:"not null;uniqueIndex:idx_document_version_number"`
	Document           *Document         `json:"document,omitempty" gorm:"foreignKey:DocumentID"`
	VersionNumber      string            `json:"version_number" gorm:"not null;uniqueIndex:idx_document_version_number"`
	Title              string            `json:"title"`
	Project            string            `json:"project"`
	Author             string            `json:"author"`
	Status             DocumentStatus    `json:"status"`
	Data               datatypes.JSONMap `json:"data" gorm:"type:jsonb"`
	ConfluenceSpace    string            `json:"confluence_space"`
	ConfluenceParentID *int64            `json:"confluence_parent_id"`
	ConfluencePageID   *int64            `json:"confluence_page_id"`
	ConfluencePageURL  string            `json:"confluence_page_url"`
	LastPublishAt      *time.Time        `json:"last_publish_at"`
	CreatedBy          string            `json:"created_by"`
	CreatedAt          time.Time         `json:"created_at"`
}
