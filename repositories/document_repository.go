package repositories

import (
	"fmt"
	"time"

	"mnt-generator/models"

	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(document *models.Document) error
	GetByID(id uint, includeDeleted bool) (*models.Document, error)
	GetList(params models.DocumentListParams) ([]models.Document, int64, error)
	Update(document *models.Document) error
	SoftDelete(id uint) error
	Restore(id uint) error
	PurgeDeletedOlderThan(days int) (int64, error)
	ReplaceTags(document *models.Document, tags []models.Tag) error
	DistinctProjects() ([]string, error)
	DistinctAuthors() ([]string, error)
	WithTx(tx *gorm.DB) DocumentRepository
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) WithTx(tx *gorm.DB) DocumentRepository {
	return &documentRepository{db: tx}
}

func (r *documentRepository) Create(document *models.Document) error {
	return r.db.Create(document).Error
}

func (r *documentRepository) GetByID(id uint, includeDeleted bool) (*models.Document, error) {
	var document models.Document
	query := r.db.Preload("Tags")
	if includeDeleted {
		query = query.Unscoped()
	}
	err := query.First(&document, id).Error
	return &document, err
}

func (r *documentRepository) GetList(params models.DocumentListParams) ([]models.Document, int64, error) {
	var documents []models.Document
	var total int64

	query := r.db.Model(&models.Document{}).Preload("Tags")

	if params.Deleted {
		query = query.Unscoped().Where("documents.deleted_at IS NOT NULL")
	}

	if params.Status != "" {
		query = query.Where("documents.status = ?", params.Status)
	}

	if params.Project != "" {
		query = query.Where("documents.project = ?", params.Project)
	}

	if params.Author != "" {
		query = query.Where("documents.author = ?", params.Author)
	}

	if params.TagID > 0 {
		query = query.Joins("JOIN document_tags ON document_tags.document_id = documents.id").
			Where("document_tags.tag_id = ?", params.TagID)
	}

	// Count total
	query.Count(&total)

	// Add sorting; only known columns pass through
	sortBy := params.SortBy
	switch sortBy {
	case "created_at", "updated_at", "title", "project":
	default:
		sortBy = "updated_at"
	}

	sortOrder := params.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	query = query.Order(fmt.Sprintf("documents.%s %s", sortBy, sortOrder))

	// Add pagination
	offset := (params.Page - 1) * params.Limit
	err := query.Offset(offset).Limit(params.Limit).Find(&documents).Error

	return documents, total, err
}

func (r *documentRepository) Update(document *models.Document) error {
	return r.db.Save(document).Error
}

func (r *documentRepository) SoftDelete(id uint) error {
	return r.db.Delete(&models.Document{}, id).Error
}

func (r *documentRepository) Restore(id uint) error {
	return r.db.Unscoped().Model(&models.Document{}).
		Where("id = ?", id).
		Update("deleted_at", nil).Error
}

// PurgeDeletedOlderThan hard-deletes documents soft-deleted more than the
// given number of days ago. Versions, histories and tag links go with them
// via ON DELETE CASCADE.
func (r *documentRepository) PurgeDeletedOlderThan(days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	result := r.db.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&models.Document{})
	return result.RowsAffected, result.Error
}

func (r *documentRepository) ReplaceTags(document *models.Document, tags []models.Tag) error {
	return r.db.Model(document).Association("Tags").Replace(tags)
}

func (r *documentRepository) DistinctProjects() ([]string, error) {
	var projects []string
	err := r.db.Model(&models.Document{}).
		Where("project IS NOT NULL AND project != ''").
		Distinct().Order("project").
		Pluck("project", &projects).Error
	return projects, err
}

func (r *documentRepository) DistinctAuthors() ([]string, error) {
	var authors []string
	err := r.db.Model(&models.Document{}).
		Where("author IS NOT NULL AND author != ''").
		Distinct().Order("author").
		Pluck("author", &authors).Error
	return authors, err
}
