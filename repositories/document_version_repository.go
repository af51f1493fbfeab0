package repositories

import (
	"mnt-generator/models"

	"gorm.io/gorm"
)

type DocumentVersionRepository interface {
	Create(version *models.DocumentVersion) error
	GetByDocument(documentID uint, page, limit int) ([]models.DocumentVersion, int64, error)
	GetVersion(documentID, versionID uint) (*models.DocumentVersion, error)
	NumberExists(documentID uint, versionNumber string) (bool, error)
	WithTx(tx *gorm.DB) DocumentVersionRepository
}

type documentVersionRepository struct {
	db *gorm.DB
}

func NewDocumentVersionRepository(db *gorm.DB) DocumentVersionRepository {
	return &documentVersionRepository{db: db}
}

func (r *documentVersionRepository) WithTx(tx *gorm.DB) DocumentVersionRepository {
	return &documentVersionRepository{db: tx}
}

func (r *documentVersionRepository) Create(version *models.DocumentVersion) error {
	return r.db.Create(version).Error
}

func (r *documentVersionRepository) GetByDocument(documentID uint, page, limit int) ([]models.DocumentVersion, int64, error) {
	var versions []models.DocumentVersion
	var total int64

	query := r.db.Model(&models.DocumentVersion{}).Where("document_id = ?", documentID)
	query.Count(&total)

	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&versions).Error
	return versions, total, err
}

func (r *documentVersionRepository) GetVersion(documentID, versionID uint) (*models.DocumentVersion, error) {
	var version models.DocumentVersion
	err := r.db.Where("document_id = ? AND id = ?", documentID, versionID).
		First(&version).Error
	return &version, err
}

func (r *documentVersionRepository) NumberExists(documentID uint, versionNumber string) (bool, error) {
	var count int64
	err := r.db.Model(&models.DocumentVersion{}).
		Where("document_id = ? AND version_number = ?", documentID, versionNumber).
		Count(&count).Error
	return count > 0, err
}
