package repositories

import (
	"mnt-generator/models"

	"gorm.io/gorm"
)

type FieldHistoryRepository interface {
	CreateBatch(entries []models.FieldHistory) error
	GetByDocument(documentID uint, fieldName string, limit int) ([]models.FieldHistory, error)
	FieldNames(documentID uint) ([]string, error)
	WithTx(tx *gorm.DB) FieldHistoryRepository
}

type fieldHistoryRepository struct {
	db *gorm.DB
}

func NewFieldHistoryRepository(db *gorm.DB) FieldHistoryRepository {
	return &fieldHistoryRepository{db: db}
}

func (r *fieldHistoryRepository) WithTx(tx *gorm.DB) FieldHistoryRepository {
	return &fieldHistoryRepository{db: tx}
}

func (r *fieldHistoryRepository) CreateBatch(entries []models.FieldHistory) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.Create(&entries).Error
}

func (r *fieldHistoryRepository) GetByDocument(documentID uint, fieldName string, limit int) ([]models.FieldHistory, error) {
	var history []models.FieldHistory
	query := r.db.Where("document_id = ?", documentID)
	if fieldName != "" {
		query = query.Where("field_name = ?", fieldName)
	}
	err := query.Order("changed_at desc, id desc").Limit(limit).Find(&history).Error
	return history, err
}

func (r *fieldHistoryRepository) FieldNames(documentID uint) ([]string, error) {
	var names []string
	err := r.db.Model(&models.FieldHistory{}).
		Where("document_id = ?", documentID).
		Distinct().Order("field_name").
		Pluck("field_name", &names).Error
	return names, err
}
