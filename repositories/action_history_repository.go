package repositories

import (
	"mnt-generator/models"

	"gorm.io/gorm"
)

type ActionHistoryRepository interface {
	Create(entry *models.ActionHistory) error
	GetByDocument(documentID uint, limit int) ([]models.ActionHistory, error)
	WithTx(tx *gorm.DB) ActionHistoryRepository
}

type actionHistoryRepository struct {
	db *gorm.DB
}

func NewActionHistoryRepository(db *gorm.DB) ActionHistoryRepository {
	return &actionHistoryRepository{db: db}
}

func (r *actionHistoryRepository) WithTx(tx *gorm.DB) ActionHistoryRepository {
	return &actionHistoryRepository{db: tx}
}

func (r *actionHistoryRepository) Create(entry *models.ActionHistory) error {
	return r.db.Create(entry).Error
}

func (r *actionHistoryRepository) GetByDocument(documentID uint, limit int) ([]models.ActionHistory, error) {
	var history []models.ActionHistory
	err := r.db.Where("document_id = ?", documentID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&history).Error
	return history, err
}
