package services

import (
	"errors"
	"strings"

	"mnt-generator/models"
	"mnt-generator/repositories"

	"gorm.io/gorm"
)

type TagService interface {
	CreateTag(req models.CreateTagRequest) (*models.Tag, error)
	GetTags() ([]models.Tag, error)
	GetTag(id uint) (*models.Tag, error)
	TagNames() ([]string, error)
}

type tagService struct {
	tagRepo repositories.TagRepository
}

func NewTagService(tagRepo repositories.TagRepository) TagService {
	return &tagService{tagRepo: tagRepo}
}

func (s *tagService) CreateTag(req models.CreateTagRequest) (*models.Tag, error) {
	// Check if tag already exists
	_, err := s.tagRepo.GetByName(req.Name)
	if err == nil {
		return nil, models.ErrorValidation{Message: "tag already exists", Fields: []string{"name"}}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrorPersistence{Message: err.Error()}
	}

	tag := &models.Tag{
		Name:  req.Name,
		Color: req.Color,
	}

	if err := s.tagRepo.Create(tag); err != nil {
		return nil, models.ErrorPersistence{Message: err.Error()}
	}

	return tag, nil
}

func (s *tagService) GetTags() ([]models.Tag, error) {
	return s.tagRepo.GetAll()
}

func (s *tagService) GetTag(id uint) (*models.Tag, error) {
	tag, err := s.tagRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrorNotFound{Message: "tag not found"}
	}
	return tag, err
}

func (s *tagService) TagNames() ([]string, error) {
	return s.tagRepo.Names()
}

// resolveTags finds or creates the tags named in a document submission.
// Names are trimmed and deduplicated; blanks are dropped.
func resolveTags(repo repositories.TagRepository, names []string) ([]models.Tag, error) {
	var tags []models.Tag
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		tag, err := repo.GetByName(name)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = &models.Tag{Name: name}
			if err := repo.Create(tag); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}
