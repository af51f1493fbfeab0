package services

import (
	"errors"
	"strings"
	"time"

	"mnt-generator/confluence"
	"mnt-generator/models"
	"mnt-generator/repositories"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultChangeDescription = "Заполнены основные пункты"
	changeSummaryLimit       = 50
)

type DocumentService interface {
	Create(req models.DocumentRequest) (*models.Document, error)
	Get(id uint) (*models.Document, error)
	GetList(params models.DocumentListParams) ([]models.Document, int64, error)
	Update(id uint, req models.DocumentRequest) (*models.Document, error)
	Delete(id uint, author string) error
	Restore(id uint, author string) (*models.Document, error)
	PurgeDeleted(days int) (int64, error)
	Publish(id uint, author string) (*models.Document, error)
	Completeness(id uint) (*CompletenessReport, error)
	GetVersions(id uint, page, limit int) ([]models.DocumentVersion, int64, error)
	GetVersion(id, versionID uint) (*models.DocumentVersion, error)
	CompareDocumentVersions(id, fromID, toID uint) (*VersionComparison, error)
	GetFieldHistory(id uint, fieldName string, limit int) ([]models.FieldHistory, error)
	GetFieldNames(id uint) ([]string, error)
	GetActionHistory(id uint, limit int) ([]models.ActionHistory, error)
	Projects() ([]string, error)
	Authors() ([]string, error)
}

type documentService struct {
	db               *gorm.DB
	documentRepo     repositories.DocumentRepository
	versionRepo      repositories.DocumentVersionRepository
	fieldHistoryRepo repositories.FieldHistoryRepository
	actionRepo       repositories.ActionHistoryRepository
	tagRepo          repositories.TagRepository
	publisher        confluence.Publisher
	log              *logrus.Logger
}

func NewDocumentService(
	db *gorm.DB,
	documentRepo repositories.DocumentRepository,
	versionRepo repositories.DocumentVersionRepository,
	fieldHistoryRepo repositories.FieldHistoryRepository,
	actionRepo repositories.ActionHistoryRepository,
	tagRepo repositories.TagRepository,
	publisher confluence.Publisher,
	log *logrus.Logger,
) DocumentService {
	return &documentService{
		db:               db,
		documentRepo:     documentRepo,
		versionRepo:      versionRepo,
		fieldHistoryRepo: fieldHistoryRepo,
		actionRepo:       actionRepo,
		tagRepo:          tagRepo,
		publisher:        publisher,
		log:              log,
	}
}

func (s *documentService) Create(req models.DocumentRequest) (*models.Document, error) {
	if strings.TrimSpace(req.Author) == "" {
		return nil, models.ErrorValidation{Message: "author is required", Fields: []string{"author"}}
	}

	data := copyData(req.Data)

	// Seed the document's own history-of-changes table when the form
	// arrives without one.
	if len(ParseHistoryTable(data["history_changes_table"])) == 0 {
		description := strings.TrimSpace(req.ChangeDescription)
		if description == "" {
			description = defaultChangeDescription
		}
		data["history_changes_table"] = AppendHistoryEntry(
			data["history_changes_table"], req.Author, description, time.Now())
	}

	versionNumber := LatestHistoryVersion(data["history_changes_table"])
	if versionNumber == "" {
		versionNumber = "0.1"
	}

	document := &models.Document{
		Title:              req.Title,
		Project:            req.Project,
		Author:             req.Author,
		Status:             models.StatusDraft,
		Data:               toJSONMap(data),
		ConfluenceSpace:    req.ConfluenceSpace,
		ConfluenceParentID: req.ConfluenceParentID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		docRepo := s.documentRepo.WithTx(tx)
		if err := docRepo.Create(document); err != nil {
			return err
		}

		tags, err := resolveTags(s.tagRepo.WithTx(tx), req.Tags)
		if err != nil {
			return err
		}
		if err := docRepo.ReplaceTags(document, tags); err != nil {
			return err
		}
		document.Tags = tags

		version := snapshotOf(document, versionNumber, req.Author)
		if err := s.versionRepo.WithTx(tx).Create(version); err != nil {
			return err
		}

		changes := CompareFieldSets(map[string]string{}, data)
		entries := fieldHistoryEntries(document.ID, &version.ID, req.Author, req.ChangeDescription, changes)
		if err := s.fieldHistoryRepo.WithTx(tx).CreateBatch(entries); err != nil {
			return err
		}

		return s.actionRepo.WithTx(tx).Create(&models.ActionHistory{
			DocumentID:        document.ID,
			UserName:          req.Author,
			ActionType:        models.ActionCreated,
			ActionDescription: "Документ создан",
			Details: datatypes.JSONMap{
				"version": versionNumber,
				"title":   req.Title,
			},
		})
	})
	if err != nil {
		return nil, models.ErrorPersistence{Message: err.Error()}
	}

	s.log.WithFields(logrus.Fields{
		"document_id": document.ID,
		"version":     versionNumber,
	}).Info("document created")

	return s.Get(document.ID)
}

func (s *documentService) Get(id uint) (*models.Document, error) {
	document, err := s.documentRepo.GetByID(id, false)
	if err != nil {
		return nil, s.mapError(err, "document not found")
	}
	return document, nil
}

func (s *documentService) GetList(params models.DocumentListParams) ([]models.Document, int64, error) {
	return s.documentRepo.GetList(params)
}

func (s *documentService) Update(id uint, req models.DocumentRequest) (*models.Document, error) {
	document, err := s.documentRepo.GetByID(id, false)
	if err != nil {
		return nil, s.mapError(err, "document not found")
	}

	oldFields := models.FieldSet(document.Data)
	newFields := copyData(req.Data)

	// The history table is append-only from the form's point of view: the
	// submitted table replaces the stored one only when it grew.
	oldHistory := oldFields["history_changes_table"]
	newHistory := newFields["history_changes_table"]
	if len(ParseHistoryTable(newHistory)) <= len(ParseHistoryTable(oldHistory)) {
		newFields["history_changes_table"] = oldHistory
		newHistory = oldHistory
	}

	changes := CompareFieldSets(oldFields, newFields)
	changes = append(changes, metadataChanges(document, req)...)
	addedEntry := AddedHistoryEntry(oldHistory, newHistory)
	substantive := len(changes) > 0 || addedEntry != nil

	if !substantive {
		s.applyRequest(document, req, newFields)
		if err := s.documentRepo.Update(document); err != nil {
			return nil, models.ErrorPersistence{Message: err.Error()}
		}
		return s.Get(document.ID)
	}

	var invalid []string
	if strings.TrimSpace(req.Author) == "" {
		invalid = append(invalid, "author")
	}
	if addedEntry != nil && strings.TrimSpace(addedEntry.Description) == "" {
		invalid = append(invalid, "change_description")
	}
	if len(invalid) > 0 {
		return nil, models.ErrorValidation{Message: "substantive change requires", Fields: invalid}
	}

	versionNumber := LatestHistoryVersion(newHistory)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		docRepo := s.documentRepo.WithTx(tx)

		s.applyRequest(document, req, newFields)
		document.Author = req.Author
		if err := docRepo.Update(document); err != nil {
			return err
		}

		tags, err := resolveTags(s.tagRepo.WithTx(tx), req.Tags)
		if err != nil {
			return err
		}
		if err := docRepo.ReplaceTags(document, tags); err != nil {
			return err
		}
		document.Tags = tags

		var versionID *uint
		if versionNumber != "" {
			exists, err := s.versionRepo.WithTx(tx).NumberExists(document.ID, versionNumber)
			if err != nil {
				return err
			}
			if !exists {
				version := snapshotOf(document, versionNumber, req.Author)
				if err := s.versionRepo.WithTx(tx).Create(version); err != nil {
					return err
				}
				versionID = &version.ID
			}
		}

		description := strings.TrimSpace(req.ChangeDescription)
		if addedEntry != nil {
			description = addedEntry.Description
		}
		entries := fieldHistoryEntries(document.ID, versionID, req.Author, description, changes)
		if err := s.fieldHistoryRepo.WithTx(tx).CreateBatch(entries); err != nil {
			return err
		}

		return s.actionRepo.WithTx(tx).Create(&models.ActionHistory{
			DocumentID:        document.ID,
			UserName:          req.Author,
			ActionType:        models.ActionUpdated,
			ActionDescription: description,
			Details:           changeSummary(changes, versionNumber),
		})
	})
	if err != nil {
		return nil, models.ErrorPersistence{Message: err.Error()}
	}

	s.log.WithFields(logrus.Fields{
		"document_id":    document.ID,
		"changed_fields": len(changes),
		"version":        versionNumber,
	}).Info("document updated")

	return s.Get(document.ID)
}

func (s *documentService) Delete(id uint, author string) error {
	document, err := s.documentRepo.GetByID(id, false)
	if err != nil {
		return s.mapError(err, "document not found")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.documentRepo.WithTx(tx).SoftDelete(document.ID); err != nil {
			return err
		}
		return s.actionRepo.WithTx(tx).Create(&models.ActionHistory{
			DocumentID:        document.ID,
			UserName:          author,
			ActionType:        models.ActionDeleted,
			ActionDescription: "Документ перемещен в корзину",
		})
	})
	if err != nil {
		return models.ErrorPersistence{Message: err.Error()}
	}
	return nil
}

func (s *documentService) Restore(id uint, author string) (*models.Document, error) {
	document, err := s.documentRepo.GetByID(id, true)
	if err != nil {
		return nil, s.mapError(err, "document not found")
	}
	if !document.DeletedAt.Valid {
		return nil, models.ErrorValidation{Message: "document is not deleted", Fields: []string{"id"}}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.documentRepo.WithTx(tx).Restore(document.ID); err != nil {
			return err
		}
		return s.actionRepo.WithTx(tx).Create(&models.ActionHistory{
			DocumentID:        document.ID,
			UserName:          author,
			ActionType:        models.ActionRestored,
			ActionDescription: "Документ восстановлен из корзины",
		})
	})
	if err != nil {
		return nil, models.ErrorPersistence{Message: err.Error()}
	}
	return s.Get(id)
}

func (s *documentService) PurgeDeleted(days int) (int64, error) {
	purged, err := s.documentRepo.PurgeDeletedOlderThan(days)
	if err != nil {
		return 0, models.ErrorPersistence{Message: err.Error()}
	}
	if purged > 0 {
		s.log.WithFields(logrus.Fields{"purged": purged, "days": days}).Info("deleted documents purged")
	}
	return purged, nil
}

// Publish pushes the document to Confluence. The completeness gate runs
// server-side regardless of what the form showed. A collaborator failure
// is recorded on the document, not rolled back.
func (s *documentService) Publish(id uint, author string) (*models.Document, error) {
	document, err := s.documentRepo.GetByID(id, false)
	if err != nil {
		return nil, s.mapError(err, "document not found")
	}

	report := CheckCompleteness(s.completenessFields(document))
	if report.CompletionPercentage < 100 {
		var unfilled []string
		for _, section := range report.Sections {
			if !section.Filled {
				unfilled = append(unfilled, section.ID)
			}
		}
		return nil, models.ErrorValidation{Message: "document is not complete", Fields: unfilled}
	}

	if s.publisher == nil {
		return nil, models.ErrorPublish{Message: "confluence is not configured"}
	}

	body := s.publisher.Render(document.Title, models.FieldSet(document.Data))

	var page *confluence.Page
	var pubErr error
	if document.ConfluencePageID != nil {
		page, pubErr = s.publisher.UpdatePage(*document.ConfluencePageID, document.Title, body)
	} else {
		page, pubErr = s.publisher.CreatePage(document.ConfluenceSpace, document.ConfluenceParentID, document.Title, body)
	}

	if pubErr != nil {
		message := pubErr.Error()
		document.Status = models.StatusError
		document.LastError = &message
		if err := s.documentRepo.Update(document); err != nil {
			return nil, models.ErrorPersistence{Message: err.Error()}
		}
		s.actionRepo.Create(&models.ActionHistory{
			DocumentID:        document.ID,
			UserName:          author,
			ActionType:        models.ActionPublishFailed,
			ActionDescription: message,
		})
		s.log.WithFields(logrus.Fields{"document_id": document.ID}).
			WithError(pubErr).Error("publish failed")
		return nil, models.ErrorPublish{Message: message}
	}

	now := time.Now()
	document.Status = models.StatusPublished
	document.ConfluencePageID = &page.ID
	document.ConfluencePageURL = page.URL
	document.LastPublishAt = &now
	document.LastError = nil
	if err := s.documentRepo.Update(document); err != nil {
		return nil, models.ErrorPersistence{Message: err.Error()}
	}

	s.actionRepo.Create(&models.ActionHistory{
		DocumentID:        document.ID,
		UserName:          author,
		ActionType:        models.ActionPublished,
		ActionDescription: "Документ опубликован в Confluence",
		Details: datatypes.JSONMap{
			"page_id":  page.ID,
			"page_url": page.URL,
		},
	})

	s.log.WithFields(logrus.Fields{
		"document_id": document.ID,
		"page_id":     page.ID,
	}).Info("document published")

	return s.Get(id)
}

func (s *documentService) Completeness(id uint) (*CompletenessReport, error) {
	document, err := s.documentRepo.GetByID(id, false)
	if err != nil {
		return nil, s.mapError(err, "document not found")
	}
	report := CheckCompleteness(s.completenessFields(document))
	return &report, nil
}

func (s *documentService) GetVersions(id uint, page, limit int) ([]models.DocumentVersion, int64, error) {
	if _, err := s.Get(id); err != nil {
		return nil, 0, err
	}
	return s.versionRepo.GetByDocument(id, page, limit)
}

func (s *documentService) GetVersion(id, versionID uint) (*models.DocumentVersion, error) {
	version, err := s.versionRepo.GetVersion(id, versionID)
	if err != nil {
		return nil, s.mapError(err, "version not found")
	}
	return version, nil
}

func (s *documentService) CompareDocumentVersions(id, fromID, toID uint) (*VersionComparison, error) {
	from, err := s.GetVersion(id, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.GetVersion(id, toID)
	if err != nil {
		return nil, err
	}
	comparison := CompareVersions(from, to)
	return &comparison, nil
}

func (s *documentService) GetFieldHistory(id uint, fieldName string, limit int) ([]models.FieldHistory, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.fieldHistoryRepo.GetByDocument(id, fieldName, limit)
}

func (s *documentService) GetFieldNames(id uint) ([]string, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.fieldHistoryRepo.FieldNames(id)
}

func (s *documentService) GetActionHistory(id uint, limit int) ([]models.ActionHistory, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.actionRepo.GetByDocument(id, limit)
}

func (s *documentService) Projects() ([]string, error) {
	return s.documentRepo.DistinctProjects()
}

func (s *documentService) Authors() ([]string, error) {
	return s.documentRepo.DistinctAuthors()
}

func (s *documentService) mapError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrorNotFound{Message: notFound}
	}
	return models.ErrorPersistence{Message: err.Error()}
}

func (s *documentService) applyRequest(document *models.Document, req models.DocumentRequest, fields map[string]string) {
	document.Title = req.Title
	document.Project = req.Project
	if strings.TrimSpace(req.Author) != "" {
		document.Author = req.Author
	}
	document.Data = toJSONMap(fields)
	document.ConfluenceSpace = req.ConfluenceSpace
	document.ConfluenceParentID = req.ConfluenceParentID
}

// completenessFields overlays the column-backed attributes on top of the
// JSON data so the checker sees author, tags and the space key even when
// the form never wrote them into data.
func (s *documentService) completenessFields(document *models.Document) map[string]string {
	fields := models.FieldSet(document.Data)
	if fields["author"] == "" {
		fields["author"] = document.Author
	}
	if fields["project_name"] == "" {
		fields["project_name"] = document.Project
	}
	if fields["confluence_space"] == "" {
		fields["confluence_space"] = document.ConfluenceSpace
	}
	if fields["tags"] == "" && len(document.Tags) > 0 {
		names := make([]string, len(document.Tags))
		for i, tag := range document.Tags {
			names[i] = tag.Name
		}
		fields["tags"] = strings.Join(names, ", ")
	}
	return fields
}

func snapshotOf(document *models.Document, versionNumber, createdBy string) *models.DocumentVersion {
	return &models.DocumentVersion{
		DocumentID:         document.ID,
		VersionNumber:      versionNumber,
		Title:              document.Title,
		Project:            document.Project,
		Author:             document.Author,
		Status:             document.Status,
		Data:               document.Data,
		ConfluenceSpace:    document.ConfluenceSpace,
		ConfluenceParentID: document.ConfluenceParentID,
		ConfluencePageID:   document.ConfluencePageID,
		ConfluencePageURL:  document.ConfluencePageURL,
		LastPublishAt:      document.LastPublishAt,
		CreatedBy:          createdBy,
	}
}

func metadataChanges(document *models.Document, req models.DocumentRequest) []FieldChange {
	var changes []FieldChange
	if !scalarsEqual(document.Title, req.Title) {
		changes = append(changes, FieldChange{
			FieldName:  "title",
			FieldPath:  "title",
			Label:      "Название документа",
			OldValue:   document.Title,
			NewValue:   req.Title,
			ChangeType: classifyChange(document.Title, req.Title),
		})
	}
	if !scalarsEqual(document.Project, req.Project) {
		changes = append(changes, FieldChange{
			FieldName:  "project",
			FieldPath:  "project",
			Label:      "Проект",
			OldValue:   document.Project,
			NewValue:   req.Project,
			ChangeType: classifyChange(document.Project, req.Project),
		})
	}
	return changes
}

func fieldHistoryEntries(documentID uint, versionID *uint, author, description string, changes []FieldChange) []models.FieldHistory {
	entries := make([]models.FieldHistory, 0, len(changes))
	for _, change := range changes {
		oldValue, newValue := change.OldValue, change.NewValue
		entries = append(entries, models.FieldHistory{
			DocumentID:        documentID,
			FieldName:         change.FieldName,
			FieldPath:         change.FieldPath,
			OldValue:          nullableValue(oldValue),
			NewValue:          nullableValue(newValue),
			ChangedBy:         author,
			ChangeType:        change.ChangeType,
			Description:       description,
			DocumentVersionID: versionID,
		})
	}
	return entries
}

func nullableValue(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func changeSummary(changes []FieldChange, versionNumber string) datatypes.JSONMap {
	summary := make([]interface{}, 0, changeSummaryLimit)
	for i, change := range changes {
		if i == changeSummaryLimit {
			break
		}
		summary = append(summary, map[string]interface{}{
			"field":       change.FieldName,
			"label":       change.Label,
			"change_type": string(change.ChangeType),
		})
	}
	details := datatypes.JSONMap{
		"changed_fields": len(changes),
		"changes":        summary,
	}
	if versionNumber != "" {
		details["version"] = versionNumber
	}
	return details
}

func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for key, value := range data {
		out[key] = value
	}
	return out
}

func toJSONMap(data map[string]string) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(data))
	for key, value := range data {
		out[key] = value
	}
	return out
}
