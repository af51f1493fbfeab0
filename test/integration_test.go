package tests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"gopkg.in/go-playground/validator.v9"
	enTranslations "gopkg.in/go-playground/validator.v9/translations/en"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mnt-generator/confluence"
	"mnt-generator/handlers"
	"mnt-generator/helper"
	"mnt-generator/middleware"
	"mnt-generator/models"
	"mnt-generator/repositories"
	"mnt-generator/services"
)

// fakePublisher satisfies confluence.Publisher without network calls.
type fakePublisher struct {
	failWith error
	created  int
	updated  int
}

func (f *fakePublisher) Render(title string, fields map[string]string) string {
	return confluence.RenderStorage(title, fields)
}

func (f *fakePublisher) CreatePage(space string, parentID *int64, title, body string) (*confluence.Page, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.created++
	return &confluence.Page{ID: 9001, URL: "https://wiki.example.com/pages/9001"}, nil
}

func (f *fakePublisher) UpdatePage(pageID int64, title, body string) (*confluence.Page, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.updated++
	return &confluence.Page{ID: pageID, URL: fmt.Sprintf("https://wiki.example.com/pages/%d", pageID)}, nil
}

type IntegrationTestSuite struct {
	suite.Suite
	db        *gorm.DB
	router    *gin.Engine
	publisher *fakePublisher
}

func (suite *IntegrationTestSuite) SetupSuite() {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5432 user=postgres password=postgres dbname=mnt_test_db sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		suite.T().Fatal("Failed to connect to test database:", err)
	}
	suite.db = db

	if err := RunSQLFile(db, "../migration/init.sql"); err != nil {
		suite.T().Fatal("Failed to apply schema:", err)
	}

	suite.setupRouter()
}

func (suite *IntegrationTestSuite) setupRouter() {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	enTranslations.RegisterDefaultTranslations(validate, translator)
	httpHelper := &helper.HTTPHelper{Validate: validate, Translator: translator}

	suite.publisher = &fakePublisher{}

	documentRepo := repositories.NewDocumentRepository(suite.db)
	versionRepo := repositories.NewDocumentVersionRepository(suite.db)
	fieldHistoryRepo := repositories.NewFieldHistoryRepository(suite.db)
	actionRepo := repositories.NewActionHistoryRepository(suite.db)
	tagRepo := repositories.NewTagRepository(suite.db)

	documentService := services.NewDocumentService(
		suite.db, documentRepo, versionRepo, fieldHistoryRepo, actionRepo, tagRepo, suite.publisher, logger)
	tagService := services.NewTagService(tagRepo)

	documentHandler := handlers.NewDocumentHandler(documentService, httpHelper)
	tagHandler := handlers.NewTagHandler(tagService, httpHelper)

	router := gin.New()
	router.Use(middleware.RequestLogger(logger))

	api := router.Group("/api")
	{
		mnt := api.Group("/mnt")
		{
			mnt.POST("", documentHandler.CreateDocument)
			mnt.GET("", documentHandler.GetDocuments)
			mnt.POST("/completeness", documentHandler.CheckCompleteness)
			mnt.GET("/:id", documentHandler.GetDocument)
			mnt.PUT("/:id", documentHandler.UpdateDocument)
			mnt.DELETE("/:id", documentHandler.DeleteDocument)
			mnt.POST("/:id/restore", documentHandler.RestoreDocument)
			mnt.POST("/:id/publish", documentHandler.PublishDocument)
			mnt.GET("/:id/completeness", documentHandler.GetCompleteness)
			mnt.GET("/:id/versions", documentHandler.GetVersions)
			mnt.GET("/:id/versions/compare", documentHandler.CompareVersions)
			mnt.GET("/:id/versions/:version_id", documentHandler.GetVersion)
			mnt.GET("/:id/field-history", documentHandler.GetFieldHistory)
			mnt.GET("/:id/history", documentHandler.GetActionHistory)
		}

		tags := api.Group("/tags")
		{
			tags.POST("", tagHandler.CreateTag)
			tags.GET("", tagHandler.GetTags)
			tags.GET("/:id", tagHandler.GetTag)
		}

		autocomplete := api.Group("/autocomplete")
		{
			autocomplete.GET("/projects", documentHandler.AutocompleteProjects)
			autocomplete.GET("/authors", documentHandler.AutocompleteAuthors)
			autocomplete.GET("/tags", tagHandler.AutocompleteTags)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/purge-deleted", documentHandler.PurgeDeleted)
		}
	}

	suite.router = router
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	suite.db.Exec("DROP TABLE IF EXISTS field_history")
	suite.db.Exec("DROP TABLE IF EXISTS action_history")
	suite.db.Exec("DROP TABLE IF EXISTS document_versions")
	suite.db.Exec("DROP TABLE IF EXISTS document_tags")
	suite.db.Exec("DROP TABLE IF EXISTS documents")
	suite.db.Exec("DROP TABLE IF EXISTS tags")
}

func (suite *IntegrationTestSuite) SetupTest() {
	suite.db.Exec("TRUNCATE TABLE field_history RESTART IDENTITY CASCADE")
	suite.db.Exec("TRUNCATE TABLE action_history RESTART IDENTITY CASCADE")
	suite.db.Exec("TRUNCATE TABLE document_versions RESTART IDENTITY CASCADE")
	suite.db.Exec("TRUNCATE TABLE document_tags RESTART IDENTITY CASCADE")
	suite.db.Exec("TRUNCATE TABLE documents RESTART IDENTITY CASCADE")
	suite.db.Exec("TRUNCATE TABLE tags RESTART IDENTITY CASCADE")
	suite.publisher.failWith = nil
}

type documentEnvelope struct {
	Code        int             `json:"code"`
	CodeType    string          `json:"code_type"`
	CodeMessage json.RawMessage `json:"code_message"`
	Data        models.Document `json:"data"`
}

func (suite *IntegrationTestSuite) request(method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewBuffer(data)
	} else {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *IntegrationTestSuite) createDocument(req models.DocumentRequest) models.Document {
	w := suite.request("POST", "/api/mnt", req)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	var resp documentEnvelope
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func baseDocumentRequest() models.DocumentRequest {
	return models.DocumentRequest{
		Title:   "МНТ Проект Альфа",
		Project: "Альфа",
		Author:  "Иванов",
		Data: map[string]string{
			"project_name":      "Проект Альфа",
			"introduction_text": "Документ описывает методику.",
			"goals_business":    "• Оценить готовность",
		},
		Tags:              []string{"нт"},
		ChangeDescription: "Создан документ",
	}
}

// completeDocumentRequest fills every checklist section so the publish
// gate passes.
func completeDocumentRequest() models.DocumentRequest {
	req := baseDocumentRequest()
	req.ConfluenceSpace = "LOAD"
	req.Tags = []string{"нт", "методика"}
	req.Data = map[string]string{
		"project_name":                    "Проект Альфа",
		"organization_name":               "ООО Ромашка",
		"system_version":                  "2.4",
		"author":                          "Иванов",
		"history_changes_table":           "Дата|Версия|Описание|Автор\n01.02.2025|0.1|Создан|Иванов",
		"approval_list_table":             "ФИО|Роль|Подпись\nПетров|Руководитель|",
		"abbreviations_table":             "Сокращение|Расшифровка\nНТ|Нагрузочное тестирование",
		"terminology_table":               "Термин|Описание\nПрофиль|Набор операций",
		"introduction_text":               "Документ описывает методику.",
		"goals_business":                  "• Оценить готовность",
		"goals_technical":                 "• Определить предел",
		"tasks_nt":                        "1. Разработать скрипты",
		"limitations_list":                "1. Тестирование на копии данных",
		"risks_table":                     "Риск|Влияние\nНедоступность стенда|Сдвиг сроков",
		"object_general":                  "Система обработки заявок.",
		"performance_requirements":        "• Время отклика до 2 секунд",
		"component_architecture_text":     "• Балансировщик",
		"test_stand_architecture_text":    "Стенд повторяет промышленную конфигурацию.",
		"planned_tests_intro":             "Перечень тестов приведен ниже.",
		"planned_tests_table":             "Тест|Цель\nМаксимальной производительности|Поиск предела",
		"completion_conditions":           "• Все тесты выполнены",
		"database_preparation_text":       "БД наполняется генератором.",
		"database_preparation_table":      "Таблица|Объем\nclients|1 млн",
		"load_modeling_principles":        "Нагрузка подается ступенями.",
		"load_profiles_intro":             "Профиль нагрузки П1.",
		"load_profiles_table":             "Операция|Интенсивность\nВход|100/час",
		"use_scenarios_intro":             "Сценарии повторяют действия пользователей.",
		"use_scenarios_table":             "Шаг|Действие\n1|Открыть форму",
		"emulators_description":           "Внешние системы заменены заглушками.",
		"monitoring_intro":                "Мониторинг ведется постоянно.",
		"monitoring_tools_intro":          "Используются следующие средства.",
		"monitoring_tools_table":          "Средство|Назначение\nGrafana|Визуализация",
		"system_resources_intro":          "Снимаются метрики ОС.",
		"system_resources_table":          "Метрика|Порог\nCPU|80%",
		"business_metrics_intro":          "Бизнес-метрики фиксируются.",
		"business_metrics_table":          "Метрика|Цель\nВремя отклика|2с",
		"customer_requirements_list":      "1. Предоставить доступ к стенду",
		"deliverables_intro":              "Сдаются следующие материалы.",
		"deliverables_table":              "Материал|Срок\nОтчет|После НТ",
		"deliverables_working_docs_table": "Рабочие документы\nМНТ|Перед НТ",
		"contacts_table":                  "ФИО|Роль|Email\nИванов|Инженер|ivanov@example.com",
		"tags":                            "нт, методика",
		"confluence_space":                "LOAD",
	}
	return req
}

func (suite *IntegrationTestSuite) TestCreateDocument() {
	document := suite.createDocument(baseDocumentRequest())

	suite.NotZero(document.ID)
	suite.Equal(models.StatusDraft, document.Status)
	suite.Equal("Иванов", document.Author)
	suite.Len(document.Tags, 1)

	// The history table was seeded with a first 0.1 entry.
	history, ok := document.Data["history_changes_table"].(string)
	suite.True(ok)
	suite.Contains(history, "|0.1|Создан документ|Иванов")

	// One snapshot labeled 0.1.
	var versions []models.DocumentVersion
	suite.db.Where("document_id = ?", document.ID).Find(&versions)
	suite.Len(versions, 1)
	suite.Equal("0.1", versions[0].VersionNumber)

	// Field history rows for every non-empty content field.
	var fieldCount int64
	suite.db.Model(&models.FieldHistory{}).Where("document_id = ?", document.ID).Count(&fieldCount)
	suite.NotZero(fieldCount)

	var actions []models.ActionHistory
	suite.db.Where("document_id = ?", document.ID).Find(&actions)
	suite.Len(actions, 1)
	suite.Equal(models.ActionCreated, actions[0].ActionType)
}

func (suite *IntegrationTestSuite) TestCreateDocumentRequiresAuthor() {
	req := baseDocumentRequest()
	req.Author = ""

	w := suite.request("POST", "/api/mnt", req)
	suite.Equal(http.StatusBadRequest, w.Code)

	var count int64
	suite.db.Model(&models.Document{}).Count(&count)
	suite.Zero(count)
}

func (suite *IntegrationTestSuite) TestSubstantiveUpdateCreatesVersion() {
	document := suite.createDocument(baseDocumentRequest())
	history := document.Data["history_changes_table"].(string)

	update := baseDocumentRequest()
	update.Author = "Петров"
	update.Data["introduction_text"] = "Переработанное введение."
	update.Data["history_changes_table"] = history + "\n06.02.2025|0.2|Переработано введение|Петров"

	w := suite.request("PUT", fmt.Sprintf("/api/mnt/%d", document.ID), update)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	var versions []models.DocumentVersion
	suite.db.Where("document_id = ?", document.ID).Order("id").Find(&versions)
	suite.Len(versions, 2)
	suite.Equal("0.2", versions[1].VersionNumber)

	var changed []models.FieldHistory
	suite.db.Where("document_id = ? AND field_name = ?", document.ID, "introduction_text").
		Order("id").Find(&changed)
	suite.NotEmpty(changed)
	last := changed[len(changed)-1]
	suite.Equal(models.ChangeUpdate, last.ChangeType)
	suite.Equal("Переработано введение", last.Description)
	suite.NotNil(last.DocumentVersionID)
}

func (suite *IntegrationTestSuite) TestNonSubstantiveUpdateWritesNothing() {
	document := suite.createDocument(baseDocumentRequest())
	history := document.Data["history_changes_table"].(string)

	var fieldsBefore, versionsBefore int64
	suite.db.Model(&models.FieldHistory{}).Count(&fieldsBefore)
	suite.db.Model(&models.DocumentVersion{}).Count(&versionsBefore)

	// Same content, author left empty: still accepted.
	update := baseDocumentRequest()
	update.Author = ""
	update.Data["history_changes_table"] = history

	w := suite.request("PUT", fmt.Sprintf("/api/mnt/%d", document.ID), update)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	var fieldsAfter, versionsAfter int64
	suite.db.Model(&models.FieldHistory{}).Count(&fieldsAfter)
	suite.db.Model(&models.DocumentVersion{}).Count(&versionsAfter)
	suite.Equal(fieldsBefore, fieldsAfter)
	suite.Equal(versionsBefore, versionsAfter)
}

func (suite *IntegrationTestSuite) TestSubstantiveUpdateWithoutAuthorRejected() {
	document := suite.createDocument(baseDocumentRequest())
	history := document.Data["history_changes_table"].(string)

	update := baseDocumentRequest()
	update.Author = ""
	update.Data["introduction_text"] = "Изменено без автора."
	update.Data["history_changes_table"] = history

	w := suite.request("PUT", fmt.Sprintf("/api/mnt/%d", document.ID), update)
	suite.Equal(http.StatusBadRequest, w.Code)

	// Nothing persisted.
	var stored models.Document
	suite.db.First(&stored, document.ID)
	suite.Equal("Документ описывает методику.", stored.Data["introduction_text"])
}

func (suite *IntegrationTestSuite) TestSoftDeleteAndRestore() {
	document := suite.createDocument(baseDocumentRequest())

	w := suite.request("DELETE", fmt.Sprintf("/api/mnt/%d?author=Иванов", document.ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	// Gone from the default list.
	w = suite.request("GET", "/api/mnt", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.NotContains(w.Body.String(), fmt.Sprintf(`"id":%d`, document.ID))

	// Present in the trash list.
	w = suite.request("GET", "/api/mnt?deleted=true", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), fmt.Sprintf(`"id":%d`, document.ID))

	// Direct GET is a 404 while trashed.
	w = suite.request("GET", fmt.Sprintf("/api/mnt/%d", document.ID), nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request("POST", fmt.Sprintf("/api/mnt/%d/restore?author=Иванов", document.ID), nil)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request("GET", fmt.Sprintf("/api/mnt/%d", document.ID), nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *IntegrationTestSuite) TestPublishGateRejectsIncompleteDocument() {
	document := suite.createDocument(baseDocumentRequest())

	w := suite.request("POST", fmt.Sprintf("/api/mnt/%d/publish", document.ID), models.PublishRequest{Author: "Иванов"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), "section-")
	suite.Zero(suite.publisher.created)
}

func (suite *IntegrationTestSuite) TestPublishSuccess() {
	req := completeDocumentRequest()
	document := suite.createDocument(req)

	w := suite.request("POST", fmt.Sprintf("/api/mnt/%d/publish", document.ID), models.PublishRequest{Author: "Иванов"})
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal(1, suite.publisher.created)

	var stored models.Document
	suite.db.First(&stored, document.ID)
	suite.Equal(models.StatusPublished, stored.Status)
	suite.NotNil(stored.ConfluencePageID)
	suite.Equal(int64(9001), *stored.ConfluencePageID)
	suite.NotNil(stored.LastPublishAt)
	suite.Nil(stored.LastError)

	// Republish updates the existing page.
	w = suite.request("POST", fmt.Sprintf("/api/mnt/%d/publish", document.ID), models.PublishRequest{Author: "Иванов"})
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal(1, suite.publisher.updated)
}

func (suite *IntegrationTestSuite) TestPublishFailureRecordedOnDocument() {
	document := suite.createDocument(completeDocumentRequest())
	suite.publisher.failWith = errors.New("space LOAD does not exist")

	w := suite.request("POST", fmt.Sprintf("/api/mnt/%d/publish", document.ID), models.PublishRequest{Author: "Иванов"})
	suite.Equal(http.StatusBadGateway, w.Code)

	var stored models.Document
	suite.db.First(&stored, document.ID)
	suite.Equal(models.StatusError, stored.Status)
	suite.NotNil(stored.LastError)
	suite.Equal("space LOAD does not exist", *stored.LastError)

	var actions []models.ActionHistory
	suite.db.Where("document_id = ? AND action_type = ?", document.ID, models.ActionPublishFailed).Find(&actions)
	suite.Len(actions, 1)
}

func (suite *IntegrationTestSuite) TestAdHocCompleteness() {
	w := suite.request("POST", "/api/mnt/completeness", models.CompletenessRequest{
		Data: map[string]string{"introduction_text": "Текст."},
	})
	suite.Equal(http.StatusOK, w.Code)

	var resp struct {
		Data services.CompletenessReport `json:"data"`
	}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(18, resp.Data.TotalSections)
	suite.Equal(1, resp.Data.FilledSections)
}

func (suite *IntegrationTestSuite) TestVersionCompareEndpoint() {
	document := suite.createDocument(baseDocumentRequest())
	history := document.Data["history_changes_table"].(string)

	update := baseDocumentRequest()
	update.Data["introduction_text"] = "Новое введение."
	update.Data["history_changes_table"] = history + "\n06.02.2025|0.2|Введение|Иванов"
	w := suite.request("PUT", fmt.Sprintf("/api/mnt/%d", document.ID), update)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	var versions []models.DocumentVersion
	suite.db.Where("document_id = ?", document.ID).Order("id").Find(&versions)
	suite.Len(versions, 2)

	w = suite.request("GET", fmt.Sprintf("/api/mnt/%d/versions/compare?from=%d&to=%d",
		document.ID, versions[0].ID, versions[1].ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	var resp struct {
		Data services.VersionComparison `json:"data"`
	}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("0.1", resp.Data.FromVersion)
	suite.Equal("0.2", resp.Data.ToVersion)
	suite.Len(resp.Data.FieldsChanged, 1)
	suite.Equal("introduction_text", resp.Data.FieldsChanged[0].FieldName)
}

func (suite *IntegrationTestSuite) TestFieldHistoryReplay() {
	document := suite.createDocument(baseDocumentRequest())
	history := document.Data["history_changes_table"].(string)

	update := baseDocumentRequest()
	update.Data["goals_business"] = "• Оценить готовность\n• Найти предел"
	update.Data["history_changes_table"] = history + "\n06.02.2025|0.2|Дополнены цели|Иванов"
	w := suite.request("PUT", fmt.Sprintf("/api/mnt/%d", document.ID), update)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request("GET", fmt.Sprintf("/api/mnt/%d/field-history?field=goals_business", document.ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			History []models.FieldHistory `json:"history"`
			Fields  []string              `json:"fields"`
		} `json:"data"`
	}
	suite.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Data.History, 2)
	// Newest first: the update, then the create.
	suite.Equal(models.ChangeUpdate, resp.Data.History[0].ChangeType)
	suite.Equal(models.ChangeCreate, resp.Data.History[1].ChangeType)
	suite.Contains(resp.Data.Fields, "goals_business")
}

func (suite *IntegrationTestSuite) TestTagsAndAutocomplete() {
	suite.createDocument(baseDocumentRequest())

	w := suite.request("GET", "/api/autocomplete/tags", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "нт")

	w = suite.request("GET", "/api/autocomplete/projects", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Альфа")

	w = suite.request("GET", "/api/autocomplete/authors", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "Иванов")

	w = suite.request("POST", "/api/tags", models.CreateTagRequest{Name: "отчет", Color: "#ff0000"})
	suite.Equal(http.StatusOK, w.Code)

	// Duplicate name rejected.
	w = suite.request("POST", "/api/tags", models.CreateTagRequest{Name: "отчет"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *IntegrationTestSuite) TestPurgeDeleted() {
	document := suite.createDocument(baseDocumentRequest())

	w := suite.request("DELETE", fmt.Sprintf("/api/mnt/%d", document.ID), nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request("POST", "/api/admin/purge-deleted", models.PurgeRequest{Days: 0})
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"purged":1`)

	var count int64
	suite.db.Unscoped().Model(&models.Document{}).Count(&count)
	suite.Zero(count)
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}

func RunSQLFile(db *gorm.DB, filepath string) error {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return err
	}
	return db.Exec(string(content)).Error
}
