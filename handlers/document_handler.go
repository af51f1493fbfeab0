package handlers

import (
	"strconv"

	"mnt-generator/helper"
	"mnt-generator/models"
	"mnt-generator/services"

	"github.com/gin-gonic/gin"
	"gopkg.in/go-playground/validator.v9"
)

type DocumentHandler struct {
	documentService services.DocumentService
	Helper          *helper.HTTPHelper
}

func NewDocumentHandler(documentService services.DocumentService, httpHelper *helper.HTTPHelper) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, Helper: httpHelper}
}

func (h *DocumentHandler) documentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		h.Helper.SendBadRequest(c, "invalid document id", h.Helper.EmptyJsonMap())
		return 0, false
	}
	return uint(id), true
}

func (h *DocumentHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			h.Helper.SendValidationError(c, validationErrors)
			return false
		}
		h.Helper.SendBadRequest(c, err.Error(), h.Helper.EmptyJsonMap())
		return false
	}
	return true
}

func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req models.DocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	document, err := h.documentService.Create(req)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Document created", document)
}

func (h *DocumentHandler) GetDocuments(c *gin.Context) {
	var params models.DocumentListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBadRequest(c, err.Error(), h.Helper.EmptyJsonMap())
		return
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	documents, total, err := h.documentService.GetList(params)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Documents loaded", map[string]interface{}{
		"documents":  documents,
		"pagination": h.Helper.GeneratePaging(c, 0, 0, params.Limit, params.Page, int(total)),
	})
}

func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	document, err := h.documentService.Get(id)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Document loaded", document)
}

func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	var req models.DocumentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	document, err := h.documentService.Update(id, req)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Document saved", document)
}

func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	if err := h.documentService.Delete(id, c.Query("author")); err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Document moved to trash", h.Helper.EmptyJsonMap())
}

func (h *DocumentHandler) RestoreDocument(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	document, err := h.documentService.Restore(id, c.Query("author"))
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Document restored", document)
}

func (h *DocumentHandler) PublishDocument(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	var req models.PublishRequest
	// Body is optional; author defaults to the stored document author.
	c.ShouldBindJSON(&req)

	document, err := h.documentService.Publish(id, req.Author)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Document published", document)
}

func (h *DocumentHandler) GetCompleteness(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	report, err := h.documentService.Completeness(id)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Completeness calculated", report)
}

// CheckCompleteness evaluates an unsaved field set straight from the form.
func (h *DocumentHandler) CheckCompleteness(c *gin.Context) {
	var req models.CompletenessRequest
	if !h.bindJSON(c, &req) {
		return
	}

	report := services.CheckCompleteness(req.Data)
	h.Helper.SendSuccess(c, "Completeness calculated", report)
}

func (h *DocumentHandler) GetVersions(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	versions, total, err := h.documentService.GetVersions(id, page, limit)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Versions loaded", map[string]interface{}{
		"versions":   versions,
		"pagination": h.Helper.GeneratePaging(c, 0, 0, limit, page, int(total)),
	})
}

func (h *DocumentHandler) GetVersion(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}
	versionID, err := strconv.ParseUint(c.Param("version_id"), 10, 32)
	if err != nil {
		h.Helper.SendBadRequest(c, "invalid version id", h.Helper.EmptyJsonMap())
		return
	}

	version, err := h.documentService.GetVersion(id, uint(versionID))
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Version loaded", version)
}

func (h *DocumentHandler) CompareVersions(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	fromID, errFrom := strconv.ParseUint(c.Query("from"), 10, 32)
	toID, errTo := strconv.ParseUint(c.Query("to"), 10, 32)
	if errFrom != nil || errTo != nil {
		h.Helper.SendBadRequest(c, "from and to version ids are required", h.Helper.EmptyJsonMap())
		return
	}

	comparison, err := h.documentService.CompareDocumentVersions(id, uint(fromID), uint(toID))
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Versions compared", comparison)
}

func (h *DocumentHandler) GetFieldHistory(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 {
		limit = 100
	}

	history, err := h.documentService.GetFieldHistory(id, c.Query("field"), limit)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	fields, err := h.documentService.GetFieldNames(id)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Field history loaded", map[string]interface{}{
		"history": history,
		"fields":  fields,
	})
}

func (h *DocumentHandler) GetActionHistory(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 {
		limit = 100
	}

	history, err := h.documentService.GetActionHistory(id, limit)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Action history loaded", history)
}

// ViewDocument is the read-only document view used by shared links.
func (h *DocumentHandler) ViewDocument(c *gin.Context) {
	id, ok := h.documentID(c)
	if !ok {
		return
	}

	document, err := h.documentService.Get(id)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	report, err := h.documentService.Completeness(id)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Document view", map[string]interface{}{
		"document":     document,
		"completeness": report,
	})
}

func (h *DocumentHandler) AutocompleteProjects(c *gin.Context) {
	projects, err := h.documentService.Projects()
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}
	h.Helper.SendSuccess(c, "Projects loaded", projects)
}

func (h *DocumentHandler) AutocompleteAuthors(c *gin.Context) {
	authors, err := h.documentService.Authors()
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}
	h.Helper.SendSuccess(c, "Authors loaded", authors)
}

func (h *DocumentHandler) PurgeDeleted(c *gin.Context) {
	var req models.PurgeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	purged, err := h.documentService.PurgeDeleted(req.Days)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Purge finished", map[string]interface{}{"purged": purged})
}
