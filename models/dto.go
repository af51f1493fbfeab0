package models

type DocumentRequest struct {
	Title              string            `json:"title" binding:"required,min=1,max=500"`
	Project            string            `json:"project" binding:"required,min=1,max=200"`
	Author             string            `json:"author" binding:"max=200"`
	Data               map[string]string `json:"data"`
	Tags               []string          `json:"tags"`
	ConfluenceSpace    string            `json:"confluence_space"`
	ConfluenceParentID *int64            `json:"confluence_parent_id"`
	ChangeDescription  string            `json:"change_description"`
}

type DocumentListParams struct {
	Status    string `form:"status"`
	Project   string `form:"project"`
	Author    string `form:"author"`
	TagID     uint   `form:"tag_id"`
	Deleted   bool   `form:"deleted"`
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=10"`
	SortBy    string `form:"sort_by,default=updated_at"`
	SortOrder string `form:"sort_order,default=desc"`
}

type CompletenessRequest struct {
	Data map[string]string `json:"data" binding:"required"`
}

type PublishRequest struct {
	Author string `json:"author"`
}

type CreateTagRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Color string `json:"color"`
}

type PurgeRequest struct {
	Days int `json:"days" binding:"min=0"`
}
