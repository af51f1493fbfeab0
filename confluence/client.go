package confluence

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mnt-generator/config"
)

// Page is the subset of Confluence's content representation the service
// cares about after a create or update.
type Page struct {
	ID  int64
	URL string
}

// Publisher renders a document into Confluence storage format and pushes
// it to a page. The service layer only sees this interface, so tests swap
// in a fake and publishing stays optional when no credentials are set.
type Publisher interface {
	Render(title string, fields map[string]string) string
	CreatePage(space string, parentID *int64, title, body string) (*Page, error)
	UpdatePage(pageID int64, title, body string) (*Page, error)
}

type client struct {
	baseURL string
	auth    string
	http    *http.Client
}

// NewClient builds a Publisher against the Confluence REST API, or nil
// when the config carries no usable credentials.
func NewClient(cfg config.ConfluenceConfig) Publisher {
	if !cfg.Configured() {
		return nil
	}
	user, secret := cfg.Username, cfg.Password
	if cfg.Email != "" && cfg.APIToken != "" {
		user, secret = cfg.Email, cfg.APIToken
	}
	return &client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+secret)),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type contentBody struct {
	Storage struct {
		Value          string `json:"value"`
		Representation string `json:"representation"`
	} `json:"storage"`
}

type contentPayload struct {
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Space     *spaceRef       `json:"space,omitempty"`
	Ancestors []ancestorRef   `json:"ancestors,omitempty"`
	Body      contentBody     `json:"body"`
	Version   *contentVersion `json:"version,omitempty"`
}

type spaceRef struct {
	Key string `json:"key"`
}

type ancestorRef struct {
	ID string `json:"id"`
}

type contentVersion struct {
	Number int `json:"number"`
}

// Confluence serializes content ids as JSON strings.
type contentResponse struct {
	ID      string          `json:"id"`
	Version *contentVersion `json:"version"`
	Links   struct {
		Base  string `json:"base"`
		WebUI string `json:"webui"`
	} `json:"_links"`
}

func (c *client) CreatePage(space string, parentID *int64, title, body string) (*Page, error) {
	payload := contentPayload{Type: "page", Title: title, Space: &spaceRef{Key: space}}
	payload.Body.Storage.Value = body
	payload.Body.Storage.Representation = "storage"
	if parentID != nil {
		payload.Ancestors = []ancestorRef{{ID: strconv.FormatInt(*parentID, 10)}}
	}

	resp, err := c.do(http.MethodPost, "/rest/api/content", payload)
	if err != nil {
		return nil, err
	}
	return c.toPage(resp)
}

func (c *client) UpdatePage(pageID int64, title, body string) (*Page, error) {
	path := fmt.Sprintf("/rest/api/content/%d", pageID)

	current, err := c.do(http.MethodGet, path+"?expand=version", nil)
	if err != nil {
		return nil, err
	}
	nextVersion := 1
	if current.Version != nil {
		nextVersion = current.Version.Number + 1
	}

	payload := contentPayload{Type: "page", Title: title, Version: &contentVersion{Number: nextVersion}}
	payload.Body.Storage.Value = body
	payload.Body.Storage.Representation = "storage"

	resp, err := c.do(http.MethodPut, path, payload)
	if err != nil {
		return nil, err
	}
	return c.toPage(resp)
}

func (c *client) do(method, path string, payload interface{}) (*contentResponse, error) {
	var reqBody *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		return nil, fmt.Errorf("confluence %s %s: status %d: %s",
			method, path, resp.StatusCode, truncate(buf.String(), 500))
	}

	var content contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("confluence %s %s: decode response: %w", method, path, err)
	}
	return &content, nil
}

func (c *client) toPage(resp *contentResponse) (*Page, error) {
	id, err := strconv.ParseInt(resp.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("confluence returned non-numeric content id %q", resp.ID)
	}
	url := resp.Links.Base + resp.Links.WebUI
	if url == "" {
		url = c.baseURL + "/pages/viewpage.action?pageId=" + resp.ID
	}
	return &Page{ID: id, URL: url}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
