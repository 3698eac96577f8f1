// Package client is a Go SDK for the zedit API. It wraps the REST surface
// in typed calls and provides state stores mirroring the server resources.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx response decoded from the server's error shape.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// User mirrors the user payload, including the bearer token on auth calls.
type User struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	ProfilePic  string `json:"profilePic"`
	AvatarColor string `json:"avatarColor"`
	Theme       string `json:"theme"`
	Token       string `json:"token,omitempty"`
}

// Collaborator is a board or document member.
type Collaborator struct {
	UserID     string `json:"userId"`
	Permission string `json:"permission"`
}

type Board struct {
	ID            string         `json:"_id"`
	Name          string         `json:"name"`
	Owner         string         `json:"owner"`
	OwnerName     string         `json:"ownerName"`
	IsPrivate     bool           `json:"isPrivate"`
	Collaborators []Collaborator `json:"collaborators"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type Document struct {
	ID            string          `json:"_id"`
	Title         string          `json:"title"`
	Content       json.RawMessage `json:"content"`
	Status        string          `json:"status"`
	Board         *string         `json:"board"`
	Owner         string          `json:"owner"`
	OwnerName     string          `json:"ownerName"`
	Collaborators []Collaborator  `json:"collaborators"`
	LastModified  time.Time       `json:"lastModified"`
}

type Task struct {
	ID        string    `json:"_id"`
	Doc       string    `json:"doc"`
	CreatedBy string    `json:"createdBy"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Version struct {
	ID            string    `json:"_id"`
	Doc           string    `json:"doc"`
	CreatedBy     string    `json:"createdBy"`
	CreatedByName string    `json:"createdByName"`
	Summary       string    `json:"summary"`
	Snapshot      []byte    `json:"snapshot,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type SearchHit struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Status  string `json:"status"`
	BoardID string `json:"boardId,omitempty"`
}

type SearchResponse struct {
	Results []SearchHit `json:"results"`
	Total   int         `json:"total"`
	Query   string      `json:"query"`
}

// Client is a thin HTTP wrapper over the API. One round trip per call,
// no retries. Safe for concurrent use once the token is set.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithToken sets the bearer token up front, for rehydrated sessions.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token used on subsequent calls.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ── Auth ──

func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/api/users/register", map[string]string{
		"name": name, "email": email, "password": password,
	}, &user)
	if err == nil {
		c.token = user.Token
	}
	return user, err
}

func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/api/users/login", map[string]string{
		"email": email, "password": password,
	}, &user)
	if err == nil {
		c.token = user.Token
	}
	return user, err
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &user)
	return user, err
}

func (c *Client) UpdatePassword(ctx context.Context, oldPassword, newPassword string) error {
	return c.do(ctx, http.MethodPut, "/api/users/password", map[string]string{
		"oldPassword": oldPassword, "newPassword": newPassword,
	}, nil)
}

func (c *Client) UpdateTheme(ctx context.Context, theme string) (string, error) {
	var out struct {
		Theme string `json:"theme"`
	}
	err := c.do(ctx, http.MethodPut, "/api/users/theme", map[string]string{"theme": theme}, &out)
	return out.Theme, err
}

// ── Boards ──

// BoardInput carries board create/update fields. Nil pointers are omitted
// so the server applies its defaults or keeps current values.
type BoardInput struct {
	Name          *string        `json:"name,omitempty"`
	IsPrivate     *bool          `json:"isPrivate,omitempty"`
	Collaborators []Collaborator `json:"collaborators,omitempty"`
}

func (c *Client) CreateBoard(ctx context.Context, in BoardInput) (Board, error) {
	var board Board
	err := c.do(ctx, http.MethodPost, "/api/boards", in, &board)
	return board, err
}

func (c *Client) ListBoards(ctx context.Context) ([]Board, error) {
	var boards []Board
	err := c.do(ctx, http.MethodGet, "/api/boards", nil, &boards)
	return boards, err
}

func (c *Client) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var board Board
	err := c.do(ctx, http.MethodGet, "/api/boards/"+boardID, nil, &board)
	return board, err
}

func (c *Client) UpdateBoard(ctx context.Context, boardID string, in BoardInput) (Board, error) {
	var board Board
	err := c.do(ctx, http.MethodPut, "/api/boards/"+boardID, in, &board)
	return board, err
}

func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	return c.do(ctx, http.MethodDelete, "/api/boards/"+boardID, nil, nil)
}

func (c *Client) ListBoardDocuments(ctx context.Context, boardID string) ([]Document, error) {
	var docs []Document
	err := c.do(ctx, http.MethodGet, "/api/boards/"+boardID+"/docs", nil, &docs)
	return docs, err
}

// ── Documents ──

type DocumentInput struct {
	Title         *string         `json:"title,omitempty"`
	Content       json.RawMessage `json:"content,omitempty"`
	Status        *string         `json:"status,omitempty"`
	BoardID       *string         `json:"boardId,omitempty"`
	Collaborators []Collaborator  `json:"collaborators,omitempty"`
}

func (c *Client) CreateDocument(ctx context.Context, in DocumentInput) (Document, error) {
	var doc Document
	err := c.do(ctx, http.MethodPost, "/api/docs", in, &doc)
	return doc, err
}

func (c *Client) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := c.do(ctx, http.MethodGet, "/api/docs", nil, &docs)
	return docs, err
}

func (c *Client) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var doc Document
	err := c.do(ctx, http.MethodGet, "/api/docs/"+documentID, nil, &doc)
	return doc, err
}

func (c *Client) UpdateDocument(ctx context.Context, documentID string, in DocumentInput) (Document, error) {
	var doc Document
	err := c.do(ctx, http.MethodPut, "/api/docs/"+documentID, in, &doc)
	return doc, err
}

func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	return c.do(ctx, http.MethodDelete, "/api/docs/"+documentID, nil, nil)
}

func (c *Client) SearchDocuments(ctx context.Context, query string, limit, offset int) (SearchResponse, error) {
	path := "/api/docs/search?q=" + url.QueryEscape(query)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	if offset > 0 {
		path += "&offset=" + strconv.Itoa(offset)
	}
	var out SearchResponse
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// ── Tasks ──

func (c *Client) CreateTasks(ctx context.Context, documentID string, texts []string) ([]Task, error) {
	var tasks []Task
	err := c.do(ctx, http.MethodPost, "/api/docs/"+documentID+"/tasks", map[string]any{"tasks": texts}, &tasks)
	return tasks, err
}

func (c *Client) ListTasks(ctx context.Context, documentID string) ([]Task, error) {
	var tasks []Task
	err := c.do(ctx, http.MethodGet, "/api/docs/"+documentID+"/tasks", nil, &tasks)
	return tasks, err
}

func (c *Client) UpdateTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	var task Task
	err := c.do(ctx, http.MethodPut, "/api/tasks/"+taskID, map[string]string{"status": status}, &task)
	return task, err
}

// ── Versions ──

func (c *Client) SaveVersion(ctx context.Context, documentID string, snapshot []byte, summary string) (Version, error) {
	var version Version
	err := c.do(ctx, http.MethodPost, "/api/docs/"+documentID+"/versions", map[string]any{
		"snapshot": snapshot, // []byte marshals to base64, as the server expects
		"summary":  summary,
	}, &version)
	return version, err
}

func (c *Client) ListVersions(ctx context.Context, documentID string) ([]Version, error) {
	var versions []Version
	err := c.do(ctx, http.MethodGet, "/api/docs/"+documentID+"/versions", nil, &versions)
	return versions, err
}

// RestoreVersion fetches the stored snapshot bytes for a version.
func (c *Client) RestoreVersion(ctx context.Context, versionID string) (Version, error) {
	var version Version
	err := c.do(ctx, http.MethodGet, "/api/versions/"+versionID+"/restore", nil, &version)
	return version, err
}

// ── AI ──

func (c *Client) Transform(ctx context.Context, text, operation, tone string) (string, error) {
	var out struct {
		Result string `json:"result"`
	}
	err := c.do(ctx, http.MethodPost, "/api/ai/transform", map[string]string{
		"text": text, "operation": operation, "tone": tone,
	}, &out)
	return out.Result, err
}
