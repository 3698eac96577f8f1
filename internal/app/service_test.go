package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"zedit/api/internal/account"
	"zedit/api/internal/search"
	"zedit/api/internal/store"
)

// memStore is an in-memory Store for service and HTTP tests.
type memStore struct {
	mu        sync.Mutex
	users     map[string]store.User
	boards    map[string]store.Board
	documents map[string]store.Document
	tasks     map[string]store.Task
	versions  map[string]store.Version
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]store.User{},
		boards:    map[string]store.Board{},
		documents: map[string]store.Document{},
		tasks:     map[string]store.Task{},
		versions:  map[string]store.Version{},
	}
}

func (m *memStore) CreateUser(_ context.Context, user store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memStore) UpdateUserProfile(_ context.Context, userID, name, profilePic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.Name, u.ProfilePic, u.UpdatedAt = name, profilePic, time.Now()
	m.users[userID] = u
	return nil
}

func (m *memStore) UpdateUserPassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash, u.UpdatedAt = passwordHash, time.Now()
	m.users[userID] = u
	return nil
}

func (m *memStore) UpdateUserTheme(_ context.Context, userID, theme string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.Theme, u.UpdatedAt = theme, time.Now()
	m.users[userID] = u
	return nil
}

func (m *memStore) InsertBoard(_ context.Context, board store.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	board.CreatedAt, board.UpdatedAt = now, now
	if owner, ok := m.users[board.OwnerID]; ok {
		board.OwnerName = owner.Name
	}
	m.boards[board.ID] = board
	return nil
}

func (m *memStore) GetBoard(_ context.Context, boardID string) (store.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok {
		return store.Board{}, sql.ErrNoRows
	}
	return b, nil
}

func (m *memStore) ListBoardsForUser(_ context.Context, userID string) ([]store.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Board
	for _, b := range m.boards {
		if boardMember(b, userID) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateBoard(_ context.Context, board store.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.boards[board.ID]
	if !ok {
		return sql.ErrNoRows
	}
	board.CreatedAt = existing.CreatedAt
	board.OwnerID = existing.OwnerID
	board.OwnerName = existing.OwnerName
	board.UpdatedAt = time.Now()
	m.boards[board.ID] = board
	return nil
}

func (m *memStore) DeleteBoard(_ context.Context, boardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[boardID]; !ok {
		return sql.ErrNoRows
	}
	for id, d := range m.documents {
		if d.BoardID != nil && *d.BoardID == boardID {
			d.BoardID = nil
			m.documents[id] = d
		}
	}
	delete(m.boards, boardID)
	return nil
}

func (m *memStore) InsertDocument(_ context.Context, item store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.LastModified = time.Now()
	if owner, ok := m.users[item.OwnerID]; ok {
		item.OwnerName = owner.Name
	}
	m.documents[item.ID] = item
	return nil
}

func (m *memStore) GetDocument(_ context.Context, documentID string) (store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[documentID]
	if !ok {
		return store.Document{}, sql.ErrNoRows
	}
	return d, nil
}

func (m *memStore) ListDocumentsForUser(_ context.Context, userID string) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Document
	for _, d := range m.documents {
		if documentMember(d, userID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

func (m *memStore) ListAllDocuments(_ context.Context) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Document
	for _, d := range m.documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

func (m *memStore) ListDocumentsByBoard(_ context.Context, boardID, userID string) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Document
	for _, d := range m.documents {
		if d.BoardID != nil && *d.BoardID == boardID && documentMember(d, userID) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}

func (m *memStore) UpdateDocument(_ context.Context, item store.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.documents[item.ID]
	if !ok {
		return sql.ErrNoRows
	}
	item.OwnerID = existing.OwnerID
	item.OwnerName = existing.OwnerName
	item.LastModified = time.Now()
	m.documents[item.ID] = item
	return nil
}

func (m *memStore) DeleteDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[documentID]; !ok {
		return sql.ErrNoRows
	}
	delete(m.documents, documentID)
	for id, t := range m.tasks {
		if t.DocumentID == documentID {
			delete(m.tasks, id)
		}
	}
	for id, v := range m.versions {
		if v.DocumentID == documentID {
			delete(m.versions, id)
		}
	}
	return nil
}

func (m *memStore) InsertTasks(_ context.Context, tasks []store.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, t := range tasks {
		t.CreatedAt, t.UpdatedAt = now, now
		m.tasks[t.ID] = t
	}
	return nil
}

func (m *memStore) ListTasksByDocument(_ context.Context, documentID string) ([]store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Task
	for _, t := range m.tasks {
		if t.DocumentID == documentID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetTask(_ context.Context, taskID string) (store.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return store.Task{}, sql.ErrNoRows
	}
	return t, nil
}

func (m *memStore) UpdateTaskStatus(_ context.Context, taskID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return sql.ErrNoRows
	}
	t.Status, t.UpdatedAt = status, time.Now()
	m.tasks[taskID] = t
	return nil
}

func (m *memStore) InsertVersion(_ context.Context, version store.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	version.CreatedAt = time.Now()
	if creator, ok := m.users[version.CreatedBy]; ok {
		version.CreatedByName = creator.Name
	}
	m.versions[version.ID] = version
	return nil
}

func (m *memStore) ListVersionsByDocument(_ context.Context, documentID string) ([]store.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Version
	for _, v := range m.versions {
		if v.DocumentID == documentID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetVersion(_ context.Context, versionID string) (store.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[versionID]
	if !ok {
		return store.Version{}, sql.ErrNoRows
	}
	return v, nil
}

// ── Test helpers ──

func newTestService(ms *memStore, opts Options) *Service {
	return NewService(ms, account.NewService(ms), []byte("test-secret"), time.Hour, zap.NewNop(), opts)
}

func newTestServer(ms *memStore, opts Options) *HTTPServer {
	return NewHTTPServer(newTestService(ms, opts), "*", true, zap.NewNop())
}

func doJSON(t *testing.T, server *HTTPServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func parsePayload(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func parseList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var payload []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

// registerUser creates an account over HTTP and returns its id and token.
func registerUser(t *testing.T, server *HTTPServer, name, email string) (userID, token string) {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/users/register", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": "secret123",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d body=%s", email, rr.Code, rr.Body.String())
	}
	payload := parsePayload(t, rr)
	userID, _ = payload["_id"].(string)
	token, _ = payload["token"].(string)
	if userID == "" || token == "" {
		t.Fatalf("register %s: missing _id or token in %v", email, payload)
	}
	return userID, token
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

// fakeTransformer satisfies Transformer for AI route tests.
type fakeTransformer struct {
	result string
	err    error
	lastOp string
}

func (f *fakeTransformer) Transform(_ context.Context, text, operation, tone string) (string, error) {
	f.lastOp = operation
	if f.err != nil {
		return "", f.err
	}
	if f.result != "" {
		return f.result, nil
	}
	return fmt.Sprintf("%s(%s)", operation, text), nil
}

// fakeSearcher satisfies Searcher and records what got indexed.
type fakeSearcher struct {
	mu        sync.Mutex
	indexed   []search.DocumentRecord
	reindexed []search.DocumentRecord
	deleted   []string
}

func (f *fakeSearcher) Search(_ context.Context, q search.Query) search.Response {
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (f *fakeSearcher) IndexDocument(doc search.DocumentRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, doc)
}

func (f *fakeSearcher) Reindex(docs []search.DocumentRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reindexed = append(f.reindexed, docs...)
}

func (f *fakeSearcher) DeleteDocument(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}
