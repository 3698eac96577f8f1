package client

import (
	"context"
	"encoding/json"
	"os"
	"sync"
)

// Status is the transient call state a store exposes alongside its data.
// It is reset at the start of every operation.
type Status struct {
	IsLoading bool
	IsError   bool
	IsSuccess bool
	Message   string
}

func (s *Status) begin() {
	*s = Status{IsLoading: true}
}

func (s *Status) fail(err error) {
	*s = Status{IsError: true, Message: err.Error()}
}

func (s *Status) succeed(message string) {
	*s = Status{IsSuccess: true, Message: message}
}

// sessionRecord is what AuthStore persists between runs.
type sessionRecord struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// AuthStore holds the signed-in user and persists the session to a JSON
// file so a restart rehydrates it. Only the session survives restarts;
// the other stores refetch.
type AuthStore struct {
	mu     sync.Mutex
	client *Client
	path   string

	User   *User
	Status Status
}

// NewAuthStore rehydrates a saved session from path when one exists.
func NewAuthStore(c *Client, path string) *AuthStore {
	s := &AuthStore{client: c, path: path}
	s.rehydrate()
	return s
}

func (s *AuthStore) rehydrate() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var record sessionRecord
	if err := json.Unmarshal(data, &record); err != nil || record.Token == "" {
		return
	}
	user := record.User
	s.User = &user
	s.client.SetToken(record.Token)
}

func (s *AuthStore) persist() {
	if s.path == "" || s.User == nil {
		return
	}
	data, err := json.Marshal(sessionRecord{User: *s.User, Token: s.client.Token()})
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o600)
}

func (s *AuthStore) Register(ctx context.Context, name, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	user, err := s.client.Register(ctx, name, email, password)
	if err != nil {
		s.Status.fail(err)
		return
	}
	s.User = &user
	s.persist()
	s.Status.succeed("registered as " + user.Name)
}

func (s *AuthStore) Login(ctx context.Context, email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	user, err := s.client.Login(ctx, email, password)
	if err != nil {
		s.Status.fail(err)
		return
	}
	s.User = &user
	s.persist()
	s.Status.succeed("logged in as " + user.Name)
}

// Logout clears the in-memory session and the persisted file.
func (s *AuthStore) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.User = nil
	s.client.SetToken("")
	if s.path != "" {
		_ = os.Remove(s.path)
	}
	s.Status = Status{IsSuccess: true, Message: "logged out"}
}

// BoardStore caches the caller's boards. Mutations patch the cache only
// after the network call resolves.
type BoardStore struct {
	mu     sync.Mutex
	client *Client

	Boards []Board
	Status Status
}

func NewBoardStore(c *Client) *BoardStore {
	return &BoardStore{client: c}
}

func (s *BoardStore) Fetch(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	boards, err := s.client.ListBoards(ctx)
	if err != nil {
		s.Status.fail(err)
		return
	}
	s.Boards = boards
	s.Status.succeed("")
}

func (s *BoardStore) Create(ctx context.Context, in BoardInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	board, err := s.client.CreateBoard(ctx, in)
	if err != nil {
		s.Status.fail(err)
		return
	}
	s.Boards = append([]Board{board}, s.Boards...)
	s.Status.succeed("board created")
}

func (s *BoardStore) Update(ctx context.Context, boardID string, in BoardInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	board, err := s.client.UpdateBoard(ctx, boardID, in)
	if err != nil {
		s.Status.fail(err)
		return
	}
	for i := range s.Boards {
		if s.Boards[i].ID == board.ID {
			s.Boards[i] = board
			break
		}
	}
	s.Status.succeed("board updated")
}

func (s *BoardStore) Delete(ctx context.Context, boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	if err := s.client.DeleteBoard(ctx, boardID); err != nil {
		s.Status.fail(err)
		return
	}
	kept := s.Boards[:0]
	for _, b := range s.Boards {
		if b.ID != boardID {
			kept = append(kept, b)
		}
	}
	s.Boards = kept
	s.Status.succeed("board deleted")
}

// DocStore caches the caller's documents and the currently open one.
type DocStore struct {
	mu     sync.Mutex
	client *Client

	Docs    []Document
	Current *Document
	Status  Status
}

func NewDocStore(c *Client) *DocStore {
	return &DocStore{client: c}
}

func (s *DocStore) Fetch(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	docs, err := s.client.ListDocuments(ctx)
	if err != nil {
		s.Status.fail(err)
		return
	}
	s.Docs = docs
	s.Status.succeed("")
}

func (s *DocStore) Open(ctx context.Context, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	doc, err := s.client.GetDocument(ctx, documentID)
	if err != nil {
		s.Status.fail(err)
		return
	}
	s.Current = &doc
	s.Status.succeed("")
}

func (s *DocStore) Create(ctx context.Context, in DocumentInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	doc, err := s.client.CreateDocument(ctx, in)
	if err != nil {
		s.Status.fail(err)
		return
	}
	s.Docs = append([]Document{doc}, s.Docs...)
	s.Current = &doc
	s.Status.succeed("document created")
}

func (s *DocStore) Update(ctx context.Context, documentID string, in DocumentInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	doc, err := s.client.UpdateDocument(ctx, documentID, in)
	if err != nil {
		s.Status.fail(err)
		return
	}
	for i := range s.Docs {
		if s.Docs[i].ID == doc.ID {
			s.Docs[i] = doc
			break
		}
	}
	if s.Current != nil && s.Current.ID == doc.ID {
		s.Current = &doc
	}
	s.Status.succeed("document updated")
}

// SetStatus moves a document through its lifecycle.
func (s *DocStore) SetStatus(ctx context.Context, documentID, status string) {
	s.Update(ctx, documentID, DocumentInput{Status: &status})
}

func (s *DocStore) Delete(ctx context.Context, documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	if err := s.client.DeleteDocument(ctx, documentID); err != nil {
		s.Status.fail(err)
		return
	}
	kept := s.Docs[:0]
	for _, d := range s.Docs {
		if d.ID != documentID {
			kept = append(kept, d)
		}
	}
	s.Docs = kept
	if s.Current != nil && s.Current.ID == documentID {
		s.Current = nil
	}
	s.Status.succeed("document deleted")
}

// ThemeStore tracks the user's light/dark preference.
type ThemeStore struct {
	mu     sync.Mutex
	client *Client

	Theme  string
	Status Status
}

func NewThemeStore(c *Client, initial string) *ThemeStore {
	if initial == "" {
		initial = "light"
	}
	return &ThemeStore{client: c, Theme: initial}
}

func (s *ThemeStore) Toggle(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status.begin()

	next := "dark"
	if s.Theme == "dark" {
		next = "light"
	}
	theme, err := s.client.UpdateTheme(ctx, next)
	if err != nil {
		s.Status.fail(err)
		return
	}
	s.Theme = theme
	s.Status.succeed("theme set to " + theme)
}
