package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"zedit/api/internal/account"
	"zedit/api/internal/auth"
	"zedit/api/internal/avatar"
	"zedit/api/internal/export"
	"zedit/api/internal/perm"
	"zedit/api/internal/search"
	"zedit/api/internal/session"
	"zedit/api/internal/store"
	"zedit/api/internal/util"
)

// Store is the persistence surface the service needs.
type Store interface {
	account.UserStore

	InsertBoard(ctx context.Context, board store.Board) error
	GetBoard(ctx context.Context, boardID string) (store.Board, error)
	ListBoardsForUser(ctx context.Context, userID string) ([]store.Board, error)
	UpdateBoard(ctx context.Context, board store.Board) error
	DeleteBoard(ctx context.Context, boardID string) error

	InsertDocument(ctx context.Context, item store.Document) error
	GetDocument(ctx context.Context, documentID string) (store.Document, error)
	ListDocumentsForUser(ctx context.Context, userID string) ([]store.Document, error)
	ListDocumentsByBoard(ctx context.Context, boardID, userID string) ([]store.Document, error)
	ListAllDocuments(ctx context.Context) ([]store.Document, error)
	UpdateDocument(ctx context.Context, item store.Document) error
	DeleteDocument(ctx context.Context, documentID string) error

	InsertTasks(ctx context.Context, tasks []store.Task) error
	ListTasksByDocument(ctx context.Context, documentID string) ([]store.Task, error)
	GetTask(ctx context.Context, taskID string) (store.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID, status string) error

	InsertVersion(ctx context.Context, version store.Version) error
	ListVersionsByDocument(ctx context.Context, documentID string) ([]store.Version, error)
	GetVersion(ctx context.Context, versionID string) (store.Version, error)
}

// Transformer runs AI text transforms. Satisfied by ai.Service.
type Transformer interface {
	Transform(ctx context.Context, text, operation, tone string) (string, error)
}

// Exporter renders documents to downloadable formats.
type Exporter interface {
	Export(ctx context.Context, doc export.DocumentInfo, format export.Format) (*export.Result, error)
}

// Searcher answers caller-scoped document queries.
type Searcher interface {
	Search(ctx context.Context, q search.Query) search.Response
	IndexDocument(doc search.DocumentRecord)
	DeleteDocument(id string)
	Reindex(docs []search.DocumentRecord)
}

// Session identifies the authenticated caller on protected routes.
type Session struct {
	UserID      string
	Name        string
	Email       string
	ProfilePic  string
	AvatarColor string
	Theme       string
}

type Service struct {
	store     Store
	accounts  *account.Service
	jwtSecret []byte
	tokenTTL  time.Duration
	authCache *session.RedisCache
	avatars   *avatar.Store
	search    Searcher
	exporter  Exporter
	ai        Transformer
	pinger    interface{ PingContext(ctx context.Context) error }
	log       *zap.Logger
}

// Options carries the optional backends. Nil fields disable the feature.
type Options struct {
	AuthCache *session.RedisCache
	Avatars   *avatar.Store
	Search    Searcher
	Exporter  Exporter
	AI        Transformer
	Pinger    interface{ PingContext(ctx context.Context) error }
}

func NewService(st Store, accounts *account.Service, jwtSecret []byte, tokenTTL time.Duration, log *zap.Logger, opts Options) *Service {
	return &Service{
		store:     st,
		accounts:  accounts,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		authCache: opts.AuthCache,
		avatars:   opts.Avatars,
		search:    opts.Search,
		exporter:  opts.Exporter,
		ai:        opts.AI,
		pinger:    opts.Pinger,
		log:       log,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.PingContext(ctx)
}

// ── Auth ──

func sessionFromUser(u store.User) Session {
	return Session{
		UserID:      u.ID,
		Name:        u.Name,
		Email:       u.Email,
		ProfilePic:  u.ProfilePic,
		AvatarColor: u.AvatarColor,
		Theme:       u.Theme,
	}
}

// SessionFromToken resolves a bearer token into the calling user. A Redis
// cache, when configured, short-circuits the database lookup; Postgres stays
// the source of truth.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	if !auth.ValidShape(token) {
		return Session{}, auth.ErrInvalidToken
	}

	// Signature and expiry are always checked; the cache only saves the
	// user lookup, so an expired token cannot ride out its cache entry.
	userID, err := auth.ParseToken(s.jwtSecret, token)
	if err != nil {
		return Session{}, err
	}

	tokenHash := session.HashToken(token)
	if s.authCache != nil {
		if user, err := s.authCache.Get(ctx, tokenHash); err == nil {
			return sessionFromUser(user), nil
		}
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if store.ErrNotFound(err) {
			return Session{}, auth.ErrInvalidToken
		}
		return Session{}, err
	}

	if s.authCache != nil {
		if err := s.authCache.Put(ctx, tokenHash, user); err != nil {
			s.log.Debug("auth cache put failed", zap.Error(err))
		}
	}
	return sessionFromUser(user), nil
}

func (s *Service) issueToken(userID string) (string, error) {
	return auth.IssueToken(s.jwtSecret, userID, s.tokenTTL)
}

func (s *Service) userPayload(user store.User) (map[string]any, error) {
	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"_id":         user.ID,
		"name":        user.Name,
		"email":       user.Email,
		"profilePic":  user.ProfilePic,
		"avatarColor": user.AvatarColor,
		"theme":       user.Theme,
		"token":       token,
	}, nil
}

func (s *Service) Register(ctx context.Context, name, email, password string) (map[string]any, error) {
	user, err := s.accounts.Register(ctx, account.RegisterRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.userPayload(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (map[string]any, error) {
	user, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.userPayload(user)
}

func (s *Service) CurrentUser(sess Session) map[string]any {
	return map[string]any{
		"_id":         sess.UserID,
		"name":        sess.Name,
		"email":       sess.Email,
		"profilePic":  sess.ProfilePic,
		"avatarColor": sess.AvatarColor,
		"theme":       sess.Theme,
	}
}

// ProfileUpdateInput is what the multipart profile route collects.
type ProfileUpdateInput struct {
	Name        string
	RemovePic   bool
	PicBody     io.Reader
	PicSize     int64
	ContentType string
}

func (s *Service) UpdateProfile(ctx context.Context, sess Session, in ProfileUpdateInput) (map[string]any, error) {
	update := account.ProfileUpdate{Name: in.Name}

	switch {
	case in.PicBody != nil:
		if s.avatars == nil {
			return nil, domainError(http.StatusServiceUnavailable, "AVATAR_UNAVAILABLE", "Profile picture storage not configured", nil)
		}
		url, err := s.avatars.Upload(ctx, sess.UserID, in.ContentType, in.PicBody, in.PicSize)
		if err != nil {
			if errors.Is(err, avatar.ErrUnsupportedType) {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unsupported image type", nil)
			}
			return nil, err
		}
		update.ProfilePic = &url
	case in.RemovePic:
		empty := ""
		update.ProfilePic = &empty
		if s.avatars != nil {
			if err := s.avatars.Remove(ctx, sess.UserID); err != nil {
				s.log.Warn("remove avatar objects", zap.String("user_id", sess.UserID), zap.Error(err))
			}
		}
	}

	user, err := s.accounts.UpdateProfile(ctx, sess.UserID, update)
	if err != nil {
		return nil, err
	}
	if s.authCache != nil {
		// Stale cache entries expire on their own; nothing to invalidate by
		// user ID since keys are token hashes.
		s.log.Debug("profile updated", zap.String("user_id", user.ID))
	}
	return s.userPayload(user)
}

func (s *Service) UpdatePassword(ctx context.Context, sess Session, oldPassword, newPassword string) error {
	return s.accounts.UpdatePassword(ctx, sess.UserID, oldPassword, newPassword)
}

func (s *Service) UpdateTheme(ctx context.Context, sess Session, theme string) (map[string]any, error) {
	if err := s.accounts.UpdateTheme(ctx, sess.UserID, theme); err != nil {
		return nil, err
	}
	return map[string]any{"theme": theme}, nil
}

// ── Boards ──

func boardPayload(b store.Board) map[string]any {
	return map[string]any{
		"_id":           b.ID,
		"name":          b.Name,
		"owner":         b.OwnerID,
		"ownerName":     b.OwnerName,
		"isPrivate":     b.IsPrivate,
		"collaborators": collaboratorList(b.Collaborators),
		"createdAt":     b.CreatedAt,
		"updatedAt":     b.UpdatedAt,
	}
}

func collaboratorList(cs []store.Collaborator) []store.Collaborator {
	if cs == nil {
		return []store.Collaborator{}
	}
	return cs
}

// CreateBoardInput mirrors the create-board request body.
type CreateBoardInput struct {
	Name          string
	IsPrivate     *bool
	Collaborators []store.Collaborator
}

func (s *Service) CreateBoard(ctx context.Context, sess Session, in CreateBoardInput) (map[string]any, error) {
	name := in.Name
	if name == "" {
		name = "Untitled Board"
	}
	isPrivate := true
	if in.IsPrivate != nil {
		isPrivate = *in.IsPrivate
	}

	board := store.Board{
		ID:            util.NewID("brd"),
		Name:          name,
		OwnerID:       sess.UserID,
		OwnerName:     sess.Name,
		IsPrivate:     isPrivate,
		Collaborators: normalizeCollaborators(in.Collaborators, sess.UserID),
	}
	if err := s.store.InsertBoard(ctx, board); err != nil {
		return nil, err
	}
	created, err := s.store.GetBoard(ctx, board.ID)
	if err != nil {
		return nil, err
	}
	return boardPayload(created), nil
}

// normalizeCollaborators drops the owner and invalid permissions from a
// collaborator list sent by the client.
func normalizeCollaborators(cs []store.Collaborator, ownerID string) []store.Collaborator {
	out := make([]store.Collaborator, 0, len(cs))
	seen := map[string]bool{}
	for _, c := range cs {
		if c.UserID == "" || c.UserID == ownerID || seen[c.UserID] {
			continue
		}
		seen[c.UserID] = true
		out = append(out, store.Collaborator{
			UserID:     c.UserID,
			Permission: string(perm.Normalize(c.Permission)),
		})
	}
	return out
}

func (s *Service) ListBoards(ctx context.Context, sess Session) ([]map[string]any, error) {
	boards, err := s.store.ListBoardsForUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(boards))
	for _, b := range boards {
		out = append(out, boardPayload(b))
	}
	return out, nil
}

func (s *Service) GetBoard(ctx context.Context, sess Session, boardID string) (map[string]any, error) {
	board, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.IsPrivate && !boardMember(board, sess.UserID) {
		return nil, errForbidden()
	}
	return boardPayload(board), nil
}

// UpdateBoardInput carries the owner-editable board fields.
type UpdateBoardInput struct {
	Name          *string
	IsPrivate     *bool
	Collaborators []store.Collaborator
	SetCollabs    bool
}

func (s *Service) UpdateBoard(ctx context.Context, sess Session, boardID string, in UpdateBoardInput) (map[string]any, error) {
	board, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.OwnerID != sess.UserID {
		return nil, errForbidden()
	}

	if in.Name != nil {
		board.Name = *in.Name
	}
	if in.IsPrivate != nil {
		board.IsPrivate = *in.IsPrivate
	}
	if in.SetCollabs {
		board.Collaborators = normalizeCollaborators(in.Collaborators, board.OwnerID)
	}

	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return nil, err
	}
	updated, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return boardPayload(updated), nil
}

func (s *Service) DeleteBoard(ctx context.Context, sess Session, boardID string) error {
	board, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if board.OwnerID != sess.UserID {
		return errForbidden()
	}
	return s.store.DeleteBoard(ctx, boardID)
}

func (s *Service) ListBoardDocuments(ctx context.Context, sess Session, boardID string) ([]map[string]any, error) {
	board, err := s.loadBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.IsPrivate && !boardMember(board, sess.UserID) {
		return nil, errForbidden()
	}
	docs, err := s.store.ListDocumentsByBoard(ctx, boardID, sess.UserID)
	if err != nil {
		return nil, err
	}
	return documentPayloads(docs), nil
}

func (s *Service) loadBoard(ctx context.Context, boardID string) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		if store.ErrNotFound(err) {
			return store.Board{}, errNotFound("Board not found")
		}
		return store.Board{}, err
	}
	return board, nil
}

func boardMember(b store.Board, userID string) bool {
	if b.OwnerID == userID {
		return true
	}
	for _, c := range b.Collaborators {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// ── Documents ──

var documentStatuses = map[string]bool{
	"draft":     true,
	"review":    true,
	"in review": true,
	"published": true,
	"stable":    true,
}

func documentPayload(d store.Document) map[string]any {
	content := any(map[string]any{})
	if len(d.Content) > 0 {
		content = json.RawMessage(d.Content)
	}
	var board any
	if d.BoardID != nil {
		board = *d.BoardID
	}
	return map[string]any{
		"_id":           d.ID,
		"title":         d.Title,
		"content":       content,
		"status":        d.Status,
		"board":         board,
		"owner":         d.OwnerID,
		"ownerName":     d.OwnerName,
		"collaborators": collaboratorList(d.Collaborators),
		"lastModified":  d.LastModified,
	}
}

func documentPayloads(docs []store.Document) []map[string]any {
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentPayload(d))
	}
	return out
}

// CreateDocumentInput mirrors the create-document request body.
type CreateDocumentInput struct {
	Title         string
	Content       json.RawMessage
	Status        string
	BoardID       *string
	Collaborators []store.Collaborator
}

func (s *Service) CreateDocument(ctx context.Context, sess Session, in CreateDocumentInput) (map[string]any, error) {
	title := in.Title
	if title == "" {
		title = "Untitled Document"
	}
	status := in.Status
	if status == "" {
		status = "draft"
	}
	if !documentStatuses[status] {
		return nil, errValidation("invalid document status")
	}
	content := in.Content
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}

	doc := store.Document{
		ID:            util.NewID("doc"),
		Title:         title,
		Content:       content,
		Status:        status,
		BoardID:       in.BoardID,
		OwnerID:       sess.UserID,
		OwnerName:     sess.Name,
		Collaborators: normalizeCollaborators(in.Collaborators, sess.UserID),
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}
	created, err := s.store.GetDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	s.indexDocument(created)
	return documentPayload(created), nil
}

func (s *Service) ListDocuments(ctx context.Context, sess Session) ([]map[string]any, error) {
	docs, err := s.store.ListDocumentsForUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return documentPayloads(docs), nil
}

func (s *Service) GetDocument(ctx context.Context, sess Session, documentID string) (map[string]any, error) {
	doc, err := s.loadDocument(ctx, sess, documentID)
	if err != nil {
		return nil, err
	}
	return documentPayload(doc), nil
}

// DocumentUpdate carries a partial document update. Nil fields are left
// untouched; an empty BoardID detaches the document from its board.
type DocumentUpdate struct {
	Title         *string
	Content       json.RawMessage
	Status        *string
	BoardID       *string
	Collaborators []store.Collaborator
	SetCollabs    bool
}

func (s *Service) UpdateDocument(ctx context.Context, sess Session, documentID string, in DocumentUpdate) (map[string]any, error) {
	doc, err := s.loadDocument(ctx, sess, documentID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		doc.Title = *in.Title
	}
	if len(in.Content) > 0 {
		doc.Content = in.Content
	}
	if in.Status != nil {
		if !documentStatuses[*in.Status] {
			return nil, errValidation("invalid document status")
		}
		doc.Status = *in.Status
	}
	if in.BoardID != nil {
		if *in.BoardID == "" {
			doc.BoardID = nil
		} else {
			doc.BoardID = in.BoardID
		}
	}
	if in.SetCollabs {
		doc.Collaborators = normalizeCollaborators(in.Collaborators, doc.OwnerID)
	}

	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return nil, err
	}
	updated, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	s.indexDocument(updated)
	return documentPayload(updated), nil
}

func (s *Service) DeleteDocument(ctx context.Context, sess Session, documentID string) error {
	if _, err := s.loadDocument(ctx, sess, documentID); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteDocument(documentID)
	}
	return nil
}

// loadDocument fetches a document and checks the caller is its owner or a
// collaborator. There is no view/edit distinction here: any member may
// read and write.
func (s *Service) loadDocument(ctx context.Context, sess Session, documentID string) (store.Document, error) {
	doc, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		if store.ErrNotFound(err) {
			return store.Document{}, errNotFound("Document not found")
		}
		return store.Document{}, err
	}
	if !documentMember(doc, sess.UserID) {
		return store.Document{}, errForbidden()
	}
	return doc, nil
}

func documentMember(d store.Document, userID string) bool {
	if d.OwnerID == userID {
		return true
	}
	for _, c := range d.Collaborators {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

func searchRecord(d store.Document) search.DocumentRecord {
	ids := make([]string, 0, len(d.Collaborators))
	for _, c := range d.Collaborators {
		ids = append(ids, c.UserID)
	}
	boardID := ""
	if d.BoardID != nil {
		boardID = *d.BoardID
	}
	return search.DocumentRecord{
		ID:              d.ID,
		Title:           d.Title,
		Text:            search.PlainText(d.Content),
		Status:          d.Status,
		BoardID:         boardID,
		OwnerID:         d.OwnerID,
		CollaboratorIDs: ids,
	}
}

func (s *Service) indexDocument(d store.Document) {
	if s.search == nil {
		return
	}
	s.search.IndexDocument(searchRecord(d))
}

// ReindexSearch backfills the search index from the database. Called once at
// startup so a wiped Meilisearch instance catches up with existing documents.
func (s *Service) ReindexSearch(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	docs, err := s.store.ListAllDocuments(ctx)
	if err != nil {
		return err
	}
	records := make([]search.DocumentRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, searchRecord(d))
	}
	s.search.Reindex(records)
	return nil
}

func (s *Service) SearchDocuments(ctx context.Context, sess Session, q string, limit, offset int) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(http.StatusServiceUnavailable, "SEARCH_UNAVAILABLE", "Search not configured", nil)
	}
	return s.search.Search(ctx, search.Query{
		Text:   q,
		UserID: sess.UserID,
		Limit:  limit,
		Offset: offset,
	}), nil
}

// ── Export ──

func (s *Service) ExportDocument(ctx context.Context, sess Session, documentID string, format export.Format) (*export.Result, error) {
	if s.exporter == nil {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export not configured", nil)
	}
	doc, err := s.loadDocument(ctx, sess, documentID)
	if err != nil {
		return nil, err
	}

	boardName := ""
	if doc.BoardID != nil {
		if board, err := s.store.GetBoard(ctx, *doc.BoardID); err == nil {
			boardName = board.Name
		}
	}

	var content any
	if len(doc.Content) > 0 {
		if err := json.Unmarshal(doc.Content, &content); err != nil {
			s.log.Warn("document content is not valid JSON", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}

	return s.exporter.Export(ctx, export.DocumentInfo{
		ID:           doc.ID,
		Title:        doc.Title,
		Status:       doc.Status,
		Content:      content,
		OwnerName:    doc.OwnerName,
		BoardName:    boardName,
		LastModified: doc.LastModified,
	}, format)
}

// ── Tasks ──

var taskStatuses = map[string]bool{
	"todo":       true,
	"inprogress": true,
	"done":       true,
}

func taskPayload(t store.Task) map[string]any {
	return map[string]any{
		"_id":       t.ID,
		"doc":       t.DocumentID,
		"createdBy": t.CreatedBy,
		"text":      t.Text,
		"status":    t.Status,
		"createdAt": t.CreatedAt,
		"updatedAt": t.UpdatedAt,
	}
}

func (s *Service) CreateTasks(ctx context.Context, sess Session, documentID string, texts []string) ([]map[string]any, error) {
	if _, err := s.loadDocument(ctx, sess, documentID); err != nil {
		return nil, err
	}
	tasks := make([]store.Task, 0, len(texts))
	for _, text := range texts {
		if text == "" {
			continue
		}
		tasks = append(tasks, store.Task{
			ID:         util.NewID("tsk"),
			DocumentID: documentID,
			CreatedBy:  sess.UserID,
			Text:       text,
			Status:     "todo",
		})
	}
	if len(tasks) == 0 {
		return nil, errValidation("tasks must be a non-empty list of strings")
	}
	if err := s.store.InsertTasks(ctx, tasks); err != nil {
		return nil, err
	}
	listed, err := s.store.ListTasksByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(listed))
	for _, t := range listed {
		out = append(out, taskPayload(t))
	}
	return out, nil
}

func (s *Service) ListTasks(ctx context.Context, sess Session, documentID string) ([]map[string]any, error) {
	if _, err := s.loadDocument(ctx, sess, documentID); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasksByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskPayload(t))
	}
	return out, nil
}

func (s *Service) UpdateTask(ctx context.Context, sess Session, taskID, status string) (map[string]any, error) {
	if !taskStatuses[status] {
		return nil, errValidation("status must be todo, inprogress or done")
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		if store.ErrNotFound(err) {
			return nil, errNotFound("Task not found")
		}
		return nil, err
	}
	if _, err := s.loadDocument(ctx, sess, task.DocumentID); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTaskStatus(ctx, taskID, status); err != nil {
		return nil, err
	}
	task.Status = status
	return taskPayload(task), nil
}

// ── Versions ──

func versionPayload(v store.Version, includeSnapshot bool) map[string]any {
	payload := map[string]any{
		"_id":           v.ID,
		"doc":           v.DocumentID,
		"createdBy":     v.CreatedBy,
		"createdByName": v.CreatedByName,
		"summary":       v.Summary,
		"createdAt":     v.CreatedAt,
	}
	if includeSnapshot {
		payload["snapshot"] = v.Snapshot
	}
	return payload
}

func (s *Service) SaveVersion(ctx context.Context, sess Session, documentID string, snapshot []byte, summary string) (map[string]any, error) {
	if len(snapshot) == 0 {
		return nil, errValidation("snapshot is required")
	}
	if _, err := s.loadDocument(ctx, sess, documentID); err != nil {
		return nil, err
	}
	version := store.Version{
		ID:         util.NewID("ver"),
		DocumentID: documentID,
		CreatedBy:  sess.UserID,
		Snapshot:   snapshot,
		Summary:    summary,
	}
	if err := s.store.InsertVersion(ctx, version); err != nil {
		return nil, err
	}
	version.CreatedByName = sess.Name
	return versionPayload(version, false), nil
}

func (s *Service) ListVersions(ctx context.Context, sess Session, documentID string) ([]map[string]any, error) {
	if _, err := s.loadDocument(ctx, sess, documentID); err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersionsByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(versions))
	for _, v := range versions {
		out = append(out, versionPayload(v, false))
	}
	return out, nil
}

// RestoreVersion returns the stored snapshot verbatim. Applying it to the
// document is the editor's job, not the server's.
func (s *Service) RestoreVersion(ctx context.Context, sess Session, versionID string) (map[string]any, error) {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		if store.ErrNotFound(err) {
			return nil, errNotFound("Version not found")
		}
		return nil, err
	}
	if _, err := s.loadDocument(ctx, sess, version.DocumentID); err != nil {
		return nil, err
	}
	return versionPayload(version, true), nil
}

// ── AI ──

func (s *Service) TransformText(ctx context.Context, text, operation, tone string) (map[string]any, error) {
	if s.ai == nil {
		return nil, domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI transform not configured", nil)
	}
	result, err := s.ai.Transform(ctx, text, operation, tone)
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": result}, nil
}

// ── Error helpers ──

func errForbidden() *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", "Not authorized", nil)
}

func errNotFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

func errValidation(message string) *DomainError {
	return domainError(http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}
