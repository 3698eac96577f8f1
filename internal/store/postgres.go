package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// ── Users ──

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, profile_pic, avatar_color, theme)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.ProfilePic, user.AvatarColor, user.Theme)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, profile_pic, avatar_color, theme, created_at, updated_at
		FROM users
		WHERE email=$1
	`, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.ProfilePic, &user.AvatarColor, &user.Theme, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, profile_pic, avatar_color, theme, created_at, updated_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.ProfilePic, &user.AvatarColor, &user.Theme, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, userID, name, profilePic string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET name=$2, profile_pic=$3, updated_at=NOW() WHERE id=$1
	`, userID, name, profilePic)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserTheme(ctx context.Context, userID, theme string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET theme=$2, updated_at=NOW() WHERE id=$1
	`, userID, theme)
	if err != nil {
		return fmt.Errorf("update user theme: %w", err)
	}
	return nil
}

// ── Boards ──

func (s *PostgresStore) InsertBoard(ctx context.Context, board Board) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert board: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO boards (id, name, owner_id, is_private)
		VALUES ($1, $2, $3, $4)
	`, board.ID, board.Name, board.OwnerID, board.IsPrivate); err != nil {
		return fmt.Errorf("insert board: %w", err)
	}

	for _, c := range board.Collaborators {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO board_collaborators (board_id, user_id, permission)
			VALUES ($1, $2, $3)
			ON CONFLICT (board_id, user_id) DO UPDATE SET permission=EXCLUDED.permission
		`, board.ID, c.UserID, c.Permission); err != nil {
			return fmt.Errorf("insert board collaborator: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var board Board
	err := s.db.QueryRowContext(ctx, `
		SELECT b.id, b.name, b.owner_id, u.name, b.is_private, b.created_at, b.updated_at
		FROM boards b
		JOIN users u ON u.id = b.owner_id
		WHERE b.id=$1
	`, boardID).Scan(&board.ID, &board.Name, &board.OwnerID, &board.OwnerName, &board.IsPrivate, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return Board{}, err
	}

	collaborators, err := s.listCollaborators(ctx, `SELECT user_id, permission FROM board_collaborators WHERE board_id=$1`, boardID)
	if err != nil {
		return Board{}, err
	}
	board.Collaborators = collaborators
	return board, nil
}

func (s *PostgresStore) ListBoardsForUser(ctx context.Context, userID string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT b.id, b.name, b.owner_id, u.name, b.is_private, b.created_at, b.updated_at
		FROM boards b
		JOIN users u ON u.id = b.owner_id
		LEFT JOIN board_collaborators bc ON bc.board_id = b.id
		WHERE b.owner_id=$1 OR bc.user_id=$1
		ORDER BY b.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		var item Board
		if err := rows.Scan(&item.ID, &item.Name, &item.OwnerID, &item.OwnerName, &item.IsPrivate, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}

	for i := range items {
		collaborators, err := s.listCollaborators(ctx, `SELECT user_id, permission FROM board_collaborators WHERE board_id=$1`, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Collaborators = collaborators
	}
	return items, nil
}

func (s *PostgresStore) UpdateBoard(ctx context.Context, board Board) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update board: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE boards SET name=$2, is_private=$3, updated_at=NOW() WHERE id=$1
	`, board.ID, board.Name, board.IsPrivate); err != nil {
		return fmt.Errorf("update board: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM board_collaborators WHERE board_id=$1`, board.ID); err != nil {
		return fmt.Errorf("clear board collaborators: %w", err)
	}
	for _, c := range board.Collaborators {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO board_collaborators (board_id, user_id, permission)
			VALUES ($1, $2, $3)
		`, board.ID, c.UserID, c.Permission); err != nil {
			return fmt.Errorf("insert board collaborator: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteBoard removes the board and its collaborator list. Documents that
// pointed at the board are detached, not deleted; they show up as unsorted.
func (s *PostgresStore) DeleteBoard(ctx context.Context, boardID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete board: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET board_id=NULL WHERE board_id=$1`, boardID); err != nil {
		return fmt.Errorf("detach board documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM board_collaborators WHERE board_id=$1`, boardID); err != nil {
		return fmt.Errorf("delete board collaborators: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id=$1`, boardID); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	return tx.Commit()
}

// ── Documents ──

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) error {
	content := item.Content
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert document: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, status, board_id, owner_id, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, item.ID, item.Title, []byte(content), item.Status, item.BoardID, item.OwnerID); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, c := range item.Collaborators {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_collaborators (document_id, user_id, permission)
			VALUES ($1, $2, $3)
			ON CONFLICT (document_id, user_id) DO UPDATE SET permission=EXCLUDED.permission
		`, item.ID, c.UserID, c.Permission); err != nil {
			return fmt.Errorf("insert document collaborator: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	var content []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT d.id, d.title, d.content, d.status, d.board_id, d.owner_id, u.name, d.last_modified
		FROM documents d
		JOIN users u ON u.id = d.owner_id
		WHERE d.id=$1
	`, documentID).Scan(&item.ID, &item.Title, &content, &item.Status, &item.BoardID, &item.OwnerID, &item.OwnerName, &item.LastModified)
	if err != nil {
		return Document{}, err
	}
	item.Content = json.RawMessage(content)

	collaborators, err := s.listCollaborators(ctx, `SELECT user_id, permission FROM document_collaborators WHERE document_id=$1`, documentID)
	if err != nil {
		return Document{}, err
	}
	item.Collaborators = collaborators
	return item, nil
}

func (s *PostgresStore) ListDocumentsForUser(ctx context.Context, userID string) ([]Document, error) {
	return s.queryDocuments(ctx, `
		SELECT DISTINCT d.id, d.title, d.content, d.status, d.board_id, d.owner_id, u.name, d.last_modified
		FROM documents d
		JOIN users u ON u.id = d.owner_id
		LEFT JOIN document_collaborators dc ON dc.document_id = d.id
		WHERE d.owner_id=$1 OR dc.user_id=$1
		ORDER BY d.last_modified DESC
	`, userID)
}

func (s *PostgresStore) ListDocumentsByBoard(ctx context.Context, boardID, userID string) ([]Document, error) {
	return s.queryDocuments(ctx, `
		SELECT DISTINCT d.id, d.title, d.content, d.status, d.board_id, d.owner_id, u.name, d.last_modified
		FROM documents d
		JOIN users u ON u.id = d.owner_id
		LEFT JOIN document_collaborators dc ON dc.document_id = d.id
		WHERE d.board_id=$1 AND (d.owner_id=$2 OR dc.user_id=$2)
		ORDER BY d.last_modified DESC
	`, boardID, userID)
}

// ListAllDocuments returns every document. Used to backfill the search index.
func (s *PostgresStore) ListAllDocuments(ctx context.Context) ([]Document, error) {
	return s.queryDocuments(ctx, `
		SELECT d.id, d.title, d.content, d.status, d.board_id, d.owner_id, u.name, d.last_modified
		FROM documents d
		JOIN users u ON u.id = d.owner_id
		ORDER BY d.last_modified DESC
	`)
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		var content []byte
		if err := rows.Scan(&item.ID, &item.Title, &content, &item.Status, &item.BoardID, &item.OwnerID, &item.OwnerName, &item.LastModified); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		item.Content = json.RawMessage(content)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	for i := range items {
		collaborators, err := s.listCollaborators(ctx, `SELECT user_id, permission FROM document_collaborators WHERE document_id=$1`, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Collaborators = collaborators
	}
	return items, nil
}

// UpdateDocument writes the full mutable state, replacing the collaborator
// rows with the supplied list. The owner column is never touched here;
// ownership is fixed at insert.
func (s *PostgresStore) UpdateDocument(ctx context.Context, item Document) error {
	content := item.Content
	if len(content) == 0 {
		content = json.RawMessage(`{}`)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update document: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET title=$2, content=$3, status=$4, board_id=$5, last_modified=NOW()
		WHERE id=$1
	`, item.ID, item.Title, []byte(content), item.Status, item.BoardID); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_collaborators WHERE document_id=$1`, item.ID); err != nil {
		return fmt.Errorf("clear document collaborators: %w", err)
	}
	for _, c := range item.Collaborators {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_collaborators (document_id, user_id, permission)
			VALUES ($1, $2, $3)
		`, item.ID, c.UserID, c.Permission); err != nil {
			return fmt.Errorf("insert document collaborator: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete document: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_collaborators WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("delete document collaborators: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("delete document tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM versions WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("delete document versions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return tx.Commit()
}

func (s *PostgresStore) listCollaborators(ctx context.Context, query, id string) ([]Collaborator, error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer rows.Close()

	items := make([]Collaborator, 0)
	for rows.Next() {
		var c Collaborator
		if err := rows.Scan(&c.UserID, &c.Permission); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collaborators: %w", err)
	}
	return items, nil
}

// ── Tasks ──

func (s *PostgresStore) InsertTasks(ctx context.Context, tasks []Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tasks: %w", err)
	}
	defer tx.Rollback()

	for _, task := range tasks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, document_id, created_by, text, status)
			VALUES ($1, $2, $3, $4, $5)
		`, task.ID, task.DocumentID, task.CreatedBy, task.Text, task.Status); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) ListTasksByDocument(ctx context.Context, documentID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, created_by, text, status, created_at, updated_at
		FROM tasks
		WHERE document_id=$1
		ORDER BY created_at ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var item Task
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.CreatedBy, &item.Text, &item.Status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (Task, error) {
	var item Task
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, created_by, text, status, created_at, updated_at
		FROM tasks
		WHERE id=$1
	`, taskID).Scan(&item.ID, &item.DocumentID, &item.CreatedBy, &item.Text, &item.Status, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	return item, nil
}

func (s *PostgresStore) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET status=$2, updated_at=NOW() WHERE id=$1
	`, taskID, status)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return nil
}

// ── Versions ──

func (s *PostgresStore) InsertVersion(ctx context.Context, version Version) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO versions (id, document_id, created_by, snapshot, summary)
		VALUES ($1, $2, $3, $4, $5)
	`, version.ID, version.DocumentID, version.CreatedBy, version.Snapshot, version.Summary)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListVersionsByDocument(ctx context.Context, documentID string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.document_id, v.created_by, u.name, v.summary, v.created_at
		FROM versions v
		JOIN users u ON u.id = v.created_by
		WHERE v.document_id=$1
		ORDER BY v.created_at DESC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	items := make([]Version, 0)
	for rows.Next() {
		var item Version
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.CreatedBy, &item.CreatedByName, &item.Summary, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetVersion(ctx context.Context, versionID string) (Version, error) {
	var item Version
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, created_by, snapshot, summary, created_at
		FROM versions
		WHERE id=$1
	`, versionID).Scan(&item.ID, &item.DocumentID, &item.CreatedBy, &item.Snapshot, &item.Summary, &item.CreatedAt)
	if err != nil {
		return Version{}, err
	}
	return item, nil
}

// ErrNotFound reports whether err is the store's no-rows error.
func ErrNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
