package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PgSearch is the fallback searcher: a trigram-friendly ILIKE match over
// title and flattened content text, scoped to caller-visible documents.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true. If Postgres is down the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

// Search matches title or content text, newest-modified first.
func (p *PgSearch) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return []Result{}, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + q.Text + "%"
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT d.id, d.title, d.content, d.status, d.board_id, d.last_modified
		FROM documents d
		LEFT JOIN document_collaborators dc ON dc.document_id = d.id
		WHERE (d.owner_id=$1 OR dc.user_id=$1)
			AND (d.title ILIKE $2 OR d.content::text ILIKE $2)
		ORDER BY d.last_modified DESC
		LIMIT $3 OFFSET $4
	`, q.UserID, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pg search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var (
			id, title, status string
			content           []byte
			boardID           sql.NullString
			lastModified      any
		)
		if err := rows.Scan(&id, &title, &content, &status, &boardID, &lastModified); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, Result{
			ID:      id,
			Title:   title,
			Snippet: snippet(PlainText(json.RawMessage(content)), 30),
			Status:  status,
			BoardID: boardID.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search results: %w", err)
	}

	// Total counts all matches, not just this page.
	var total int
	err = p.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT d.id)
		FROM documents d
		LEFT JOIN document_collaborators dc ON dc.document_id = d.id
		WHERE (d.owner_id=$1 OR dc.user_id=$1)
			AND (d.title ILIKE $2 OR d.content::text ILIKE $2)
	`, q.UserID, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count search results: %w", err)
	}
	return results, total, nil
}
