package app

import (
	"net/http"
	"testing"
)

func createBoard(t *testing.T, server *HTTPServer, token string, body map[string]any) map[string]any {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/boards", token, body)
	assertStatus(t, rr, http.StatusCreated)
	return parsePayload(t, rr)
}

func TestCreateBoardDefaults(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	ownerID, token := registerUser(t, server, "Ada", "ada@example.com")

	board := createBoard(t, server, token, map[string]any{})
	if board["name"] != "Untitled Board" {
		t.Fatalf("expected default name, got %v", board["name"])
	}
	if board["isPrivate"] != true {
		t.Fatalf("expected isPrivate to default true, got %v", board["isPrivate"])
	}
	if board["owner"] != ownerID {
		t.Fatalf("expected owner %s, got %v", ownerID, board["owner"])
	}
}

func TestPrivateBoardVisibility(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, ownerToken := registerUser(t, server, "Ada", "ada@example.com")
	collabID, collabToken := registerUser(t, server, "Grace", "grace@example.com")
	_, strangerToken := registerUser(t, server, "Linus", "linus@example.com")
	_, secondStrangerToken := registerUser(t, server, "Maru", "maru@example.com")

	board := createBoard(t, server, ownerToken, map[string]any{
		"name": "Roadmap",
		"collaborators": []map[string]any{
			{"userId": collabID, "permission": "edit"},
		},
	})
	boardID, _ := board["_id"].(string)

	rr := doJSON(t, server, http.MethodGet, "/api/boards/"+boardID, ownerToken, nil)
	assertStatus(t, rr, http.StatusOK)

	rr = doJSON(t, server, http.MethodGet, "/api/boards/"+boardID, collabToken, nil)
	assertStatus(t, rr, http.StatusOK)

	// Two distinct non-members both get 403.
	rr = doJSON(t, server, http.MethodGet, "/api/boards/"+boardID, strangerToken, nil)
	assertStatus(t, rr, http.StatusForbidden)
	rr = doJSON(t, server, http.MethodGet, "/api/boards/"+boardID, secondStrangerToken, nil)
	assertStatus(t, rr, http.StatusForbidden)

	// Making the board public opens it to any authenticated user.
	rr = doJSON(t, server, http.MethodPut, "/api/boards/"+boardID, ownerToken, map[string]any{"isPrivate": false})
	assertStatus(t, rr, http.StatusOK)
	rr = doJSON(t, server, http.MethodGet, "/api/boards/"+boardID, strangerToken, nil)
	assertStatus(t, rr, http.StatusOK)
}

func TestBoardUpdateOwnerOnly(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, ownerToken := registerUser(t, server, "Ada", "ada@example.com")
	collabID, collabToken := registerUser(t, server, "Grace", "grace@example.com")

	board := createBoard(t, server, ownerToken, map[string]any{
		"name": "Roadmap",
		"collaborators": []map[string]any{
			{"userId": collabID, "permission": "edit"},
		},
	})
	boardID, _ := board["_id"].(string)

	rr := doJSON(t, server, http.MethodPut, "/api/boards/"+boardID, collabToken, map[string]any{"name": "Hijacked"})
	assertStatus(t, rr, http.StatusForbidden)

	rr = doJSON(t, server, http.MethodDelete, "/api/boards/"+boardID, collabToken, nil)
	assertStatus(t, rr, http.StatusForbidden)

	rr = doJSON(t, server, http.MethodPut, "/api/boards/"+boardID, ownerToken, map[string]any{"name": "Renamed"})
	assertStatus(t, rr, http.StatusOK)
	if payload := parsePayload(t, rr); payload["name"] != "Renamed" {
		t.Fatalf("expected renamed board, got %v", payload)
	}
}

func TestBoardListScopedToMembership(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, ownerToken := registerUser(t, server, "Ada", "ada@example.com")
	_, otherToken := registerUser(t, server, "Linus", "linus@example.com")

	createBoard(t, server, ownerToken, map[string]any{"name": "Mine"})

	rr := doJSON(t, server, http.MethodGet, "/api/boards", ownerToken, nil)
	assertStatus(t, rr, http.StatusOK)
	if boards := parseList(t, rr); len(boards) != 1 {
		t.Fatalf("expected one board for owner, got %v", boards)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/boards", otherToken, nil)
	assertStatus(t, rr, http.StatusOK)
	if boards := parseList(t, rr); len(boards) != 0 {
		t.Fatalf("expected no boards for non-member, got %v", boards)
	}
}

func TestDeleteBoardOrphansDocuments(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, token := registerUser(t, server, "Ada", "ada@example.com")

	board := createBoard(t, server, token, map[string]any{"name": "Roadmap"})
	boardID, _ := board["_id"].(string)

	rr := doJSON(t, server, http.MethodPost, "/api/docs", token, map[string]any{
		"title":   "Q3 Plan",
		"boardId": boardID,
	})
	assertStatus(t, rr, http.StatusCreated)
	doc := parsePayload(t, rr)
	if doc["board"] != boardID {
		t.Fatalf("expected doc on board %s, got %v", boardID, doc["board"])
	}

	rr = doJSON(t, server, http.MethodDelete, "/api/boards/"+boardID, token, nil)
	assertStatus(t, rr, http.StatusOK)

	rr = doJSON(t, server, http.MethodGet, "/api/docs", token, nil)
	assertStatus(t, rr, http.StatusOK)
	docs := parseList(t, rr)
	if len(docs) != 1 {
		t.Fatalf("expected document to survive board deletion, got %v", docs)
	}
	if docs[0]["board"] != nil {
		t.Fatalf("expected orphaned document to be unsorted, got board %v", docs[0]["board"])
	}
}

func TestBoardDocsEndpoint(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, ownerToken := registerUser(t, server, "Ada", "ada@example.com")
	_, strangerToken := registerUser(t, server, "Linus", "linus@example.com")

	board := createBoard(t, server, ownerToken, map[string]any{"name": "Roadmap"})
	boardID, _ := board["_id"].(string)

	rr := doJSON(t, server, http.MethodPost, "/api/docs", ownerToken, map[string]any{
		"title":   "Q3 Plan",
		"boardId": boardID,
	})
	assertStatus(t, rr, http.StatusCreated)

	rr = doJSON(t, server, http.MethodGet, "/api/boards/"+boardID+"/docs", ownerToken, nil)
	assertStatus(t, rr, http.StatusOK)
	if docs := parseList(t, rr); len(docs) != 1 || docs[0]["title"] != "Q3 Plan" {
		t.Fatalf("unexpected board docs: %v", docs)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/boards/"+boardID+"/docs", strangerToken, nil)
	assertStatus(t, rr, http.StatusForbidden)
}

func TestBoardNotFound(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, token := registerUser(t, server, "Ada", "ada@example.com")

	rr := doJSON(t, server, http.MethodGet, "/api/boards/brd_missing", token, nil)
	assertStatus(t, rr, http.StatusNotFound)
}
