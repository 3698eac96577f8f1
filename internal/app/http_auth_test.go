package app

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"zedit/api/internal/auth"
	"zedit/api/internal/session"
)

func TestRegisterLoginAndEmptyDocList(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})

	rr := doJSON(t, server, http.MethodPost, "/api/users/register", "", map[string]any{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "secret123",
	})
	assertStatus(t, rr, http.StatusCreated)
	registered := parsePayload(t, rr)
	if registered["token"] == "" || registered["token"] == nil {
		t.Fatalf("expected token in register payload, got %v", registered)
	}
	if registered["theme"] != "light" {
		t.Fatalf("expected default theme light, got %v", registered["theme"])
	}

	rr = doJSON(t, server, http.MethodPost, "/api/users/login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "secret123",
	})
	assertStatus(t, rr, http.StatusOK)
	logged := parsePayload(t, rr)
	for _, key := range []string{"_id", "name", "email", "profilePic", "theme", "token"} {
		if _, ok := logged[key]; !ok {
			t.Fatalf("login payload missing %q: %v", key, logged)
		}
	}
	if logged["_id"] != registered["_id"] {
		t.Fatalf("login returned different user id: %v vs %v", logged["_id"], registered["_id"])
	}

	token, _ := logged["token"].(string)
	rr = doJSON(t, server, http.MethodGet, "/api/docs", token, nil)
	assertStatus(t, rr, http.StatusOK)
	if docs := parseList(t, rr); len(docs) != 0 {
		t.Fatalf("expected empty doc list for new user, got %v", docs)
	}
}

func TestRegisterValidation(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})

	rr := doJSON(t, server, http.MethodPost, "/api/users/register", "", map[string]any{
		"name": "Ada",
	})
	assertStatus(t, rr, http.StatusBadRequest)

	registerUser(t, server, "Ada", "ada@example.com")
	rr = doJSON(t, server, http.MethodPost, "/api/users/register", "", map[string]any{
		"name":     "Other Ada",
		"email":    "ada@example.com",
		"password": "secret123",
	})
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestLoginInvalidCredentials(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	registerUser(t, server, "Ada", "ada@example.com")

	rr := doJSON(t, server, http.MethodPost, "/api/users/login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "wrong-password",
	})
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	rr := doJSON(t, server, http.MethodGet, "/api/docs", "", nil)
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestTamperedTokenRejected(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, token := registerUser(t, server, "Ada", "ada@example.com")

	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		t.Fatalf("expected a three-segment JWT, got %q", token)
	}
	payload := []byte(segments[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := segments[0] + "." + string(payload) + "." + segments[2]

	rr := doJSON(t, server, http.MethodGet, "/api/docs", tampered, nil)
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestLiteralJunkTokensRejected(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})

	for _, token := range []string{"undefined", "null", "a.b", "not-a-token"} {
		rr := doJSON(t, server, http.MethodGet, "/api/docs", token, nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("token %q: expected 401, got %d", token, rr.Code)
		}
	}
}

func TestExpiredTokenRejectedEvenWhenCached(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := session.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	defer cache.Close()

	ms := newMemStore()
	server := newTestServer(ms, Options{AuthCache: cache})
	userID, _ := registerUser(t, server, "Ada", "ada@example.com")

	expired, err := auth.IssueToken([]byte("test-secret"), userID, -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	user, err := ms.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if err := cache.Put(context.Background(), session.HashToken(expired), user); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	rr := doJSON(t, server, http.MethodGet, "/api/users/me", expired, nil)
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestAuthCachePopulatedOnLookup(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := session.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	defer cache.Close()

	server := newTestServer(newMemStore(), Options{AuthCache: cache})
	_, token := registerUser(t, server, "Ada", "ada@example.com")

	rr := doJSON(t, server, http.MethodGet, "/api/users/me", token, nil)
	assertStatus(t, rr, http.StatusOK)

	if !mr.Exists("authcache:" + session.HashToken(token)) {
		t.Fatalf("expected cache entry after authenticated request")
	}
}

func TestCurrentUserExcludesPassword(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, token := registerUser(t, server, "Ada", "ada@example.com")

	rr := doJSON(t, server, http.MethodGet, "/api/users/me", token, nil)
	assertStatus(t, rr, http.StatusOK)
	payload := parsePayload(t, rr)
	if payload["email"] != "ada@example.com" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	body := rr.Body.String()
	if strings.Contains(body, "password") || strings.Contains(body, "Hash") {
		t.Fatalf("me payload leaks password material: %s", body)
	}
}

func TestPasswordUpdateFlow(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, token := registerUser(t, server, "Ada", "ada@example.com")

	rr := doJSON(t, server, http.MethodPut, "/api/users/password", token, map[string]any{
		"oldPassword": "wrong",
		"newPassword": "changed456",
	})
	assertStatus(t, rr, http.StatusBadRequest)

	rr = doJSON(t, server, http.MethodPut, "/api/users/password", token, map[string]any{
		"oldPassword": "secret123",
		"newPassword": "changed456",
	})
	assertStatus(t, rr, http.StatusOK)

	rr = doJSON(t, server, http.MethodPost, "/api/users/login", "", map[string]any{
		"email":    "ada@example.com",
		"password": "changed456",
	})
	assertStatus(t, rr, http.StatusOK)
}

func TestThemeUpdate(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, token := registerUser(t, server, "Ada", "ada@example.com")

	rr := doJSON(t, server, http.MethodPut, "/api/users/theme", token, map[string]any{"theme": "dark"})
	assertStatus(t, rr, http.StatusOK)
	if payload := parsePayload(t, rr); payload["theme"] != "dark" {
		t.Fatalf("expected theme dark, got %v", payload)
	}

	rr = doJSON(t, server, http.MethodPut, "/api/users/theme", token, map[string]any{"theme": "sepia"})
	assertStatus(t, rr, http.StatusBadRequest)

	rr = doJSON(t, server, http.MethodGet, "/api/users/me", token, nil)
	if payload := parsePayload(t, rr); payload["theme"] != "dark" {
		t.Fatalf("theme update not persisted: %v", payload)
	}
}

func TestProfileNameUpdateReturnsFreshToken(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})
	_, token := registerUser(t, server, "Ada", "ada@example.com")

	rr := doJSON(t, server, http.MethodPut, "/api/users/profile", token, map[string]any{"name": "Ada L."})
	assertStatus(t, rr, http.StatusOK)
	payload := parsePayload(t, rr)
	if payload["name"] != "Ada L." {
		t.Fatalf("expected updated name, got %v", payload)
	}
	fresh, _ := payload["token"].(string)
	if fresh == "" {
		t.Fatalf("expected refreshed token in profile payload")
	}

	rr = doJSON(t, server, http.MethodGet, "/api/users/me", fresh, nil)
	assertStatus(t, rr, http.StatusOK)
}

func TestHealthAndReady(t *testing.T) {
	server := newTestServer(newMemStore(), Options{})

	rr := doJSON(t, server, http.MethodGet, "/api/health", "", nil)
	assertStatus(t, rr, http.StatusOK)

	rr = doJSON(t, server, http.MethodGet, "/api/ready", "", nil)
	assertStatus(t, rr, http.StatusOK)
}
