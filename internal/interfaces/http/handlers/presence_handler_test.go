package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/domain/service"
)

func newPresenceRouter(t *testing.T) (*gin.Engine, *service.PresenceTracker) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tracker := service.NewPresenceTracker(time.Second)
	handler := NewPresenceHandler(tracker, zap.NewNop())

	router := gin.New()
	router.POST("/api/chat_stats", handler.ChatStats)
	router.POST("/api/update_activity", handler.UpdateActivity)
	router.POST("/api/set_offline", handler.SetOffline)
	return router, tracker
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body %q: %v", w.Body.String(), err)
	}
	return body
}

// --- Test: heartbeat scenario from a fresh tracker ---

func TestChatStats_NewThenKnownUser(t *testing.T) {
	router, _ := newPresenceRouter(t)

	w := postJSON(t, router, "/api/chat_stats", gin.H{"user_id": "42", "is_online": true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["online"] != float64(1) || body["total"] != float64(1) || body["new"] != true {
		t.Fatalf("unexpected first heartbeat body: %v", body)
	}

	w = postJSON(t, router, "/api/chat_stats", gin.H{"user_id": "42", "is_online": true})
	body = decodeBody(t, w)
	if body["online"] != float64(1) || body["total"] != float64(1) || body["new"] != false {
		t.Fatalf("unexpected repeat heartbeat body: %v", body)
	}
}

// --- Test: numeric user ids are canonicalized like strings ---

func TestChatStats_NumericUserID(t *testing.T) {
	router, tracker := newPresenceRouter(t)

	w := postJSON(t, router, "/api/chat_stats", gin.H{"user_id": 42})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !tracker.IsOnline("42") {
		t.Fatalf("expected numeric id 42 to land in the online set as \"42\"")
	}

	// A later string heartbeat for the same user is not a new user.
	w = postJSON(t, router, "/api/chat_stats", gin.H{"user_id": "42"})
	if body := decodeBody(t, w); body["new"] != false {
		t.Fatalf("expected numeric and string ids to collapse, got %v", body)
	}
}

// --- Test: is_online defaults to true, false signs the user off ---

func TestChatStats_IsOnlineFlag(t *testing.T) {
	router, tracker := newPresenceRouter(t)

	postJSON(t, router, "/api/chat_stats", gin.H{"user_id": "7"})
	if !tracker.IsOnline("7") {
		t.Fatalf("expected default is_online=true to mark the user online")
	}

	w := postJSON(t, router, "/api/chat_stats", gin.H{"user_id": "7", "is_online": false})
	body := decodeBody(t, w)
	if body["online"] != float64(0) || body["total"] != float64(1) {
		t.Fatalf("unexpected sign-off body: %v", body)
	}
}

// --- Test: malformed heartbeat is a client error, not a crash ---

func TestChatStats_MissingUserID(t *testing.T) {
	router, _ := newPresenceRouter(t)

	w := postJSON(t, router, "/api/chat_stats", gin.H{"is_online": true})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing user_id, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "error" {
		t.Fatalf("expected structured error body, got %v", body)
	}
}

// --- Test: update_activity answers only for tracked-online users ---

func TestUpdateActivity(t *testing.T) {
	router, _ := newPresenceRouter(t)

	w := postJSON(t, router, "/api/update_activity", gin.H{"user_id": "42"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for untracked user, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "error" {
		t.Fatalf("expected error status, got %v", body)
	}

	postJSON(t, router, "/api/chat_stats", gin.H{"user_id": "42"})

	w = postJSON(t, router, "/api/update_activity", gin.H{"user_id": "42"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for tracked user, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["online"] != float64(1) || body["total"] != float64(1) {
		t.Fatalf("unexpected counts: %v", body)
	}
}

// --- Test: set_offline always succeeds and takes effect immediately ---

func TestSetOffline(t *testing.T) {
	router, tracker := newPresenceRouter(t)

	postJSON(t, router, "/api/chat_stats", gin.H{"user_id": "42"})

	w := postJSON(t, router, "/api/set_offline", gin.H{"user_id": "42"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "success" {
		t.Fatalf("expected success status, got %v", body)
	}
	if tracker.IsOnline("42") {
		t.Fatalf("expected the user to be offline")
	}

	// Unknown users are fine too.
	w = postJSON(t, router, "/api/set_offline", gin.H{"user_id": "ghost"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected idempotent 200, got %d", w.Code)
	}
}
