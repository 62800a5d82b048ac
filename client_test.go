package partychat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestServer serves mux and returns a client for it with session "s3cret".
func newTestServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient("s3cret", WithBaseURL(srv.URL+"/"), WithTimeout(5*time.Second))
}

func requireSession(t *testing.T, r *http.Request) {
	t.Helper()
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value != "s3cret" {
		t.Errorf("%s %s: missing session cookie", r.Method, r.URL.Path)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ============================================================================
// Client
// ============================================================================

func TestClientPrivateChats(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/private-chats/7/messages", func(w http.ResponseWriter, r *http.Request) {
		requireSession(t, r)
		if got := r.URL.Query().Get("strategy"); got != "newest" {
			t.Errorf("strategy = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("limit = %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"partner": map[string]any{"id": 3, "username": "bob"},
			"messages": []map[string]any{
				{"id": 1, "sender_username": "bob", "body": "hi", "created_at": "2024-05-01T12:00:00", "status": "read"},
				{"id": 2, "sender_username": "alice", "message_type": "private_sticker", "sticker_file": "cat.png"},
			},
		})
	})
	mux.HandleFunc("POST /api/private-chats/7/read", func(w http.ResponseWriter, r *http.Request) {
		requireSession(t, r)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("GET /api/private-chats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"threads": []map[string]any{
			{"conversation_id": 7, "partner_username": "bob", "preview": "hi", "updated_at": "2024-05-01T12:00:00Z", "unread_count": 2},
		}})
	})
	mux.HandleFunc("POST /api/private-chats/start", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["target_id"] != "3" {
			t.Errorf("target_id = %q", body["target_id"])
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"conversation_id": 7,
			"target":          map[string]any{"id": 3, "username": "bob", "display_name": "Bob B"},
		})
	})

	collab := newTestServer(t, mux).Collaborators()

	t.Run("history", func(t *testing.T) {
		page, err := collab.FetchPrivateHistory(ctx, "7")
		if err != nil {
			t.Fatal(err)
		}
		want := &HistoryPage{
			Partner: Partner{Username: "bob", DisplayName: "bob"},
			Messages: []WireMessage{
				{ID: "1", Sender: "bob", Content: "hi", Kind: KindText, Status: StatusRead,
					Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
				{ID: "2", Sender: "alice", Content: "cat.png", Kind: KindSticker},
			},
		}
		if diff := cmp.Diff(want, page); diff != "" {
			t.Fatalf("page mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("mark read", func(t *testing.T) {
		if err := collab.MarkPrivateRead(ctx, "7"); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("list", func(t *testing.T) {
		threads, err := collab.ListPrivateThreads(ctx)
		if err != nil {
			t.Fatal(err)
		}
		want := []ThreadUpdate{{ConversationID: "7", Username: "bob", DisplayName: "bob", Preview: "hi",
			UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), UnreadCount: 2}}
		if diff := cmp.Diff(want, threads); diff != "" {
			t.Fatalf("threads mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("start", func(t *testing.T) {
		id, partner, err := collab.StartPrivate(ctx, "3")
		if err != nil {
			t.Fatal(err)
		}
		if id != "7" || partner != (Partner{Username: "bob", DisplayName: "Bob B"}) {
			t.Fatalf("StartPrivate = %q, %+v", id, partner)
		}
	})
}

func TestClientRooms(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms/join", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		if got := r.PostForm.Get("room_code"); got != "ABC123" {
			t.Errorf("room_code = %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{"room": "Secret", "message_policy": "hosts"})
	})
	mux.HandleFunc("POST /api/rooms/delete", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("room_name") != "Secret" {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": "Only the room owner can delete it."})
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	collab := newTestServer(t, mux).Collaborators()

	room, label, err := collab.JoinRoomByCode(ctx, " abc123 ")
	if err != nil || room != "Secret" || label != "hosts" {
		t.Fatalf("JoinRoomByCode = %q, %q, %v", room, label, err)
	}
	if err := collab.DeleteRoom(ctx, "Secret"); err != nil {
		t.Fatal(err)
	}

	err = collab.DeleteRoom(ctx, "General")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "Only the room owner can delete it." {
		t.Fatalf("APIError = %+v", apiErr)
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	})
	mux.HandleFunc("POST /api/private-chats/start", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	c := newTestServer(t, mux)

	_, err := c.Users.Search(ctx, "bo")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "upstream exploded" || apiErr.StatusCode != 500 {
		t.Fatalf("err = %v", err)
	}

	if _, _, err := c.Collaborators().StartPrivate(ctx, "3"); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("start without id err = %v", err)
	}
}

func TestRealtimeURL(t *testing.T) {
	tests := []struct{ base, want string }{
		{"http://localhost:5000", "ws://localhost:5000/ws"},
		{"https://chat.example.com/", "wss://chat.example.com/ws"},
	}
	for _, tt := range tests {
		c := NewClient("", WithBaseURL(tt.base))
		if got := c.Realtime().WSUrl(); got != tt.want {
			t.Errorf("WSUrl(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
