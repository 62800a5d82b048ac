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
	"nhooyr.io/websocket"
)

// chatServer accepts one WebSocket, pushes frames to it and forwards what the
// client writes to received.
func chatServer(t *testing.T, frames []string, received chan<- []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			http.NotFound(w, r)
			return
		}
		if c, err := r.Cookie(SessionCookie); err != nil || c.Value != "s3cret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Error(err)
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for _, f := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			received <- data
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRealtimeWSClient(t *testing.T) {
	frames := []string{
		`{"type":"status","payload":{"msg":"bob has entered the room."}}`,
		`{"type":"typing","payload":{"username":"bob"}}`,
		`{"type":"message","payload":{"id":1,"username":"bob","room":"General","msg":"hi"}}`,
		`not json`,
		`{"type":"room_state","payload":{"room":"General","message_policy":"everyone"}}`,
	}
	received := make(chan []byte, 4)
	srv := chatServer(t, frames, received)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ws := NewClient("s3cret", WithBaseURL(srv.URL)).Realtime().ConnectWS(&RealtimeConfig{})
	events := make(chan Event, 8)
	ws.OnEvent(func(ev Event) { events <- ev })

	if err := ws.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer ws.Disconnect()
	if ws.State() != StateConnected {
		t.Fatalf("state = %s", ws.State())
	}

	want := []Event{
		Connected{},
		Status{Body: "bob has entered the room."},
		RoomMessage{Room: "General", ID: "1", Sender: "bob", Body: "hi"},
		RoomState{Room: "General", PolicyLabel: "everyone", CanSend: true},
	}
	var got []Event
	for range want {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-ctx.Done():
			t.Fatalf("timed out after %d events", len(got))
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	if err := ws.Send(ctx, JoinRoom{Room: "Lobby"}); err != nil {
		t.Fatal(err)
	}
	select {
	case data := <-received:
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatal(err)
		}
		if env.Type != "join" || string(env.Payload) != `{"room":"Lobby"}` {
			t.Fatalf("frame = %s", data)
		}
	case <-ctx.Done():
		t.Fatal("server never received the action")
	}

	if err := ws.Disconnect(); err != nil {
		t.Fatal(err)
	}
	if err := ws.Send(ctx, JoinRoom{Room: "Lobby"}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("send after disconnect err = %v", err)
	}
}

func TestRealtimeWSClientUnauthorized(t *testing.T) {
	srv := chatServer(t, nil, make(chan []byte))
	ws := NewClient("wrong", WithBaseURL(srv.URL)).Realtime().ConnectWS(nil)
	if err := ws.Connect(context.Background()); err == nil {
		t.Fatal("expected dial error")
	}
	if ws.State() != StateDisconnected {
		t.Fatalf("state = %s", ws.State())
	}
}

func TestEngineOverRealtime(t *testing.T) {
	frames := []string{
		`{"type":"message","payload":{"id":1,"username":"bob","msg":"welcome"}}`,
	}
	received := make(chan []byte, 4)
	srv := chatServer(t, frames, received)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ws := NewClient("s3cret", WithBaseURL(srv.URL)).Realtime().ConnectWS(nil)
	engine := NewEngine("alice", WithTransport(ws))

	updated := make(chan struct{}, 4)
	engine.On(TopicConversationUpdated, func(string, any) { updated <- struct{}{} })
	ws.OnEvent(func(ev Event) {
		if err := engine.Handle(ctx, ev); err != nil {
			t.Error(err)
		}
	})

	if err := ws.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer ws.Disconnect()

	select {
	case data := <-received:
		if string(data) != `{"type":"join","payload":{"room":"General"}}` {
			t.Fatalf("first frame = %s", data)
		}
	case <-ctx.Done():
		t.Fatal("no join after connect")
	}
	select {
	case <-updated:
	case <-ctx.Done():
		t.Fatal("inbound message never applied")
	}
	if log := engine.Conversation(RoomKey(DefaultRoom)); len(log) != 1 || log[0].Content != "welcome" {
		t.Fatalf("log = %+v", log)
	}
}

func TestReconnectorBackoff(t *testing.T) {
	r := newReconnector(&RealtimeConfig{ReconnectBaseDelay: 100 * time.Millisecond, ReconnectMaxDelay: time.Second, MaxReconnectAttempts: 3})

	var delays []time.Duration
	for r.shouldReconnect() {
		delays = append(delays, r.nextDelay())
	}
	if len(delays) != 3 {
		t.Fatalf("attempts = %d, want 3", len(delays))
	}
	for i, d := range delays {
		low := 100 * time.Millisecond << i
		if d < low || d > time.Second {
			t.Errorf("delay %d = %v, want within [%v, 1s]", i, d, low)
		}
	}

	unlimited := newReconnector(&RealtimeConfig{MaxReconnectAttempts: -1})
	unlimited.attempt = 1000
	if !unlimited.shouldReconnect() {
		t.Fatal("negative max means unlimited")
	}
}
