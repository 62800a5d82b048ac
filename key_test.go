package partychat

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		in      string
		want    ConversationKey
		wantErr bool
	}{
		{in: "room:General", want: RoomKey("General")},
		{in: "private:42", want: PrivateKey("42")},
		{in: "room:with:colon", want: RoomKey("with:colon")},
		{in: "room:", wantErr: true},
		{in: "General", wantErr: true},
		{in: "group:1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			if got.String() != tt.in {
				t.Fatalf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestConversationKeyAsMapKey(t *testing.T) {
	m := map[ConversationKey]int{RoomKey("General"): 1, PrivateKey("7"): 2}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var back map[ConversationKey]int
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back[RoomKey("General")] != 1 || back[PrivateKey("7")] != 2 {
		t.Fatalf("round trip lost entries: %s", data)
	}

	if _, err := json.Marshal(map[ConversationKey]int{{}: 1}); err == nil {
		t.Fatal("zero key must not marshal")
	}
}

func TestRouterResolve(t *testing.T) {
	r := Router{CurrentRoom: "General"}

	tests := []struct {
		name    string
		ev      Event
		want    ConversationKey
		wantErr error
	}{
		{name: "room message with room", ev: RoomMessage{Room: "Lobby"}, want: RoomKey("Lobby")},
		{name: "room message without room", ev: RoomMessage{}, want: RoomKey("General")},
		{name: "room sticker without room", ev: RoomSticker{File: "cat.png"}, want: RoomKey("General")},
		{name: "private message", ev: PrivateMessage{ConversationID: "7"}, want: PrivateKey("7")},
		{name: "private sticker", ev: PrivateSticker{ConversationID: "9"}, want: PrivateKey("9")},
		{name: "private without id", ev: PrivateMessage{From: "bob"}, wantErr: ErrMalformedEvent},
		{name: "status", ev: Status{Body: "bob joined"}, want: RoomKey("General")},
		{name: "history", ev: RoomHistory{Room: "Lobby"}, want: RoomKey("Lobby")},
		{name: "history without room", ev: RoomHistory{}, wantErr: ErrMalformedEvent},
		{name: "room state", ev: RoomState{Room: "Lobby"}, wantErr: ErrUnscoped},
		{name: "presence", ev: Presence{}, wantErr: ErrUnscoped},
		{name: "batch", ev: PrivateMessageBatch{}, wantErr: ErrUnscoped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.ev)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRouterResolveAction(t *testing.T) {
	r := Router{CurrentRoom: "General"}

	got, err := r.ResolveAction(SendRoomText{Body: "hi"})
	if err != nil || got != RoomKey("General") {
		t.Fatalf("room text: got %v, %v", got, err)
	}
	got, err = r.ResolveAction(SendPrivateSticker{ConversationID: "3", Target: "bob"})
	if err != nil || got != PrivateKey("3") {
		t.Fatalf("private sticker: got %v, %v", got, err)
	}
	if _, err := r.ResolveAction(MarkPrivateRead{}); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("mark read without id: err = %v", err)
	}
}
