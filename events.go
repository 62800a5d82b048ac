package partychat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Inbound Events
// ============================================================================

// Event is one inbound real-time event. The set of implementations is closed;
// Router.Resolve and Engine.Handle switch over all of them.
type Event interface {
	eventType() string
}

// RoomEvent is an event that can appear inside room history.
type RoomEvent interface {
	Event
	roomWire() WireMessage
}

// PrivateEvent is an event that can appear inside a private batch.
type PrivateEvent interface {
	Event
	privateWire() WireMessage
	conversation() string
}

// RoomMessage is a text broadcast in a room. Room may be empty for servers
// that omit it; it then belongs to the joined room.
type RoomMessage struct {
	Room      string
	ID        string
	Sender    string
	Body      string
	ReplyTo   *ReplyRef
	AvatarURL string
	Timestamp time.Time
}

// RoomSticker is a sticker broadcast in a room.
type RoomSticker struct {
	Room      string
	ID        string
	Sender    string
	File      string
	AvatarURL string
	Timestamp time.Time
}

// PrivateMessage is a text message in a private conversation.
type PrivateMessage struct {
	ConversationID string
	ID             string
	From           string
	Body           string
	ReplyTo        *ReplyRef
	Status         DeliveryStatus
	DeliveredAt    *time.Time
	ReadAt         *time.Time
	AvatarURL      string
	Timestamp      time.Time
}

// PrivateSticker is a sticker in a private conversation.
type PrivateSticker struct {
	ConversationID string
	ID             string
	From           string
	File           string
	AvatarURL      string
	Timestamp      time.Time
}

// PrivateMessageBatch delivers queued private messages, possibly for several
// conversations.
type PrivateMessageBatch struct {
	Messages []PrivateEvent
}

// RoomHistory carries authoritative history for a room.
type RoomHistory struct {
	Room     string
	Messages []RoomEvent
}

// Status is a system notice for the joined room.
type Status struct {
	Body      string
	Timestamp time.Time
}

// RoomState is a policy broadcast for a room.
type RoomState struct {
	Room        string
	PolicyLabel string
	CanSend     bool
}

// RoomExpired announces that a room no longer exists.
type RoomExpired struct {
	Room string
}

// SendError is a transport-reported send failure.
type SendError struct {
	Reason string
}

// PresenceUser is one online user.
type PresenceUser struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Presence is the current online user list.
type Presence struct {
	Users []PresenceUser
}

// Connected is emitted by the transport after every (re)connect.
type Connected struct{}

func (RoomMessage) eventType() string         { return "message" }
func (RoomSticker) eventType() string         { return "sticker" }
func (PrivateMessage) eventType() string      { return "private_message" }
func (PrivateSticker) eventType() string      { return "private_sticker" }
func (PrivateMessageBatch) eventType() string { return "private_message_batch" }
func (RoomHistory) eventType() string         { return "room_history" }
func (Status) eventType() string              { return "status" }
func (RoomState) eventType() string           { return "room_state" }
func (RoomExpired) eventType() string         { return "room_expired" }
func (SendError) eventType() string           { return "message_error" }
func (Presence) eventType() string            { return "active_users" }
func (Connected) eventType() string           { return "connect" }

func (e RoomMessage) roomWire() WireMessage {
	return WireMessage{ID: e.ID, Sender: e.Sender, Content: e.Body, Kind: KindText,
		ReplyTo: e.ReplyTo, AvatarURL: e.AvatarURL, Timestamp: e.Timestamp}
}

func (e RoomSticker) roomWire() WireMessage {
	return WireMessage{ID: e.ID, Sender: e.Sender, Content: e.File, Kind: KindSticker,
		AvatarURL: e.AvatarURL, Timestamp: e.Timestamp}
}

func (e PrivateMessage) privateWire() WireMessage {
	return WireMessage{ID: e.ID, Sender: e.From, Content: e.Body, Kind: KindText,
		ReplyTo: e.ReplyTo, AvatarURL: e.AvatarURL, Timestamp: e.Timestamp,
		Status: e.Status, DeliveredAt: e.DeliveredAt, ReadAt: e.ReadAt}
}

func (e PrivateSticker) privateWire() WireMessage {
	return WireMessage{ID: e.ID, Sender: e.From, Content: e.File, Kind: KindSticker,
		AvatarURL: e.AvatarURL, Timestamp: e.Timestamp}
}

func (e PrivateMessage) conversation() string { return e.ConversationID }
func (e PrivateSticker) conversation() string { return e.ConversationID }

// ============================================================================
// Outbound Actions
// ============================================================================

// Action is a locally initiated command routed to the transport.
type Action interface {
	actionType() string
}

type JoinRoom struct{ Room string }

type LeaveRoom struct{ Room string }

type SendRoomText struct {
	Room    string
	Body    string
	ReplyTo *ReplyRef
}

type SendRoomSticker struct {
	Room string
	File string
}

// SendPrivateText addresses the partner by username; ConversationID is kept
// for routing the local echo.
type SendPrivateText struct {
	ConversationID string
	Target         string
	Body           string
	ReplyTo        *ReplyRef
}

type SendPrivateSticker struct {
	ConversationID string
	Target         string
	File           string
}

type MarkPrivateRead struct{ ConversationID string }

func (JoinRoom) actionType() string           { return "join" }
func (LeaveRoom) actionType() string          { return "leave" }
func (SendRoomText) actionType() string       { return "message" }
func (SendRoomSticker) actionType() string    { return "message" }
func (SendPrivateText) actionType() string    { return "message" }
func (SendPrivateSticker) actionType() string { return "message" }
func (MarkPrivateRead) actionType() string    { return "mark_private_read" }

// ============================================================================
// Wire Codec
// ============================================================================

// ErrUnknownEvent is returned by DecodeEvent for event types the engine does
// not consume. Transports skip such frames.
var ErrUnknownEvent = errors.New("unknown event type")

// Envelope is the wire format for all real-time frames.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// FlexID is an id the server may send as a JSON number or string.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

type wireReply struct {
	ID     FlexID `json:"id"`
	Sender string `json:"sender"`
	Msg    string `json:"msg"`
}

func (r *wireReply) ref() *ReplyRef {
	if r == nil || r.ID == "" {
		return nil
	}
	return &ReplyRef{ID: string(r.ID), Sender: r.Sender, Snippet: r.Msg}
}

type wireRoomMessage struct {
	Type      string     `json:"type"`
	ID        FlexID     `json:"id"`
	Username  string     `json:"username"`
	Room      string     `json:"room"`
	Msg       string     `json:"msg"`
	File      string     `json:"file"`
	ReplyTo   *wireReply `json:"reply_to"`
	AvatarURL string     `json:"avatar_url"`
	Timestamp string     `json:"timestamp"`
}

func (w wireRoomMessage) event(room string) RoomEvent {
	if room == "" {
		room = w.Room
	}
	if w.Type == "sticker" {
		return RoomSticker{Room: room, ID: string(w.ID), Sender: w.Username, File: w.File,
			AvatarURL: w.AvatarURL, Timestamp: parseWireTime(w.Timestamp)}
	}
	return RoomMessage{Room: room, ID: string(w.ID), Sender: w.Username, Body: w.Msg,
		ReplyTo: w.ReplyTo.ref(), AvatarURL: w.AvatarURL, Timestamp: parseWireTime(w.Timestamp)}
}

type wirePrivateMessage struct {
	MessageType    string     `json:"message_type"`
	ID             FlexID     `json:"id"`
	ConversationID FlexID     `json:"conversation_id"`
	From           string     `json:"from"`
	Msg            string     `json:"msg"`
	File           string     `json:"file"`
	ReplyTo        *wireReply `json:"reply_to"`
	Status         string     `json:"status"`
	DeliveredAt    string     `json:"delivered_at"`
	ReadAt         string     `json:"read_at"`
	AvatarURL      string     `json:"avatar_url"`
	Timestamp      string     `json:"timestamp"`
}

func (w wirePrivateMessage) message() PrivateMessage {
	return PrivateMessage{
		ConversationID: string(w.ConversationID),
		ID:             string(w.ID),
		From:           w.From,
		Body:           w.Msg,
		ReplyTo:        w.ReplyTo.ref(),
		Status:         DeliveryStatus(w.Status),
		DeliveredAt:    parseWireTimePtr(w.DeliveredAt),
		ReadAt:         parseWireTimePtr(w.ReadAt),
		AvatarURL:      w.AvatarURL,
		Timestamp:      parseWireTime(w.Timestamp),
	}
}

func (w wirePrivateMessage) sticker() PrivateSticker {
	return PrivateSticker{
		ConversationID: string(w.ConversationID),
		ID:             string(w.ID),
		From:           w.From,
		File:           w.File,
		AvatarURL:      w.AvatarURL,
		Timestamp:      parseWireTime(w.Timestamp),
	}
}

// DecodeEvent parses one wire frame into a typed event.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return DecodeEnvelope(env)
}

// DecodeEnvelope converts an already split envelope into a typed event.
func DecodeEnvelope(env Envelope) (Event, error) {
	payload := env.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	decode := func(v any) error {
		if err := json.Unmarshal(payload, v); err != nil {
			return fmt.Errorf("%w: %s payload: %v", ErrMalformedEvent, env.Type, err)
		}
		return nil
	}

	switch env.Type {
	case "message":
		var w wireRoomMessage
		if err := decode(&w); err != nil {
			return nil, err
		}
		return w.event(""), nil

	case "private_message":
		var w wirePrivateMessage
		if err := decode(&w); err != nil {
			return nil, err
		}
		return w.message(), nil

	case "private_sticker":
		var w wirePrivateMessage
		if err := decode(&w); err != nil {
			return nil, err
		}
		return w.sticker(), nil

	case "private_message_batch":
		var w struct {
			Messages []wirePrivateMessage `json:"messages"`
		}
		if err := decode(&w); err != nil {
			return nil, err
		}
		batch := PrivateMessageBatch{Messages: make([]PrivateEvent, 0, len(w.Messages))}
		for _, m := range w.Messages {
			if m.MessageType == "private_sticker" {
				batch.Messages = append(batch.Messages, m.sticker())
			} else {
				batch.Messages = append(batch.Messages, m.message())
			}
		}
		return batch, nil

	case "room_history":
		var w struct {
			Room     string            `json:"room"`
			Messages []wireRoomMessage `json:"messages"`
		}
		if err := decode(&w); err != nil {
			return nil, err
		}
		hist := RoomHistory{Room: w.Room, Messages: make([]RoomEvent, 0, len(w.Messages))}
		for _, m := range w.Messages {
			hist.Messages = append(hist.Messages, m.event(w.Room))
		}
		return hist, nil

	case "status":
		var w struct {
			Msg       string `json:"msg"`
			Timestamp string `json:"timestamp"`
		}
		if err := decode(&w); err != nil {
			return nil, err
		}
		return Status{Body: w.Msg, Timestamp: parseWireTime(w.Timestamp)}, nil

	case "room_state":
		var w struct {
			Room          string `json:"room"`
			MessagePolicy string `json:"message_policy"`
			CanSend       *bool  `json:"can_send_messages"`
		}
		if err := decode(&w); err != nil {
			return nil, err
		}
		return RoomState{Room: w.Room, PolicyLabel: w.MessagePolicy, CanSend: w.CanSend == nil || *w.CanSend}, nil

	case "room_expired":
		var w struct {
			Room string `json:"room"`
		}
		if err := decode(&w); err != nil {
			return nil, err
		}
		return RoomExpired{Room: w.Room}, nil

	case "message_error":
		var w struct {
			Error string `json:"error"`
		}
		if err := decode(&w); err != nil {
			return nil, err
		}
		return SendError{Reason: w.Error}, nil

	case "active_users":
		var w struct {
			Users []json.RawMessage `json:"users"`
		}
		if err := decode(&w); err != nil {
			return nil, err
		}
		return Presence{Users: decodePresence(w.Users)}, nil

	case "connect":
		return Connected{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
}

// DefaultAvatarPath is used for users that have no avatar.
const DefaultAvatarPath = "/static/icons/Guest.jpeg"

// decodePresence accepts bare usernames or {username, avatar_url} objects and
// drops entries without a username.
func decodePresence(raw []json.RawMessage) []PresenceUser {
	users := make([]PresenceUser, 0, len(raw))
	for _, r := range raw {
		var u PresenceUser
		var name string
		if json.Unmarshal(r, &name) == nil {
			u.Username = name
		} else if json.Unmarshal(r, &u) != nil {
			continue
		}
		if u.Username == "" {
			continue
		}
		if strings.TrimSpace(u.AvatarURL) == "" {
			u.AvatarURL = DefaultAvatarPath
		}
		users = append(users, u)
	}
	return users
}

// EncodeAction renders an outbound action as a wire frame.
func EncodeAction(a Action) ([]byte, error) {
	var payload map[string]any
	switch act := a.(type) {
	case JoinRoom:
		payload = map[string]any{"room": act.Room}
	case LeaveRoom:
		payload = map[string]any{"room": act.Room}
	case SendRoomText:
		payload = map[string]any{"msg": act.Body, "room": act.Room, "reply_to": wireReplyOf(act.ReplyTo)}
	case SendRoomSticker:
		payload = map[string]any{"type": "sticker", "room": act.Room, "file": act.File, "msg": act.File}
	case SendPrivateText:
		payload = map[string]any{"type": "private", "msg": act.Body, "target": act.Target, "reply_to": wireReplyOf(act.ReplyTo)}
	case SendPrivateSticker:
		payload = map[string]any{"type": "private_sticker", "target": act.Target, "file": act.File, "msg": act.File}
	case MarkPrivateRead:
		payload = map[string]any{"conversation_id": act.ConversationID}
	default:
		return nil, fmt.Errorf("unsupported action %T", a)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: a.actionType(), Payload: raw})
}

func wireReplyOf(r *ReplyRef) any {
	if r == nil {
		return nil
	}
	return map[string]string{"id": r.ID, "sender": r.Sender, "msg": r.Snippet}
}

// ── Time parsing ─────────────────────────────────────────

// wireTimeLayouts covers RFC 3339 and the offset-less ISO form the server
// emits for naive timestamps (read as UTC).
var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseWireTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

func parseWireTimePtr(s string) *time.Time {
	t := parseWireTime(s)
	if t.IsZero() {
		return nil
	}
	return &t
}
