package partychat

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// Conversation Keys
// ============================================================================

// KeyKind distinguishes room streams from private 1:1 streams.
type KeyKind string

const (
	KindRoom    KeyKind = "room"
	KindPrivate KeyKind = "private"
)

// ConversationKey partitions message logs. The zero value is not a valid key.
// Private ids are opaque strings assigned by the server.
type ConversationKey struct {
	Kind KeyKind
	ID   string
}

// RoomKey returns the key for a named room.
func RoomKey(name string) ConversationKey {
	return ConversationKey{Kind: KindRoom, ID: name}
}

// PrivateKey returns the key for a private conversation id.
func PrivateKey(conversationID string) ConversationKey {
	return ConversationKey{Kind: KindPrivate, ID: conversationID}
}

// IsRoom reports whether k names a room.
func (k ConversationKey) IsRoom() bool { return k.Kind == KindRoom }

// IsPrivate reports whether k names a private conversation.
func (k ConversationKey) IsPrivate() bool { return k.Kind == KindPrivate }

// IsZero reports whether k is the zero key.
func (k ConversationKey) IsZero() bool { return k.Kind == "" && k.ID == "" }

// String renders the key as "room:<name>" or "private:<id>".
func (k ConversationKey) String() string {
	return string(k.Kind) + ":" + k.ID
}

// ParseKey parses the String form of a key.
func ParseKey(s string) (ConversationKey, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return ConversationKey{}, fmt.Errorf("invalid conversation key %q", s)
	}
	switch KeyKind(kind) {
	case KindRoom, KindPrivate:
		return ConversationKey{Kind: KeyKind(kind), ID: id}, nil
	default:
		return ConversationKey{}, fmt.Errorf("invalid conversation key kind %q", kind)
	}
}

// MarshalText lets keys be used as JSON object keys.
func (k ConversationKey) MarshalText() ([]byte, error) {
	if k.IsZero() {
		return nil, errors.New("cannot marshal zero conversation key")
	}
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *ConversationKey) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ============================================================================
// Router
// ============================================================================

var (
	// ErrMalformedEvent is returned when a required routing field is absent.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnscoped is returned for events and actions that belong to no conversation.
	ErrUnscoped = errors.New("event has no conversation")
)

// Router resolves events and actions to the one conversation they belong to.
// CurrentRoom is the room the local user has joined; room events that omit
// their room and status notices land there.
type Router struct {
	CurrentRoom string
}

// Resolve returns the conversation an inbound event belongs to. Events that
// carry no conversation (policy, presence, errors, batches) return ErrUnscoped;
// batch items are resolved one by one.
func (r Router) Resolve(ev Event) (ConversationKey, error) {
	switch e := ev.(type) {
	case RoomMessage:
		return r.room(e.Room), nil
	case RoomSticker:
		return r.room(e.Room), nil
	case PrivateMessage:
		return r.private(e.ConversationID, "private_message")
	case PrivateSticker:
		return r.private(e.ConversationID, "private_sticker")
	case RoomHistory:
		if e.Room == "" {
			return ConversationKey{}, fmt.Errorf("%w: room_history without room", ErrMalformedEvent)
		}
		return RoomKey(e.Room), nil
	case Status:
		return RoomKey(r.CurrentRoom), nil
	case PrivateMessageBatch, RoomState, RoomExpired, SendError, Presence, Connected:
		return ConversationKey{}, ErrUnscoped
	default:
		return ConversationKey{}, fmt.Errorf("%w: unhandled event %T", ErrMalformedEvent, ev)
	}
}

// ResolveAction returns the conversation an outbound action targets.
func (r Router) ResolveAction(a Action) (ConversationKey, error) {
	switch act := a.(type) {
	case JoinRoom:
		return RoomKey(act.Room), nil
	case LeaveRoom:
		return RoomKey(act.Room), nil
	case SendRoomText:
		return r.room(act.Room), nil
	case SendRoomSticker:
		return r.room(act.Room), nil
	case SendPrivateText:
		return r.private(act.ConversationID, "private send")
	case SendPrivateSticker:
		return r.private(act.ConversationID, "private sticker send")
	case MarkPrivateRead:
		return r.private(act.ConversationID, "mark_private_read")
	default:
		return ConversationKey{}, fmt.Errorf("%w: unhandled action %T", ErrMalformedEvent, a)
	}
}

func (r Router) room(name string) ConversationKey {
	if name == "" {
		name = r.CurrentRoom
	}
	return RoomKey(name)
}

func (r Router) private(id, what string) (ConversationKey, error) {
	if id == "" {
		return ConversationKey{}, fmt.Errorf("%w: %s without conversation id", ErrMalformedEvent, what)
	}
	return PrivateKey(id), nil
}
