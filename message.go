package partychat

import (
	"strings"
	"time"
)

// ============================================================================
// Message Types
// ============================================================================

// MessageKind is the body type of a message.
type MessageKind string

const (
	KindText    MessageKind = "text"
	KindSticker MessageKind = "sticker"
)

// Origin determines how a message is rendered and filtered.
type Origin string

const (
	OriginOwn     Origin = "own"
	OriginOther   Origin = "other"
	OriginPrivate Origin = "private"
	OriginSystem  Origin = "system"
)

// ThreadType mirrors the kind of conversation a message lives in.
type ThreadType string

const (
	ThreadRoom    ThreadType = "room"
	ThreadPrivate ThreadType = "private"
)

// DeliveryStatus tracks private message delivery.
type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// LocalIDPrefix marks ids of messages the server has not confirmed yet.
const LocalIDPrefix = "local-"

// SystemSender is the display identity of status notices.
const SystemSender = "System"

// ReplyRef points back at the message being replied to.
type ReplyRef struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Snippet string `json:"msg"`
}

// Message is one entry in a conversation log.
type Message struct {
	ID          string         `json:"id,omitempty"`
	Sender      string         `json:"sender"`
	Content     string         `json:"message"`
	Kind        MessageKind    `json:"kind"`
	Origin      Origin         `json:"type"`
	ThreadType  ThreadType     `json:"threadType"`
	ReplyTo     *ReplyRef      `json:"replyTo,omitempty"`
	AvatarURL   string         `json:"avatarUrl,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Status      DeliveryStatus `json:"status,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
}

// Pending reports whether m is a local echo the server has not confirmed.
func (m Message) Pending() bool {
	return strings.HasPrefix(m.ID, LocalIDPrefix)
}

// IsSticker reports whether m carries a sticker reference.
func (m Message) IsSticker() bool {
	return m.Kind == KindSticker
}

// Repliable reports whether m can be the target of a reply.
func (m Message) Repliable() bool {
	return m.Origin != OriginSystem && m.ID != ""
}

// Draft is a locally composed message before it is appended optimistically.
type Draft struct {
	Content   string
	Kind      MessageKind
	ReplyTo   *ReplyRef
	AvatarURL string
}

// WireMessage is a message payload as delivered by an event or history page,
// before origin and thread type are derived.
type WireMessage struct {
	ID          string
	Sender      string
	Content     string
	Kind        MessageKind
	System      bool
	ReplyTo     *ReplyRef
	AvatarURL   string
	Timestamp   time.Time
	Status      DeliveryStatus
	DeliveredAt *time.Time
	ReadAt      *time.Time
}

// normalize derives origin, thread type and defaults for a wire payload that
// belongs to key, as seen by identity.
func (w WireMessage) normalize(key ConversationKey, identity string, now time.Time) Message {
	m := Message{
		ID:          w.ID,
		Sender:      w.Sender,
		Content:     w.Content,
		Kind:        w.Kind,
		ReplyTo:     w.ReplyTo,
		AvatarURL:   w.AvatarURL,
		Timestamp:   w.Timestamp,
		DeliveredAt: w.DeliveredAt,
		ReadAt:      w.ReadAt,
	}
	if m.Kind == "" {
		m.Kind = KindText
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = now
	}
	if key.IsPrivate() {
		m.ThreadType = ThreadPrivate
		m.Status = w.Status
		if m.Status == "" {
			m.Status = StatusSent
		}
	} else {
		m.ThreadType = ThreadRoom
	}

	switch {
	case w.System:
		m.Origin = OriginSystem
		if m.Sender == "" {
			m.Sender = SystemSender
		}
	case w.Sender != "" && w.Sender == identity:
		m.Origin = OriginOwn
	case key.IsPrivate():
		m.Origin = OriginPrivate
	default:
		m.Origin = OriginOther
	}
	if m.Sender == "" {
		m.Sender = "unknown"
	}
	return m
}

// previewText is the directory preview for a message body.
func previewText(kind MessageKind, content string) string {
	if kind == KindSticker {
		return StickerPreview
	}
	return content
}

// StickerPreview stands in for sticker bodies in thread previews.
const StickerPreview = "📎 Sticker"
