package partychat

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ============================================================================
// Shared Types
// ============================================================================

// APIError is a non-2xx response from the chat server.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "http " + strconv.Itoa(e.StatusCode)
	}
	return "http " + strconv.Itoa(e.StatusCode) + ": " + e.Message
}

// ============================================================================
// Private Chat Types
// ============================================================================

// PrivateHistoryMessage is one row of GET /api/private-chats/{id}/messages.
type PrivateHistoryMessage struct {
	ID             FlexID `json:"id"`
	SenderUsername string `json:"sender_username"`
	Body           string `json:"body"`
	MessageType    string `json:"message_type"`
	StickerFile    string `json:"sticker_file"`
	Status         string `json:"status"`
	DeliveredAt    string `json:"delivered_at"`
	ReadAt         string `json:"read_at"`
	CreatedAt      string `json:"created_at"`
}

// Wire converts the row into an engine payload.
func (m PrivateHistoryMessage) Wire() WireMessage {
	w := WireMessage{
		ID:          string(m.ID),
		Sender:      m.SenderUsername,
		Content:     m.Body,
		Kind:        KindText,
		Status:      DeliveryStatus(m.Status),
		DeliveredAt: parseWireTimePtr(m.DeliveredAt),
		ReadAt:      parseWireTimePtr(m.ReadAt),
		Timestamp:   parseWireTime(m.CreatedAt),
	}
	if m.MessageType == "private_sticker" {
		w.Kind = KindSticker
		w.Content = m.StickerFile
	}
	return w
}

// UserRef is a user as embedded in private chat responses.
type UserRef struct {
	ID          FlexID `json:"id,omitempty"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func (u UserRef) partner() Partner {
	p := Partner{Username: u.Username, DisplayName: u.DisplayName}
	if p.DisplayName == "" {
		p.DisplayName = p.Username
	}
	return p
}

// PrivateHistoryResult is the body of the history endpoint.
type PrivateHistoryResult struct {
	Messages []PrivateHistoryMessage `json:"messages"`
	Partner  UserRef                 `json:"partner"`
}

// ThreadSummary is one entry of GET /api/private-chats. Older servers use the
// partner_ prefixed names.
type ThreadSummary struct {
	ConversationID     FlexID `json:"conversation_id"`
	Username           string `json:"username"`
	PartnerUsername    string `json:"partner_username"`
	DisplayName        string `json:"display_name"`
	PartnerDisplayName string `json:"partner_display_name"`
	Preview            string `json:"preview"`
	UpdatedAt          string `json:"updated_at"`
	UnreadCount        int    `json:"unread_count"`
}

// Update converts the summary into a directory update.
func (t ThreadSummary) Update() ThreadUpdate {
	u := ThreadUpdate{
		ConversationID: string(t.ConversationID),
		Username:       firstNonEmpty(t.Username, t.PartnerUsername),
		DisplayName:    firstNonEmpty(t.DisplayName, t.PartnerDisplayName),
		Preview:        t.Preview,
		UpdatedAt:      parseWireTime(t.UpdatedAt),
		UnreadCount:    t.UnreadCount,
	}
	if u.DisplayName == "" {
		u.DisplayName = u.Username
	}
	return u
}

// ThreadListResult is the body of GET /api/private-chats.
type ThreadListResult struct {
	Threads []ThreadSummary `json:"threads"`
}

// StartPrivateResult is the body of POST /api/private-chats/start.
type StartPrivateResult struct {
	ConversationID FlexID  `json:"conversation_id"`
	Target         UserRef `json:"target"`
}

// UserListResult is the body of GET /api/users.
type UserListResult struct {
	Users []UserRef `json:"users"`
}

// ============================================================================
// Room Types
// ============================================================================

// JoinRoomResult is the body of POST /api/rooms/join.
type JoinRoomResult struct {
	Room          string `json:"room"`
	MessagePolicy string `json:"message_policy"`
}

// decodeAPIError reads the server's {"error": "..."} body.
func decodeAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Error
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
		if len(e.Message) > 200 {
			e.Message = Truncate(e.Message, 200)
		}
	}
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
