// Package partychat is the conversation synchronization engine of the
// PartyChat client, plus the HTTP and WebSocket clients that feed it.
//
// The Engine owns every conversation log, the private thread directory, the
// pending reply and the room send policy. Inbound events go through
// Engine.Handle; user actions are Engine methods.
//
// Example:
//
//	client := partychat.NewClient(session, partychat.WithBaseURL("https://chat.example.com"))
//	ws := client.Realtime().ConnectWS(&partychat.RealtimeConfig{})
//
//	engine := partychat.NewEngine("alice",
//		partychat.WithTransport(ws),
//		partychat.WithCollaborators(client.Collaborators()),
//		partychat.WithStorage(partychat.NewMemoryStorage()),
//	)
//	ws.OnEvent(func(ev partychat.Event) { engine.Handle(ctx, ev) })
//	ws.Connect(ctx)
//
//	engine.SendText(ctx, "hello")
package partychat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "http://localhost:5000"
	DefaultTimeout = 30 * time.Second

	// SessionCookie is the cookie the server authenticates with.
	SessionCookie = "session"

	historyLimit = 50
)

// ============================================================================
// Client
// ============================================================================

// Client calls the chat server's HTTP API.
type Client struct {
	session    string
	baseURL    string
	httpClient *http.Client

	PrivateChats *PrivateChatsClient
	Rooms        *RoomsClient
	Users        *UsersClient
}

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// NewClient creates a client authenticated by a session cookie value.
// session may be empty for unauthenticated calls.
func NewClient(session string, opts ...ClientOption) *Client {
	c := &Client{
		session: session,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.PrivateChats = &PrivateChatsClient{c: c}
	c.Rooms = &RoomsClient{c: c}
	c.Users = &UsersClient{c: c}
	return c
}

// SetSession replaces the session cookie value.
func (c *Client) SetSession(session string) {
	c.session = session
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// ============================================================================
// Internal request helper
// ============================================================================

// doRequest sends body as JSON, or as a form when it is url.Values. Non-2xx
// responses become *APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, body any, query map[string]string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		params := url.Values{}
		for k, v := range query {
			params.Set(k, v)
		}
		u += "?" + params.Encode()
	}

	var bodyReader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case url.Values:
		bodyReader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: c.session})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if len(bytes.TrimSpace(data)) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

func do[T any](ctx context.Context, c *Client, method, path string, body any, query map[string]string) (*T, error) {
	data, err := c.doRequest(ctx, method, path, body, query)
	if err != nil {
		return nil, err
	}
	return decodeJSON[T](data)
}

// ============================================================================
// Private chats
// ============================================================================

type PrivateChatsClient struct{ c *Client }

// History returns the newest page of a conversation, oldest first.
func (p *PrivateChatsClient) History(ctx context.Context, conversationID string, limit int) (*PrivateHistoryResult, error) {
	if limit <= 0 {
		limit = historyLimit
	}
	return do[PrivateHistoryResult](ctx, p.c, "GET", "/api/private-chats/"+url.PathEscape(conversationID)+"/messages",
		nil, map[string]string{"strategy": "newest", "limit": fmt.Sprint(limit)})
}

// MarkRead marks every message of a conversation read.
func (p *PrivateChatsClient) MarkRead(ctx context.Context, conversationID string) error {
	_, err := p.c.doRequest(ctx, "POST", "/api/private-chats/"+url.PathEscape(conversationID)+"/read", nil, nil)
	return err
}

// List returns the thread directory.
func (p *PrivateChatsClient) List(ctx context.Context) (*ThreadListResult, error) {
	return do[ThreadListResult](ctx, p.c, "GET", "/api/private-chats", nil, nil)
}

// Start finds or creates the conversation with a user.
func (p *PrivateChatsClient) Start(ctx context.Context, targetID string) (*StartPrivateResult, error) {
	return do[StartPrivateResult](ctx, p.c, "POST", "/api/private-chats/start", map[string]string{"target_id": targetID}, nil)
}

// ============================================================================
// Rooms
// ============================================================================

type RoomsClient struct{ c *Client }

// JoinByCode resolves a room code. Codes are case-insensitive.
func (r *RoomsClient) JoinByCode(ctx context.Context, code string) (*JoinRoomResult, error) {
	form := url.Values{"room_code": {strings.ToUpper(strings.TrimSpace(code))}}
	return do[JoinRoomResult](ctx, r.c, "POST", "/api/rooms/join", form, nil)
}

// Delete removes a room owned by the user.
func (r *RoomsClient) Delete(ctx context.Context, room string) error {
	_, err := r.c.doRequest(ctx, "POST", "/api/rooms/delete", url.Values{"room_name": {room}}, nil)
	return err
}

// ============================================================================
// Users
// ============================================================================

type UsersClient struct{ c *Client }

// Search lists users matching query; an empty query lists everyone.
func (u *UsersClient) Search(ctx context.Context, query string) (*UserListResult, error) {
	var q map[string]string
	if query != "" {
		q = map[string]string{"q": query}
	}
	return do[UserListResult](ctx, u.c, "GET", "/api/users", nil, q)
}

// ============================================================================
// Engine collaborators
// ============================================================================

// Collaborators adapts the client to what the Engine needs.
func (c *Client) Collaborators() Collaborators {
	return httpCollaborators{c: c}
}

type httpCollaborators struct{ c *Client }

func (h httpCollaborators) FetchPrivateHistory(ctx context.Context, conversationID string) (*HistoryPage, error) {
	res, err := h.c.PrivateChats.History(ctx, conversationID, historyLimit)
	if err != nil {
		return nil, err
	}
	page := &HistoryPage{Partner: res.Partner.partner(), Messages: make([]WireMessage, 0, len(res.Messages))}
	for _, m := range res.Messages {
		page.Messages = append(page.Messages, m.Wire())
	}
	return page, nil
}

func (h httpCollaborators) MarkPrivateRead(ctx context.Context, conversationID string) error {
	return h.c.PrivateChats.MarkRead(ctx, conversationID)
}

func (h httpCollaborators) ListPrivateThreads(ctx context.Context) ([]ThreadUpdate, error) {
	res, err := h.c.PrivateChats.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ThreadUpdate, 0, len(res.Threads))
	for _, t := range res.Threads {
		out = append(out, t.Update())
	}
	return out, nil
}

func (h httpCollaborators) StartPrivate(ctx context.Context, targetID string) (string, Partner, error) {
	res, err := h.c.PrivateChats.Start(ctx, targetID)
	if err != nil {
		return "", Partner{}, err
	}
	if res.ConversationID == "" {
		return "", Partner{}, fmt.Errorf("%w: start response without conversation_id", ErrMalformedEvent)
	}
	return string(res.ConversationID), res.Target.partner(), nil
}

func (h httpCollaborators) JoinRoomByCode(ctx context.Context, code string) (string, string, error) {
	res, err := h.c.Rooms.JoinByCode(ctx, code)
	if err != nil {
		return "", "", err
	}
	if res.Room == "" {
		return "", "", fmt.Errorf("%w: join response without room", ErrMalformedEvent)
	}
	return res.Room, res.MessagePolicy, nil
}

func (h httpCollaborators) DeleteRoom(ctx context.Context, room string) error {
	return h.c.Rooms.Delete(ctx, room)
}

// ============================================================================
// Realtime
// ============================================================================

// Realtime returns the real-time connection factory.
func (c *Client) Realtime() *RealtimeFactory {
	return &RealtimeFactory{c: c}
}

// RealtimeFactory builds real-time clients for the server.
type RealtimeFactory struct{ c *Client }

// WSUrl returns the WebSocket URL.
func (r *RealtimeFactory) WSUrl() string {
	base := strings.Replace(r.c.baseURL, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/ws"
}

// ConnectWS creates a WebSocket client. Call Connect to establish the connection.
func (r *RealtimeFactory) ConnectWS(config *RealtimeConfig) *RealtimeWSClient {
	cfg := RealtimeConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.Session == "" {
		cfg.Session = r.c.session
	}
	cfg.defaults()
	return newRealtimeWSClient(r.WSUrl(), &cfg)
}
