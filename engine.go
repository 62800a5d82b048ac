package partychat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// Collaborators
// ============================================================================

// Transport carries outbound actions to the server.
type Transport interface {
	Send(ctx context.Context, action Action) error
}

// Partner identifies the other side of a private conversation.
type Partner struct {
	Username    string
	DisplayName string
}

// HistoryPage is one page of private history, oldest first.
type HistoryPage struct {
	Messages []WireMessage
	Partner  Partner
}

// Collaborators are the request/response calls the engine depends on but does
// not implement. Client.Collaborators returns the HTTP implementation.
type Collaborators interface {
	FetchPrivateHistory(ctx context.Context, conversationID string) (*HistoryPage, error)
	MarkPrivateRead(ctx context.Context, conversationID string) error
	ListPrivateThreads(ctx context.Context) ([]ThreadUpdate, error)
	StartPrivate(ctx context.Context, targetID string) (string, Partner, error)
	JoinRoomByCode(ctx context.Context, code string) (room, policyLabel string, err error)
	DeleteRoom(ctx context.Context, room string) error
}

var (
	// ErrNotConnected is returned when an action is sent with no transport.
	ErrNotConnected = errors.New("not connected")
	// ErrNoConversation is returned by sends while no conversation is open.
	ErrNoConversation = errors.New("no conversation open")
	// ErrNoCollaborators is returned by calls that need the HTTP collaborators.
	ErrNoCollaborators = errors.New("no collaborators configured")
)

// ============================================================================
// Listeners
// ============================================================================

// Listener topics.
const (
	TopicConversationUpdated = "conversation.updated" // payload: ConversationKey
	TopicThreadsUpdated      = "threads.updated"      // payload: []DMThread
	TopicFeedback            = "feedback"             // payload: string
	TopicPresenceUpdated     = "presence.updated"     // payload: []PresenceUser
	TopicRoomChanged         = "room.changed"         // payload: ConversationKey
	TopicPolicyUpdated       = "policy.updated"       // payload: string (room)
)

// EngineEventHandler receives engine notifications.
type EngineEventHandler func(topic string, payload any)

type notification struct {
	topic   string
	payload any
}

type engineEmitter struct {
	mu        sync.RWMutex
	listeners map[string][]EngineEventHandler
}

// On registers handler for topic. Handlers run after the turn that produced
// the notification has released the engine, so they may call back into it.
func (e *engineEmitter) On(topic string, handler EngineEventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[topic] = append(e.listeners[topic], handler)
}

func (e *engineEmitter) emit(topic string, payload any) {
	e.mu.RLock()
	handlers := e.listeners[topic]
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() { recover() }() // swallow panics in user callbacks
			h(topic, payload)
		}()
	}
}

// ============================================================================
// Engine
// ============================================================================

const (
	// DefaultRoom is joined on connect and after the current room expires.
	DefaultRoom = "General"

	sendErrorFeedback    = "You are not allowed to send messages in this room."
	historyErrorFeedback = "Unable to load conversation history."
)

// Engine is the conversation synchronization engine for one identity. Every
// exported method is one turn; turns never interleave. Network calls made on
// behalf of a turn happen after it ends.
type Engine struct {
	engineEmitter

	mu       sync.Mutex
	identity string
	router   Router
	active   ConversationKey
	partner  Partner

	rec       *Reconciler
	dir       *Directory
	policy    *Policy
	reply     ReplyState
	persister *Persister

	transport Transport
	collab    Collaborators
	logger    *slog.Logger
	now       func() time.Time

	defaultRoom       string
	echoWindow        time.Duration
	backgroundHistory bool

	feedback string
	presence []PresenceUser
	fetchSeq uint64

	notes   []notification
	outbox  []Action
	storage Storage
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTransport sets where outbound actions go.
func WithTransport(t Transport) EngineOption {
	return func(e *Engine) { e.transport = t }
}

// WithStorage sets the durable store. Without one, state lives in memory.
func WithStorage(s Storage) EngineOption {
	return func(e *Engine) { e.storage = s }
}

// WithCollaborators sets the request/response collaborators.
func WithCollaborators(c Collaborators) EngineOption {
	return func(e *Engine) { e.collab = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithDefaultRoom overrides DefaultRoom.
func WithDefaultRoom(room string) EngineOption {
	return func(e *Engine) { e.defaultRoom = room }
}

// WithEchoSuppression makes an own inbound message confirm the newest
// matching pending entry composed within window, instead of appending a
// second copy. Zero keeps both copies.
func WithEchoSuppression(window time.Duration) EngineOption {
	return func(e *Engine) { e.echoWindow = window }
}

// WithBackgroundHistory applies history that arrives after the user has
// switched to another conversation. By default such results are dropped.
func WithBackgroundHistory() EngineOption {
	return func(e *Engine) { e.backgroundHistory = true }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine for identity and hydrates its state.
func NewEngine(identity string, opts ...EngineOption) *Engine {
	e := &Engine{
		engineEmitter: engineEmitter{listeners: make(map[string][]EngineEventHandler)},
		identity:      identity,
		policy:        NewPolicy(),
		defaultRoom:   DefaultRoom,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = discardLogger()
	}
	e.persister = NewPersister(e.storage, identity, e.logger)
	e.rec = NewReconciler(identity, e.persister)
	e.rec.now = e.now
	e.dir = NewDirectory(e.persister.HydrateThreads())
	return e
}

// turn runs fn under the engine lock, then sends the actions it queued and
// delivers its notifications, in that order.
func (e *Engine) turn(ctx context.Context, fn func() error) error {
	e.mu.Lock()
	err := fn()
	notes, actions := e.notes, e.outbox
	e.notes, e.outbox = nil, nil
	e.mu.Unlock()

	sendErr := e.dispatch(ctx, actions)
	for _, n := range notes {
		e.emit(n.topic, n.payload)
	}
	return errors.Join(err, sendErr)
}

func (e *Engine) dispatch(ctx context.Context, actions []Action) error {
	for _, a := range actions {
		if e.transport == nil {
			return ErrNotConnected
		}
		if err := e.transport.Send(ctx, a); err != nil {
			e.logger.Warn("action_send_failed", "action", a.actionType(), "err", err)
			return fmt.Errorf("send %s: %w", a.actionType(), err)
		}
	}
	return nil
}

func (e *Engine) notify(topic string, payload any) {
	e.notes = append(e.notes, notification{topic: topic, payload: payload})
}

func (e *Engine) queue(a Action) {
	e.outbox = append(e.outbox, a)
}

func (e *Engine) setFeedback(text string) {
	e.feedback = text
	e.notify(TopicFeedback, text)
}

func (e *Engine) threadsChanged() {
	e.persister.PersistThreads(e.dir.Entries())
	e.notify(TopicThreadsUpdated, e.dir.List())
}

// ── Inbound events ───────────────────────────────────────

// Handle applies one inbound event. Malformed events leave state unchanged
// and return an error wrapping ErrMalformedEvent.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	if ev == nil {
		return fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	return e.turn(ctx, func() error {
		err := e.handle(ev)
		if err != nil {
			e.logger.Warn("event_malformed", "type", ev.eventType(), "err", err)
		}
		return err
	})
}

func (e *Engine) handle(ev Event) error {
	switch ev := ev.(type) {
	case RoomMessage, RoomSticker:
		key, err := e.router.Resolve(ev)
		if err != nil {
			return err
		}
		return e.applyInbound(key, ev.(RoomEvent).roomWire())

	case PrivateMessage:
		return e.applyPrivate(ev)
	case PrivateSticker:
		return e.applyPrivate(ev)

	case PrivateMessageBatch:
		var errs []error
		for _, m := range ev.Messages {
			if err := e.applyPrivate(m); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)

	case RoomHistory:
		key, err := e.router.Resolve(ev)
		if err != nil {
			return err
		}
		history := make([]WireMessage, 0, len(ev.Messages))
		for _, m := range ev.Messages {
			history = append(history, m.roomWire())
		}
		if _, err := e.rec.ReplaceHistory(key, history); err != nil {
			return err
		}
		e.notify(TopicConversationUpdated, key)
		return nil

	case Status:
		key, err := e.router.Resolve(ev)
		if err != nil {
			return err
		}
		return e.applyInbound(key, WireMessage{Content: ev.Body, System: true, Timestamp: ev.Timestamp})

	case RoomState:
		if ev.Room == "" {
			return fmt.Errorf("%w: room_state without room", ErrMalformedEvent)
		}
		e.policy.Update(ev.Room, ev.PolicyLabel, ev.CanSend)
		e.notify(TopicPolicyUpdated, ev.Room)
		return nil

	case RoomExpired:
		if ev.Room == "" {
			return fmt.Errorf("%w: room_expired without room", ErrMalformedEvent)
		}
		if ev.Room == e.router.CurrentRoom {
			e.setFeedback("Room expired: " + ev.Room)
			e.switchRoom(e.defaultRoom, false)
		}
		return nil

	case SendError:
		reason := strings.TrimSpace(ev.Reason)
		if reason == "" {
			reason = sendErrorFeedback
		}
		e.setFeedback(reason)
		return nil

	case Presence:
		e.presence = append([]PresenceUser(nil), ev.Users...)
		e.notify(TopicPresenceUpdated, e.presenceCopy())
		return nil

	case Connected:
		room := e.router.CurrentRoom
		if room == "" {
			room = e.defaultRoom
			e.switchRoom(room, false)
			return nil
		}
		e.queue(JoinRoom{Room: room})
		return nil
	}
	return fmt.Errorf("%w: unhandled event %T", ErrMalformedEvent, ev)
}

func (e *Engine) applyInbound(key ConversationKey, w WireMessage) error {
	if e.echoWindow > 0 && w.Sender != "" && w.Sender == e.identity {
		if _, ok := e.rec.ConfirmEcho(key, w, e.echoWindow); ok {
			e.notify(TopicConversationUpdated, key)
			return nil
		}
	}
	if _, err := e.rec.ApplyInbound(key, w); err != nil {
		return err
	}
	e.notify(TopicConversationUpdated, key)
	return nil
}

// applyPrivate appends one private message and bumps its thread. A message
// in the open conversation leaves it read; our own messages from another
// device do not count as unread.
func (e *Engine) applyPrivate(ev PrivateEvent) error {
	key, err := e.router.Resolve(ev)
	if err != nil {
		return err
	}
	w := ev.privateWire()
	if err := e.applyInbound(key, w); err != nil {
		return err
	}

	prev, _ := e.dir.Get(key.ID)
	unread := prev.UnreadCount
	switch {
	case key == e.active:
		unread = 0
	case w.Sender != e.identity:
		unread++
	}
	update := ThreadUpdate{
		ConversationID: key.ID,
		Preview:        previewText(w.Kind, w.Content),
		UpdatedAt:      w.Timestamp,
		UnreadCount:    unread,
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = e.now()
	}
	if w.Sender != e.identity {
		update.Username = w.Sender
		if prev.DisplayName == "" {
			update.DisplayName = w.Sender
		}
	}
	e.dir.Upsert(update)
	e.threadsChanged()
	return nil
}

// ── Conversation switching ───────────────────────────────

// switchRoom makes room the joined and open conversation.
func (e *Engine) switchRoom(room string, leave bool) {
	if leave && e.router.CurrentRoom != "" && e.router.CurrentRoom != room {
		e.queue(LeaveRoom{Room: e.router.CurrentRoom})
	}
	e.router.CurrentRoom = room
	e.active = RoomKey(room)
	e.partner = Partner{}
	e.policy.Join(room)
	e.reply.ClearPending()
	e.fetchSeq++
	e.queue(JoinRoom{Room: room})
	e.notify(TopicRoomChanged, e.active)
}

// JoinRoom leaves the current room and joins room.
func (e *Engine) JoinRoom(ctx context.Context, room string) error {
	room = Sanitize(room)
	if room == "" {
		return fmt.Errorf("%w: empty room name", ErrMalformedEvent)
	}
	return e.turn(ctx, func() error {
		e.switchRoom(room, true)
		return nil
	})
}

// LeaveRoom leaves the current room. If it was open, no conversation is open
// afterwards.
func (e *Engine) LeaveRoom(ctx context.Context) error {
	return e.turn(ctx, func() error {
		room := e.router.CurrentRoom
		if room == "" {
			return nil
		}
		e.queue(LeaveRoom{Room: room})
		e.router.CurrentRoom = ""
		if e.active == RoomKey(room) {
			e.active = ConversationKey{}
			e.reply.ClearPending()
			e.fetchSeq++
			e.notify(TopicRoomChanged, e.active)
		}
		return nil
	})
}

// OpenPrivate opens a private conversation, loads its history and marks it
// read. History that arrives after the user has moved on is dropped unless
// WithBackgroundHistory is set.
func (e *Engine) OpenPrivate(ctx context.Context, conversationID string, partner Partner) error {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return fmt.Errorf("%w: empty conversation id", ErrMalformedEvent)
	}
	key := PrivateKey(conversationID)

	var seq uint64
	_ = e.turn(ctx, func() error {
		if prev, ok := e.dir.Get(conversationID); ok && partner.Username == "" {
			partner = Partner{Username: prev.Username, DisplayName: prev.DisplayName}
		}
		e.active = key
		e.partner = partner
		e.reply.ClearPending()
		e.fetchSeq++
		seq = e.fetchSeq
		e.dir.Upsert(ThreadUpdate{
			ConversationID: conversationID,
			Username:       partner.Username,
			DisplayName:    partner.DisplayName,
		})
		e.threadsChanged()
		e.notify(TopicRoomChanged, key)
		return nil
	})

	if e.collab == nil {
		return nil
	}
	page, err := e.collab.FetchPrivateHistory(ctx, conversationID)
	if err != nil {
		_ = e.turn(ctx, func() error {
			if e.fetchSeq == seq {
				e.setFeedback(historyErrorFeedback)
			}
			return nil
		})
		return fmt.Errorf("fetch history: %w", err)
	}

	stale := false
	err = e.turn(ctx, func() error {
		if e.fetchSeq != seq && !e.backgroundHistory {
			stale = true
			e.logger.Debug("history_discarded", "conversation", conversationID)
			return nil
		}
		return e.applyHistory(key, page)
	})
	if err != nil || stale {
		return err
	}
	return e.MarkRead(ctx, conversationID)
}

func (e *Engine) applyHistory(key ConversationKey, page *HistoryPage) error {
	if _, err := e.rec.ReplaceHistory(key, page.Messages); err != nil {
		return err
	}
	update := ThreadUpdate{
		ConversationID: key.ID,
		Username:       page.Partner.Username,
		DisplayName:    page.Partner.DisplayName,
		UpdatedAt:      e.now(),
	}
	if update.DisplayName == "" {
		update.DisplayName = update.Username
	}
	if n := len(page.Messages); n > 0 {
		last := page.Messages[n-1]
		update.Preview = previewText(last.Kind, last.Content)
		if !last.Timestamp.IsZero() {
			update.UpdatedAt = last.Timestamp
		}
	}
	if key == e.active && page.Partner.Username != "" {
		e.partner = page.Partner
	}
	if key != e.active {
		prev, _ := e.dir.Get(key.ID)
		update.UnreadCount = prev.UnreadCount
	}
	e.dir.Upsert(update)
	e.threadsChanged()
	e.notify(TopicConversationUpdated, key)
	return nil
}

// MarkRead marks a private conversation read on the server, tells the
// transport and resets the unread counter.
func (e *Engine) MarkRead(ctx context.Context, conversationID string) error {
	if e.collab != nil {
		if err := e.collab.MarkPrivateRead(ctx, conversationID); err != nil {
			e.logger.Debug("mark_read_failed", "conversation", conversationID, "err", err)
			return fmt.Errorf("mark read: %w", err)
		}
	}
	return e.turn(ctx, func() error {
		e.queue(MarkPrivateRead{ConversationID: conversationID})
		prev, ok := e.dir.Get(conversationID)
		if ok && prev.UnreadCount != 0 {
			e.dir.Upsert(ThreadUpdate{ConversationID: conversationID})
			e.threadsChanged()
		}
		return nil
	})
}

// StartPrivate starts (or finds) a conversation with a user and opens it.
func (e *Engine) StartPrivate(ctx context.Context, targetID string) (string, error) {
	if e.collab == nil {
		return "", ErrNoCollaborators
	}
	id, partner, err := e.collab.StartPrivate(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("start private chat: %w", err)
	}
	return id, e.OpenPrivate(ctx, id, partner)
}

// HydrateThreads merges the server's thread list into the directory.
func (e *Engine) HydrateThreads(ctx context.Context) error {
	if e.collab == nil {
		return ErrNoCollaborators
	}
	updates, err := e.collab.ListPrivateThreads(ctx)
	if err != nil {
		return fmt.Errorf("list threads: %w", err)
	}
	return e.turn(ctx, func() error {
		for _, u := range updates {
			if u.ConversationID == "" {
				continue
			}
			if PrivateKey(u.ConversationID) == e.active {
				u.UnreadCount = 0
			}
			e.dir.Upsert(u)
		}
		e.threadsChanged()
		return nil
	})
}

// JoinByCode resolves a room code and joins the room.
func (e *Engine) JoinByCode(ctx context.Context, code string) (string, error) {
	if e.collab == nil {
		return "", ErrNoCollaborators
	}
	room, label, err := e.collab.JoinRoomByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("join by code: %w", err)
	}
	return room, e.turn(ctx, func() error {
		e.policy.SetLabel(room, label)
		e.switchRoom(room, true)
		return nil
	})
}

// DeleteRoom deletes a room the user owns. If it is the joined room the
// engine falls back to the default room.
func (e *Engine) DeleteRoom(ctx context.Context, room string) error {
	if e.collab == nil {
		return ErrNoCollaborators
	}
	if err := e.collab.DeleteRoom(ctx, room); err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	return e.turn(ctx, func() error {
		if room == e.router.CurrentRoom {
			e.switchRoom(e.defaultRoom, false)
		}
		return nil
	})
}

// ── Sends ────────────────────────────────────────────────

// SendText sends text to the open conversation with the pending reply, if
// any. A send refused by the room policy is reported as feedback and returns
// nil without reaching the transport.
func (e *Engine) SendText(ctx context.Context, text string) error {
	body := strings.TrimSpace(text)
	if body == "" {
		return nil
	}
	return e.send(ctx, Draft{Content: body, Kind: KindText})
}

// SendSticker sends a sticker reference to the open conversation.
func (e *Engine) SendSticker(ctx context.Context, file string) error {
	file = strings.TrimSpace(file)
	if file == "" {
		return nil
	}
	return e.send(ctx, Draft{Content: file, Kind: KindSticker})
}

func (e *Engine) send(ctx context.Context, d Draft) error {
	return e.turn(ctx, func() error {
		key := e.active
		if key.IsZero() {
			return ErrNoConversation
		}
		if !e.policy.Gate(key) {
			e.setFeedback(DeniedFeedback)
			return nil
		}
		target := e.partner.Username
		if key.IsPrivate() && target == "" {
			if t, ok := e.dir.Get(key.ID); ok {
				target = t.Username
			}
			if target == "" {
				return fmt.Errorf("%w: no partner for conversation %s", ErrMalformedEvent, key.ID)
			}
		}
		if d.Kind == KindText {
			d.ReplyTo = e.reply.Pending()
		}

		if _, err := e.rec.AppendOptimistic(key, d); err != nil {
			return err
		}
		e.reply.ClearPending()
		e.notify(TopicConversationUpdated, key)

		switch {
		case key.IsRoom() && d.Kind == KindSticker:
			e.queue(SendRoomSticker{Room: key.ID, File: d.Content})
		case key.IsRoom():
			e.queue(SendRoomText{Room: key.ID, Body: d.Content, ReplyTo: d.ReplyTo})
		case d.Kind == KindSticker:
			e.queue(SendPrivateSticker{ConversationID: key.ID, Target: target, File: d.Content})
		default:
			e.queue(SendPrivateText{ConversationID: key.ID, Target: target, Body: d.Content, ReplyTo: d.ReplyTo})
		}

		if key.IsPrivate() {
			prev, _ := e.dir.Get(key.ID)
			e.dir.Upsert(ThreadUpdate{
				ConversationID: key.ID,
				Preview:        previewText(d.Kind, d.Content),
				UpdatedAt:      e.now(),
				UnreadCount:    prev.UnreadCount,
			})
			e.threadsChanged()
		}
		return nil
	})
}

// ── Reply threading ──────────────────────────────────────

// SetReply makes the message id in the open conversation the reply target.
func (e *Engine) SetReply(id string) error {
	return e.turn(context.Background(), func() error {
		m, ok := ResolveReply(e.rec.Get(e.active), id)
		if !ok || !m.Repliable() {
			return fmt.Errorf("message %q: %w", id, ErrNotFound)
		}
		e.reply.SetPending(ReplyTo(m))
		return nil
	})
}

// CancelReply drops the pending reply target.
func (e *Engine) CancelReply() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reply.ClearPending()
}

// PendingReply returns the pending reply target, or nil.
func (e *Engine) PendingReply() *ReplyRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reply.Pending()
}

// ResolveReply finds a message in the open conversation for jump-to navigation.
func (e *Engine) ResolveReply(id string) (Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Find(e.active, id)
}

// ── Readers ──────────────────────────────────────────────

// Identity returns the local user.
func (e *Engine) Identity() string { return e.identity }

// Active returns the open conversation, or the zero key.
func (e *Engine) Active() ConversationKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// CurrentRoom returns the joined room.
func (e *Engine) CurrentRoom() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.CurrentRoom
}

// ActivePartner returns the partner of the open private conversation.
func (e *Engine) ActivePartner() Partner {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.partner
}

// Messages returns a copy of the open conversation's log.
func (e *Engine) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Get(e.active)
}

// Conversation returns a copy of the log for key.
func (e *Engine) Conversation(key ConversationKey) []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Get(key)
}

// Threads returns the directory, most recent first.
func (e *Engine) Threads() []DMThread {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir.List()
}

// TotalUnread sums unread counters across threads.
func (e *Engine) TotalUnread() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir.TotalUnread()
}

// CanSend reports whether a send to the open conversation would pass the gate.
func (e *Engine) CanSend() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.Gate(e.active)
}

// Gate reports whether a send to key would pass the gate.
func (e *Engine) Gate(key ConversationKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.Gate(key)
}

// PolicyLabel returns the last known message policy of room.
func (e *Engine) PolicyLabel(room string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.policy.Label(room)
}

// Feedback returns the latest feedback text.
func (e *Engine) Feedback() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feedback
}

// ClearFeedback drops the feedback text.
func (e *Engine) ClearFeedback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.feedback = ""
}

// Presence returns the online users.
func (e *Engine) Presence() []PresenceUser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.presenceCopy()
}

func (e *Engine) presenceCopy() []PresenceUser {
	return append([]PresenceUser(nil), e.presence...)
}
