package partychat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Message Reconciler
// ============================================================================

// Reconciler owns the ordered log of every conversation. For one key, the
// order of AppendOptimistic and ApplyInbound calls is the log order. Every
// mutation is followed by a full persist.
//
// A Reconciler is not goroutine-safe; the Engine serializes access.
type Reconciler struct {
	identity  string
	logs      map[ConversationKey][]Message
	persister *Persister
	now       func() time.Time
	newID     func() string
}

// NewReconciler returns a reconciler for identity, hydrated from persister.
// A nil persister keeps logs in memory only.
func NewReconciler(identity string, persister *Persister) *Reconciler {
	return &Reconciler{
		identity:  identity,
		logs:      persister.HydrateMessages(),
		persister: persister,
		now:       time.Now,
		newID:     func() string { return LocalIDPrefix + uuid.NewString() },
	}
}

func validKey(key ConversationKey) error {
	if key.ID == "" || (key.Kind != KindRoom && key.Kind != KindPrivate) {
		return fmt.Errorf("%w: invalid conversation key %q", ErrMalformedEvent, key.String())
	}
	return nil
}

// AppendOptimistic appends a locally composed message with a placeholder id
// before the server confirms it.
func (r *Reconciler) AppendOptimistic(key ConversationKey, d Draft) (Message, error) {
	if err := validKey(key); err != nil {
		return Message{}, err
	}
	m := WireMessage{
		ID:        r.newID(),
		Sender:    r.identity,
		Content:   d.Content,
		Kind:      d.Kind,
		ReplyTo:   d.ReplyTo,
		AvatarURL: d.AvatarURL,
		Timestamp: r.now(),
	}.normalize(key, r.identity, r.now())
	m.Origin = OriginOwn
	r.append(key, m)
	return m, nil
}

// ApplyInbound normalizes a server payload and appends it. It never merges
// with an earlier optimistic copy of the same action.
func (r *Reconciler) ApplyInbound(key ConversationKey, w WireMessage) (Message, error) {
	if err := validKey(key); err != nil {
		return Message{}, err
	}
	m := w.normalize(key, r.identity, r.now())
	r.append(key, m)
	return m, nil
}

// ConfirmEcho looks for the newest pending own message in key with the same
// kind and content as w, composed no earlier than window before now. When one
// exists it takes the server id and timestamp in place and true is returned;
// otherwise the log is left untouched.
func (r *Reconciler) ConfirmEcho(key ConversationKey, w WireMessage, window time.Duration) (Message, bool) {
	log := r.logs[key]
	kind := w.Kind
	if kind == "" {
		kind = KindText
	}
	cutoff := r.now().Add(-window)
	for i := len(log) - 1; i >= 0; i-- {
		m := log[i]
		if !m.Pending() || m.Origin != OriginOwn {
			continue
		}
		if m.Timestamp.Before(cutoff) {
			break
		}
		if m.Kind != kind || m.Content != w.Content {
			continue
		}
		if w.ID != "" {
			m.ID = w.ID
		}
		if !w.Timestamp.IsZero() {
			m.Timestamp = w.Timestamp
		}
		if w.AvatarURL != "" {
			m.AvatarURL = w.AvatarURL
		}
		log[i] = m
		r.persist()
		return m, true
	}
	return Message{}, false
}

// ReplaceHistory swaps the whole log of key for authoritative history,
// oldest first. Pending local entries for key are discarded.
func (r *Reconciler) ReplaceHistory(key ConversationKey, history []WireMessage) ([]Message, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	now := r.now()
	log := make([]Message, 0, len(history))
	for _, w := range history {
		log = append(log, w.normalize(key, r.identity, now))
	}
	r.logs[key] = log
	r.persist()
	return r.Get(key), nil
}

// Get returns a copy of the log for key. Callers may keep and iterate it
// while the engine keeps appending.
func (r *Reconciler) Get(key ConversationKey) []Message {
	log := r.logs[key]
	out := make([]Message, len(log))
	copy(out, log)
	return out
}

// Find returns the message with id in the log for key.
func (r *Reconciler) Find(key ConversationKey, id string) (Message, bool) {
	if id == "" {
		return Message{}, false
	}
	for _, m := range r.logs[key] {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Len reports the number of messages logged for key.
func (r *Reconciler) Len(key ConversationKey) int {
	return len(r.logs[key])
}

// Snapshot returns a copy of every log.
func (r *Reconciler) Snapshot() map[ConversationKey][]Message {
	out := make(map[ConversationKey][]Message, len(r.logs))
	for k := range r.logs {
		out[k] = r.Get(k)
	}
	return out
}

func (r *Reconciler) append(key ConversationKey, m Message) {
	r.logs[key] = append(r.logs[key], m)
	r.persist()
}

func (r *Reconciler) persist() {
	r.persister.PersistMessages(r.logs)
}
