package partychat

import (
	"encoding/json"
	"errors"
	"log/slog"
)

// ============================================================================
// Persistence Adapter
// ============================================================================

const (
	messagesKeyPrefix = "partychat:roomMessages:"
	threadsKeyPrefix  = "partychat:dmThreads:"
)

// MessagesKey is the storage key of identity's conversation map.
func MessagesKey(identity string) string { return messagesKeyPrefix + identity }

// ThreadsKey is the storage key of identity's thread directory.
func ThreadsKey(identity string) string { return threadsKeyPrefix + identity }

// Persister reads and writes one identity's records. Every failure is logged
// and swallowed: hydration degrades to empty state and writes are dropped.
type Persister struct {
	storage  Storage
	identity string
	logger   *slog.Logger
}

// NewPersister returns a persister for identity. A nil storage disables
// persistence entirely.
func NewPersister(storage Storage, identity string, logger *slog.Logger) *Persister {
	if logger == nil {
		logger = discardLogger()
	}
	return &Persister{storage: storage, identity: identity, logger: logger}
}

// HydrateMessages returns the stored conversation map. Entries whose key or
// log fails to parse are skipped; a missing or non-object record yields an
// empty map.
func (p *Persister) HydrateMessages() map[ConversationKey][]Message {
	out := make(map[ConversationKey][]Message)
	if p == nil || p.storage == nil {
		return out
	}
	raw, ok := p.read(MessagesKey(p.identity))
	if !ok {
		return out
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		p.logger.Warn("hydrate_corrupt", "identity", p.identity, "err", err)
		return out
	}
	for k, v := range entries {
		key, err := ParseKey(k)
		if err != nil {
			p.logger.Debug("hydrate_skip_key", "key", k, "err", err)
			continue
		}
		var log []Message
		if err := json.Unmarshal(v, &log); err != nil {
			p.logger.Debug("hydrate_skip_log", "key", k, "err", err)
			continue
		}
		out[key] = log
	}
	return out
}

// PersistMessages writes the full conversation map.
func (p *Persister) PersistMessages(logs map[ConversationKey][]Message) {
	if p == nil || p.storage == nil {
		return
	}
	p.write(MessagesKey(p.identity), logs)
}

// HydrateThreads returns the stored directory in its saved order.
func (p *Persister) HydrateThreads() []DMThread {
	if p == nil || p.storage == nil {
		return nil
	}
	raw, ok := p.read(ThreadsKey(p.identity))
	if !ok {
		return nil
	}
	var threads []DMThread
	if err := json.Unmarshal(raw, &threads); err != nil {
		p.logger.Warn("hydrate_corrupt", "identity", p.identity, "record", "threads", "err", err)
		return nil
	}
	valid := threads[:0]
	for _, t := range threads {
		if t.ConversationID != "" {
			valid = append(valid, t)
		}
	}
	return valid
}

// PersistThreads writes the directory.
func (p *Persister) PersistThreads(threads []DMThread) {
	if p == nil || p.storage == nil {
		return
	}
	p.write(ThreadsKey(p.identity), threads)
}

func (p *Persister) read(key string) ([]byte, bool) {
	raw, err := p.storage.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.logger.Warn("hydrate_failed", "key", key, "err", err)
		}
		return nil, false
	}
	return raw, true
}

func (p *Persister) write(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("persist_failed", "key", key, "err", err)
		return
	}
	if err := p.storage.Set(key, data); err != nil {
		p.logger.Warn("persist_failed", "key", key, "err", err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
