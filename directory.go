package partychat

import (
	"sort"
	"time"
)

// ============================================================================
// DM Thread Directory
// ============================================================================

// DMThread summarizes one private conversation.
type DMThread struct {
	ConversationID string    `json:"conversationId"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"displayName"`
	Preview        string    `json:"preview"`
	UpdatedAt      time.Time `json:"updatedAt"`
	UnreadCount    int       `json:"unreadCount"`
}

// Label is the name shown for the partner.
func (t DMThread) Label() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Username
}

// ThreadUpdate is a partial thread. Empty strings and the zero time leave the
// stored value alone. UnreadCount is always applied; callers decide whether it
// is an increment or a reset.
type ThreadUpdate struct {
	ConversationID string
	Username       string
	DisplayName    string
	Preview        string
	UpdatedAt      time.Time
	UnreadCount    int
}

// Directory is the set of private threads in insertion order.
// It is not goroutine-safe; the Engine serializes access.
type Directory struct {
	threads      []DMThread
	index        map[string]int
	previewLimit int
}

// NewDirectory returns a directory seeded with threads, in order. Duplicate
// ids are merged into the first occurrence.
func NewDirectory(threads []DMThread) *Directory {
	d := &Directory{index: make(map[string]int), previewLimit: DefaultPreviewLimit}
	for _, t := range threads {
		d.Upsert(ThreadUpdate(t))
	}
	return d
}

// Upsert merges u into the thread with the same id, creating it when absent.
// Applying the same update twice is the same as applying it once.
func (d *Directory) Upsert(u ThreadUpdate) DMThread {
	if u.ConversationID == "" {
		return DMThread{}
	}
	i, ok := d.index[u.ConversationID]
	if !ok {
		d.threads = append(d.threads, DMThread{ConversationID: u.ConversationID})
		i = len(d.threads) - 1
		d.index[u.ConversationID] = i
	}
	t := &d.threads[i]
	if u.Username != "" {
		t.Username = u.Username
	}
	if u.DisplayName != "" {
		t.DisplayName = u.DisplayName
	}
	if u.Preview != "" {
		t.Preview = Truncate(u.Preview, d.previewLimit)
	}
	if !u.UpdatedAt.IsZero() {
		t.UpdatedAt = u.UpdatedAt
	}
	t.UnreadCount = max(u.UnreadCount, 0)
	return *t
}

// Get returns the thread with id.
func (d *Directory) Get(id string) (DMThread, bool) {
	i, ok := d.index[id]
	if !ok {
		return DMThread{}, false
	}
	return d.threads[i], true
}

// List returns every thread, newest UpdatedAt first. Ties keep insertion order.
func (d *Directory) List() []DMThread {
	out := make([]DMThread, len(d.threads))
	copy(out, d.threads)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Entries returns every thread in insertion order, for persistence.
func (d *Directory) Entries() []DMThread {
	out := make([]DMThread, len(d.threads))
	copy(out, d.threads)
	return out
}

// TotalUnread sums the unread counters.
func (d *Directory) TotalUnread() int {
	n := 0
	for _, t := range d.threads {
		n += t.UnreadCount
	}
	return n
}

// Len returns the number of threads.
func (d *Directory) Len() int { return len(d.threads) }
