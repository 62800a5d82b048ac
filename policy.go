package partychat

// ============================================================================
// Room Access Policy
// ============================================================================

// DefaultPolicyLabel is the message policy of rooms with no broadcast yet.
const DefaultPolicyLabel = "everyone"

// DeniedFeedback is shown when a send is refused by the room policy.
const DeniedFeedback = "This room only allows messages from the host and moderators."

// RoomPolicy is the last known policy of one room.
type RoomPolicy struct {
	Label   string
	CanSend bool
}

// Policy tracks per-room policy labels and the send gate of the joined room.
// Entries for rooms other than the joined one are kept but never consulted
// by Gate.
type Policy struct {
	rooms   map[string]RoomPolicy
	active  string
	canSend bool
}

// NewPolicy returns a policy that permits sending until told otherwise.
func NewPolicy() *Policy {
	return &Policy{rooms: make(map[string]RoomPolicy), canSend: true}
}

// Join makes room the active room. The gate reopens until the room's first
// broadcast arrives.
func (p *Policy) Join(room string) {
	p.active = room
	p.canSend = true
}

// Update records a room_state broadcast. Only broadcasts for the active room
// move the gate.
func (p *Policy) Update(room, label string, canSend bool) {
	if label == "" {
		label = DefaultPolicyLabel
	}
	p.rooms[room] = RoomPolicy{Label: label, CanSend: canSend}
	if room == p.active {
		p.canSend = canSend
	}
}

// SetLabel records a policy label learned outside a broadcast, such as a
// join-by-code response. The gate is untouched.
func (p *Policy) SetLabel(room, label string) {
	rp, ok := p.rooms[room]
	if !ok {
		rp.CanSend = true
	}
	if label == "" {
		label = DefaultPolicyLabel
	}
	rp.Label = label
	p.rooms[room] = rp
}

// Gate reports whether a send to key is allowed. Private conversations are
// always allowed.
func (p *Policy) Gate(key ConversationKey) bool {
	if key.IsPrivate() {
		return true
	}
	return p.canSend
}

// CanSend reports the gate of the active room.
func (p *Policy) CanSend() bool { return p.canSend }

// Label returns the policy label of room.
func (p *Policy) Label(room string) string {
	if rp, ok := p.rooms[room]; ok && rp.Label != "" {
		return rp.Label
	}
	return DefaultPolicyLabel
}

// Room returns the stored policy of room.
func (p *Policy) Room(room string) (RoomPolicy, bool) {
	rp, ok := p.rooms[room]
	return rp, ok
}
