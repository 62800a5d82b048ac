package partychat

// ============================================================================
// Reply Threading
// ============================================================================

// ReplyState holds at most one pending reply target.
type ReplyState struct {
	pending *ReplyRef
}

// SetPending replaces the pending reply target.
func (s *ReplyState) SetPending(ref ReplyRef) {
	s.pending = &ref
}

// ClearPending drops the pending reply target.
func (s *ReplyState) ClearPending() {
	s.pending = nil
}

// Pending returns a copy of the pending reply target, or nil.
func (s *ReplyState) Pending() *ReplyRef {
	if s.pending == nil {
		return nil
	}
	ref := *s.pending
	return &ref
}

// ReplyTo builds the reference used when replying to m. Stickers are quoted
// by their preview text.
func ReplyTo(m Message) ReplyRef {
	return ReplyRef{
		ID:      m.ID,
		Sender:  m.Sender,
		Snippet: Truncate(previewText(m.Kind, m.Content), DefaultSnippetLimit),
	}
}

// ResolveReply finds the message id points at inside log. Only the log of
// the open conversation is searched; ids are not indexed across logs.
func ResolveReply(log []Message, id string) (Message, bool) {
	if id == "" {
		return Message{}, false
	}
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].ID == id {
			return log[i], true
		}
	}
	return Message{}, false
}
