package partychat

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestReplyState(t *testing.T) {
	var s ReplyState
	if s.Pending() != nil {
		t.Fatal("zero state has no pending reply")
	}

	s.SetPending(ReplyRef{ID: "1", Sender: "bob", Snippet: "hi"})
	got := s.Pending()
	if got == nil || got.ID != "1" {
		t.Fatalf("Pending = %+v", got)
	}
	got.ID = "mutated"
	if s.Pending().ID != "1" {
		t.Fatal("Pending must return a copy")
	}

	s.SetPending(ReplyRef{ID: "2"})
	if s.Pending().ID != "2" {
		t.Fatal("SetPending replaces the target")
	}

	s.ClearPending()
	if s.Pending() != nil {
		t.Fatal("ClearPending left a target")
	}
}

func TestReplyTo(t *testing.T) {
	t.Run("text snippet is bounded", func(t *testing.T) {
		ref := ReplyTo(Message{ID: "1", Sender: "bob", Content: strings.Repeat("w ", 100), Kind: KindText})
		if ref.ID != "1" || ref.Sender != "bob" {
			t.Fatalf("ref = %+v", ref)
		}
		if n := utf8.RuneCountInString(ref.Snippet); n != DefaultSnippetLimit {
			t.Fatalf("snippet length = %d", n)
		}
	})

	t.Run("sticker uses preview", func(t *testing.T) {
		ref := ReplyTo(Message{ID: "2", Sender: "bob", Content: "cat.png", Kind: KindSticker})
		if ref.Snippet != StickerPreview {
			t.Fatalf("snippet = %q", ref.Snippet)
		}
	})
}

func TestResolveReply(t *testing.T) {
	log := []Message{
		{ID: "1", Content: "first"},
		{ID: "2", Content: "second"},
	}
	if m, ok := ResolveReply(log, "2"); !ok || m.Content != "second" {
		t.Fatalf("ResolveReply(2) = %+v, %v", m, ok)
	}
	if _, ok := ResolveReply(log, "3"); ok {
		t.Fatal("missing id resolved")
	}
	if _, ok := ResolveReply(log, ""); ok {
		t.Fatal("empty id resolved")
	}
}
