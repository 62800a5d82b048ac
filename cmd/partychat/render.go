package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	partychat "github.com/partychat/partychat-go"
)

var (
	ownStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	otherStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("216")).Bold(true)
	systemStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	replyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(2)
	feedbackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	unreadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("157")).Bold(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
)

// formatMessage renders one log entry as one or two lines.
func formatMessage(m partychat.Message) string {
	var b strings.Builder
	if m.ReplyTo != nil {
		b.WriteString(replyStyle.Render(fmt.Sprintf("↳ %s: %s", m.ReplyTo.Sender, m.ReplyTo.Snippet)))
		b.WriteString("\n")
	}

	body := m.Content
	if m.IsSticker() {
		body = "[sticker " + m.Content + "]"
	}

	when := dimStyle.Render(humanize.Time(m.Timestamp))
	switch m.Origin {
	case partychat.OriginSystem:
		b.WriteString(systemStyle.Render("* " + body))
		b.WriteString(" " + when)
		return b.String()
	case partychat.OriginOwn:
		b.WriteString(ownStyle.Render(m.Sender))
	default:
		b.WriteString(otherStyle.Render(m.Sender))
	}
	b.WriteString(" " + when)
	if m.Pending() {
		b.WriteString(dimStyle.Render(" (sending)"))
	} else if m.ID != "" {
		b.WriteString(dimStyle.Render(" #" + m.ID))
	}
	if m.ThreadType == partychat.ThreadPrivate && m.Origin == partychat.OriginOwn && m.Status != "" {
		b.WriteString(dimStyle.Render(" " + string(m.Status)))
	}
	b.WriteString("\n  " + body)
	return b.String()
}

// formatThread renders one directory entry.
func formatThread(t partychat.DMThread) string {
	line := fmt.Sprintf("%-6s %-20s %s", t.ConversationID, t.Label(), dimStyle.Render(humanize.Time(t.UpdatedAt)))
	if t.UnreadCount > 0 {
		line += " " + unreadStyle.Render(fmt.Sprintf("(%d unread)", t.UnreadCount))
	}
	preview := t.Preview
	if preview == "" {
		preview = "No messages yet"
	}
	return line + "\n       " + dimStyle.Render(preview)
}

func formatHeader(title string) string {
	return headerStyle.Render(title)
}

func formatFeedback(text string) string {
	return feedbackStyle.Render("! " + text)
}
