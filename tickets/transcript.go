package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	transcriptPageSize = 100
	transcriptMaxPages = 10
)

// fetchHistory pages backwards through the channel and returns messages
// oldest first.
func fetchHistory(p Platform, channelID string) ([]*discordgo.Message, error) {
	var all []*discordgo.Message
	before := ""
	for page := 0; page < transcriptMaxPages; page++ {
		msgs, err := p.ChannelMessages(channelID, transcriptPageSize, before)
		if err != nil {
			if len(all) > 0 {
				break
			}
			return nil, err
		}
		all = append(all, msgs...)
		if len(msgs) < transcriptPageSize {
			break
		}
		before = msgs[len(msgs)-1].ID
	}

	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

// RenderTranscript formats a ticket's messages as plain text.
func RenderTranscript(t *Ticket, msgs []*discordgo.Message) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== TRANSCRIPT %s ===\n", t.ID)
	fmt.Fprintf(&sb, "Category: %s\nOpened by: %s\nOpened at: %s\n", t.Category, t.UserID, t.CreatedAt.UTC().Format(time.RFC3339))
	if t.InvoiceID != "" {
		fmt.Fprintf(&sb, "Invoice: %s\n", t.InvoiceID)
	}
	if t.ClosedBy != "" {
		fmt.Fprintf(&sb, "Closed by: %s (%s)\n", t.ClosedBy, t.ClosedByType)
	}
	if t.CloseReason != "" {
		fmt.Fprintf(&sb, "Reason: %s\n", t.CloseReason)
	}
	sb.WriteString("\n")

	for _, m := range msgs {
		author := "unknown"
		if m.Author != nil {
			author = m.Author.Username
		}
		fmt.Fprintf(&sb, "[%s] %s: %s\n", m.Timestamp.UTC().Format("2006-01-02 15:04:05"), author, m.Content)
		for _, e := range m.Embeds {
			if e.Title != "" || e.Description != "" {
				fmt.Fprintf(&sb, "  [embed] %s %s\n", e.Title, e.Description)
			}
		}
		for _, a := range m.Attachments {
			fmt.Fprintf(&sb, "  [attachment] %s\n", a.URL)
		}
	}
	return sb.String()
}

// transcriptMessage inlines short transcripts and attaches long ones as a file.
func transcriptMessage(t *Ticket, text string, inlineLimit int) *discordgo.MessageSend {
	title := fmt.Sprintf("Transcript %s", t.ID)
	if len(text) <= inlineLimit {
		return &discordgo.MessageSend{Content: fmt.Sprintf("**%s**\n```\n%s\n```", title, text)}
	}
	return &discordgo.MessageSend{
		Content: fmt.Sprintf("**%s**", title),
		Files: []*discordgo.File{{
			Name:        fmt.Sprintf("%s-transcript.txt", strings.ToLower(t.ID)),
			ContentType: "text/plain",
			Reader:      strings.NewReader(text),
		}},
	}
}
