package tickets

import (
	"fmt"
	"strconv"
	"time"

	"storefront-bot/customid"
	"storefront-bot/lang"

	"github.com/bwmarrin/discordgo"
)

const (
	colorOpen    = 0x57F287
	colorClosed  = 0xED4245
	colorPending = 0xFEE75C
	colorRating  = 0x5865F2
)

type ratingKind int

const (
	ratingService ratingKind = iota
	ratingStaff
)

func welcomeMessage(t *Ticket, staffRoleID string) *discordgo.MessageSend {
	ping := fmt.Sprintf("<@%s>", t.UserID)
	if staffRoleID != "" {
		ping += fmt.Sprintf(" | <@&%s>", staffRoleID)
	}

	embed := &discordgo.MessageEmbed{
		Title:       lang.T("ticket_welcome_title", "id", t.ID, "category", t.Category.Emoji()+" "+t.Category.Label()),
		Description: lang.T("ticket_welcome_body", "user", t.UserID),
		Color:       colorOpen,
		Timestamp:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.InvoiceID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Invoice", Value: "`" + t.InvoiceID + "`", Inline: true})
	}

	return &discordgo.MessageSend{
		Content: ping,
		Embeds:  []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label: "Claim", Style: discordgo.PrimaryButton,
						CustomID: customid.TicketClaim(t.ID),
						Emoji:    &discordgo.ComponentEmoji{Name: "🙋"},
					},
					discordgo.Button{
						Label: "Close Ticket", Style: discordgo.DangerButton,
						CustomID: customid.TicketClose(t.ID),
						Emoji:    &discordgo.ComponentEmoji{Name: "🔒"},
					},
				},
			},
		},
	}
}

// ratingRow renders five star buttons. A zero score leaves them clickable;
// otherwise they are disabled and the chosen range is highlighted.
func ratingRow(t *Ticket, kind ratingKind, score int) discordgo.ActionsRow {
	row := discordgo.ActionsRow{}
	for n := 1; n <= 5; n++ {
		id := customid.RatingService(t.ID, n)
		if kind == ratingStaff {
			id = customid.RatingStaff(t.ID, n)
		}
		style := discordgo.SecondaryButton
		if score > 0 && n <= score {
			style = discordgo.SuccessButton
		}
		row.Components = append(row.Components, discordgo.Button{
			Label:    strconv.Itoa(n),
			Style:    style,
			CustomID: id,
			Disabled: score > 0,
			Emoji:    &discordgo.ComponentEmoji{Name: "⭐"},
		})
	}
	return row
}

func ratingPrompt(t *Ticket, kind ratingKind) *discordgo.MessageSend {
	content := lang.T("ticket_service_prompt")
	if kind == ratingStaff {
		content = lang.T("ticket_staff_prompt", "staff", t.Handler())
	}
	return &discordgo.MessageSend{
		Content:    content,
		Components: []discordgo.MessageComponent{ratingRow(t, kind, 0)},
	}
}

func reviewNotice(t *Ticket) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Review required",
			Description: lang.T("ticket_review_required", "user", t.UserID, "staff", t.ClosedBy, "reason", t.CloseReason),
			Color:       colorPending,
		}},
	}
}

func textMessage(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: content}
}

func stars(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += "⭐"
	}
	return s
}

func ratingRecord(t *Ticket) *discordgo.MessageSend {
	service, staff := 0, 0
	if t.ServiceRating != nil {
		service = *t.ServiceRating
	}
	if t.StaffRating != nil {
		staff = *t.StaffRating
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title: fmt.Sprintf("Ticket %s rated", t.ID),
			Color: colorRating,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Customer", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
				{Name: "Staff", Value: fmt.Sprintf("<@%s>", t.Handler()), Inline: true},
				{Name: "Category", Value: t.Category.Label(), Inline: true},
				{Name: "Service", Value: fmt.Sprintf("%s (%d/5)", stars(service), service), Inline: true},
				{Name: "Staff rating", Value: fmt.Sprintf("%s (%d/5)", stars(staff), staff), Inline: true},
				{Name: "Reason", Value: orDash(t.CloseReason)},
			},
			Timestamp: time.Now().Format(time.RFC3339),
		}},
	}
}

func openLog(t *Ticket) *discordgo.MessageSend {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Opened By", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
		{Name: "Category", Value: t.Category.Label(), Inline: true},
		{Name: "Channel", Value: fmt.Sprintf("<#%s>", t.ChannelID), Inline: true},
	}
	if t.InvoiceID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Invoice", Value: t.InvoiceID, Inline: true})
	}
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{{
		Title:     fmt.Sprintf("Ticket %s Opened", t.ID),
		Color:     colorOpen,
		Fields:    fields,
		Timestamp: t.CreatedAt.Format(time.RFC3339),
	}}}
}

func closeLog(t *Ticket) *discordgo.MessageSend {
	closer := mention(t.ClosedBy, t.ClosedByType)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Opened By", Value: fmt.Sprintf("<@%s>", t.UserID), Inline: true},
		{Name: "Closed By", Value: fmt.Sprintf("%s (%s)", closer, t.ClosedByType), Inline: true},
		{Name: "Category", Value: t.Category.Label(), Inline: true},
		{Name: "Opened At", Value: t.CreatedAt.UTC().Format(time.RFC3339), Inline: true},
		{Name: "Reason", Value: orDash(t.CloseReason)},
	}
	if t.Claimed() {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Claimed By", Value: fmt.Sprintf("<@%s>", t.ClaimedBy), Inline: true})
	}
	if t.ServiceRating != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Service", Value: strconv.Itoa(*t.ServiceRating) + "/5", Inline: true})
	}
	if t.StaffRating != nil {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Staff rating", Value: strconv.Itoa(*t.StaffRating) + "/5", Inline: true})
	}
	ts := time.Now()
	if t.ClosedAt != nil {
		ts = *t.ClosedAt
	}
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{{
		Title:     fmt.Sprintf("Ticket %s Closed", t.ID),
		Color:     colorClosed,
		Fields:    fields,
		Timestamp: ts.Format(time.RFC3339),
	}}}
}

// PanelMessage is the public entry point with one button per category.
func PanelMessage() *discordgo.MessageSend {
	row := discordgo.ActionsRow{}
	for _, c := range Categories {
		row.Components = append(row.Components, discordgo.Button{
			Label:    c.Label(),
			Style:    discordgo.SecondaryButton,
			CustomID: customid.TicketCreate(string(c)),
			Emoji:    &discordgo.ComponentEmoji{Name: c.Emoji()},
		})
	}
	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Support",
			Description: "Pick the topic that matches your request to open a private ticket.",
			Color:       colorRating,
		}},
		Components: []discordgo.MessageComponent{row},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
