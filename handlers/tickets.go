package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-bot/customid"
	"storefront-bot/lang"
	"storefront-bot/permissions"
	"storefront-bot/tickets"

	"github.com/bwmarrin/discordgo"
)

var staffOnly = permissions.Requirement{OnlyWhitelisted: true, RequiredRole: permissions.RoleStaff}

func ticketCommands(d *Dispatcher) []*Command {
	userOpt := func(desc string) []*discordgo.ApplicationCommandOption {
		return []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: desc, Required: true},
		}
	}
	return []*Command{
		{
			Definition: &discordgo.ApplicationCommand{
				Name:        "ticket",
				Description: "Ticket system management",
				Options: []*discordgo.ApplicationCommandOption{
					{Name: "panel", Description: "Post the ticket panel in this channel", Type: discordgo.ApplicationCommandOptionSubCommand},
					{Name: "list", Description: "List all open tickets", Type: discordgo.ApplicationCommandOptionSubCommand},
					{Name: "info", Description: "Show details of the ticket in this channel", Type: discordgo.ApplicationCommandOptionSubCommand},
					{Name: "ratings", Description: "Post the pending rating prompt again", Type: discordgo.ApplicationCommandOptionSubCommand},
					{Name: "cancelclose", Description: "Cancel a pending close and reopen the ticket", Type: discordgo.ApplicationCommandOptionSubCommand},
				},
			},
			Requirement: staffOnly,
			Handler:     d.handleTicketCommand,
		},
		{
			Definition: &discordgo.ApplicationCommand{
				Name:        "close",
				Description: "Close the current ticket",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Why the ticket is being closed"},
				},
			},
			Handler: d.handleCloseCommand,
		},
		{
			Definition: &discordgo.ApplicationCommand{Name: "claim", Description: "Claim the current ticket"},
			Handler:    d.handleClaimCommand,
		},
		{
			Definition:  &discordgo.ApplicationCommand{Name: "add", Description: "Add a user to the current ticket", Options: userOpt("User to add")},
			Requirement: staffOnly,
			Handler:     d.handleAddUser,
		},
		{
			Definition:  &discordgo.ApplicationCommand{Name: "remove", Description: "Remove a user from the current ticket", Options: userOpt("User to remove")},
			Requirement: staffOnly,
			Handler:     d.handleRemoveUser,
		},
	}
}

func (d *Dispatcher) handleTicketCommand(ctx context.Context, r *Request) error {
	sub, _ := subcommand(r)
	switch sub {
	case "panel":
		return d.handleTicketPanel(ctx, r)
	case "list":
		return d.handleTicketList(ctx, r)
	case "info":
		return d.handleTicketInfo(ctx, r)
	case "ratings":
		return d.handleShowRatings(ctx, r)
	case "cancelclose":
		return d.handleCancelClose(ctx, r)
	}
	return invalid(fmt.Sprintf("unknown subcommand %q", sub))
}

func (d *Dispatcher) handleTicketPanel(ctx context.Context, r *Request) error {
	if !d.resolver.IsAdmin(r.Caller, r.Guild) {
		return ErrNotWhitelisted
	}
	d.deferReply(r, true)
	if _, err := d.platform.SendMessage(r.ChannelID, tickets.PanelMessage()); err != nil {
		return err
	}
	d.reply(r, lang.T("ticket_panel_posted"), true)
	return nil
}

func (d *Dispatcher) handleTicketList(ctx context.Context, r *Request) error {
	open := d.tickets.OpenTickets(ctx, r.GuildID)
	if len(open) == 0 {
		d.reply(r, lang.T("ticket_none_open"), true)
		return nil
	}

	var sb strings.Builder
	sb.WriteString(lang.T("ticket_list_header", "count", fmt.Sprint(len(open))))
	sb.WriteString("\n")
	for _, t := range open {
		fmt.Fprintf(&sb, "• <#%s> %s by <@%s> [%s] `%s`\n", t.ChannelID, t.ID, t.UserID, t.Category.Label(), t.State())
	}
	d.reply(r, sb.String(), true)
	return nil
}

func (d *Dispatcher) handleTicketInfo(ctx context.Context, r *Request) error {
	t, err := d.requireTicket(ctx, r)
	if err != nil {
		return err
	}
	claimed := "-"
	if t.Claimed() {
		claimed = "<@" + t.ClaimedBy + ">"
	}
	invoice := "-"
	if t.InvoiceID != "" {
		invoice = "`" + t.InvoiceID + "`"
	}
	d.reply(r, lang.T("ticket_info",
		"id", t.ID,
		"category", t.Category.Label(),
		"user", t.UserID,
		"created", t.CreatedAt.UTC().Format(time.RFC1123),
		"state", string(t.State()),
		"claimed", claimed,
		"invoice", invoice,
	), true)
	return nil
}

func (d *Dispatcher) handleShowRatings(ctx context.Context, r *Request) error {
	t, err := d.requireTicket(ctx, r)
	if err != nil {
		return err
	}
	d.deferReply(r, true)
	if err := d.tickets.ShowRatings(ctx, t.ID); err != nil {
		return err
	}
	d.reply(r, lang.T("ticket_ratings_shown"), true)
	return nil
}

func (d *Dispatcher) handleCancelClose(ctx context.Context, r *Request) error {
	t, err := d.requireTicket(ctx, r)
	if err != nil {
		return err
	}
	d.deferReply(r, true)
	if _, err := d.tickets.CancelClose(ctx, t.ID, r.Caller); err != nil {
		return err
	}
	d.reply(r, lang.T("ticket_close_cancelled", "admin", r.Caller.UserID), true)
	return nil
}

func (d *Dispatcher) handleCloseCommand(ctx context.Context, r *Request) error {
	t, err := d.requireTicket(ctx, r)
	if err != nil {
		return err
	}
	reason := strings.TrimSpace(optStr(optionMap(r), "reason", ""))
	if reason == "" && !d.resolver.IsAdmin(r.Caller, r.Guild) {
		d.closeModal(r, t.ID)
		return nil
	}
	return d.closeTicket(ctx, r, t.ID, reason)
}

func (d *Dispatcher) handleClaimCommand(ctx context.Context, r *Request) error {
	t, err := d.requireTicket(ctx, r)
	if err != nil {
		return err
	}
	d.deferReply(r, true)
	claimed, err := d.claim(ctx, r, t.ID)
	if err != nil {
		return err
	}
	if claimed {
		d.reply(r, lang.T("ticket_claimed", "staff", r.Caller.UserID), true)
	}
	return nil
}

func (d *Dispatcher) handleAddUser(ctx context.Context, r *Request) error {
	target := optionMap(r)["user"].UserValue(nil)
	d.deferReply(r, false)
	if _, err := d.tickets.AddMember(ctx, r.ChannelID, r.Caller, target.ID); err != nil {
		return err
	}
	d.reply(r, lang.T("ticket_user_added", "user", target.ID), false)
	return nil
}

func (d *Dispatcher) handleRemoveUser(ctx context.Context, r *Request) error {
	target := optionMap(r)["user"].UserValue(nil)
	d.deferReply(r, false)
	if _, err := d.tickets.RemoveMember(ctx, r.ChannelID, r.Caller, target.ID); err != nil {
		return err
	}
	d.reply(r, lang.T("ticket_user_removed", "user", target.ID), false)
	return nil
}

func (d *Dispatcher) onCreateButton(ctx context.Context, r *Request, raw string) error {
	category, err := tickets.ParseCategory(raw)
	if err != nil {
		return err
	}
	if existing := d.tickets.OpenTicketFor(ctx, r.GuildID, r.Caller.UserID); existing != nil {
		return &tickets.DuplicateOpenTicketError{Existing: existing}
	}
	if category.NeedsInvoice() {
		d.invoiceModal(r, category)
		return nil
	}
	return d.createTicket(ctx, r, category, "")
}

func (d *Dispatcher) onInvoiceModal(ctx context.Context, r *Request, raw, invoiceID string) error {
	category, err := tickets.ParseCategory(raw)
	if err != nil {
		return err
	}
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return invalid(lang.T("ticket_invoice_invalid", "invoice", ""))
	}
	d.deferReply(r, true)
	if d.invoices != nil {
		ok, err := d.invoices.InvoiceExists(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !ok {
			return invalid(lang.T("ticket_invoice_invalid", "invoice", invoiceID))
		}
	}
	return d.createTicket(ctx, r, category, invoiceID)
}

func (d *Dispatcher) createTicket(ctx context.Context, r *Request, category tickets.Category, invoiceID string) error {
	d.deferReply(r, true)
	t, err := d.tickets.Create(ctx, tickets.CreateRequest{
		GuildID:   r.GuildID,
		UserID:    r.Caller.UserID,
		Username:  r.Member.User.Username,
		Category:  category,
		InvoiceID: invoiceID,
	})
	if err != nil {
		return err
	}
	d.reply(r, lang.T("ticket_created", "channel", t.ChannelID), true)
	return nil
}

func (d *Dispatcher) onClaimButton(ctx context.Context, r *Request, ticketID string) error {
	d.ack(r)
	_, err := d.claim(ctx, r, ticketID)
	return err
}

// claim reports whether the caller now holds the ticket. A claim held by
// someone else is answered here and is not an error.
func (d *Dispatcher) claim(ctx context.Context, r *Request, ticketID string) (bool, error) {
	t, err := d.tickets.Claim(ctx, ticketID, r.Caller)
	if errors.Is(err, tickets.ErrAlreadyClaimed) && t != nil {
		d.reply(r, lang.T("ticket_already_claimed", "user", t.ClaimedBy), true)
		return false, nil
	}
	return err == nil, err
}

func (d *Dispatcher) onCloseButton(ctx context.Context, r *Request, ticketID string) error {
	t := d.tickets.GetTicket(ctx, ticketID)
	switch {
	case t == nil:
		return tickets.ErrNotFound
	case t.Closed:
		return tickets.ErrAlreadyClosed
	case t.PendingClose:
		return tickets.ErrClosePending
	}
	d.closeModal(r, ticketID)
	return nil
}

func (d *Dispatcher) onCloseModal(ctx context.Context, r *Request, ticketID, reason string) error {
	return d.closeTicket(ctx, r, ticketID, reason)
}

func (d *Dispatcher) closeTicket(ctx context.Context, r *Request, ticketID, reason string) error {
	d.deferReply(r, true)
	t, err := d.tickets.Close(ctx, ticketID, r.Caller, reason)
	if err != nil {
		return err
	}
	if t.Closed {
		d.reply(r, lang.T("ticket_close_ack", "id", t.ID), true)
	} else {
		d.reply(r, lang.T("ticket_review_started", "id", t.ID), true)
	}
	return nil
}

func (d *Dispatcher) onRating(ctx context.Context, r *Request, ticketID string, score int, staff bool) error {
	d.ack(r)
	var err error
	if staff {
		_, err = d.tickets.ProcessStaffRating(ctx, ticketID, r.Caller.UserID, score)
	} else {
		_, err = d.tickets.ProcessServiceRating(ctx, ticketID, r.Caller.UserID, score)
	}
	if err != nil {
		return err
	}
	d.reply(r, lang.T("ticket_rating_recorded"), true)
	return nil
}

func (d *Dispatcher) closeModal(r *Request, ticketID string) {
	d.respond(r, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customid.CloseReasonModal(ticketID),
			Title:    lang.T("ticket_close_modal_title"),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "reason",
						Label:     lang.T("ticket_close_modal_label"),
						Style:     discordgo.TextInputParagraph,
						MaxLength: 500,
					},
				}},
			},
		},
	})
}

func (d *Dispatcher) invoiceModal(r *Request, category tickets.Category) {
	d.respond(r, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customid.InvoiceModal(string(category)),
			Title:    lang.T("ticket_invoice_modal_title"),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "invoice",
						Label:     lang.T("ticket_invoice_modal_label"),
						Style:     discordgo.TextInputShort,
						MinLength: 4,
						MaxLength: 64,
					},
				}},
			},
		},
	})
}
