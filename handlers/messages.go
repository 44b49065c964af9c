package handlers

import (
	"context"
	"regexp"
	"time"

	"storefront-bot/lang"
	"storefront-bot/tickets"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// invoicePattern matches storefront invoice IDs such as
// "c2f3a9b81e4d-0000001234567".
var invoicePattern = regexp.MustCompile(`(?i)\b[0-9a-f]{8,16}-[0-9]{6,20}\b`)

// HandleMessage is the gateway entry point for channel messages.
func (d *Dispatcher) HandleMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	d.OnMessage(ctx, m)
}

// OnMessage attaches an invoice ID posted in a Replaces ticket that does not
// have one yet.
func (d *Dispatcher) OnMessage(ctx context.Context, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}
	t := d.tickets.GetTicketByChannel(ctx, m.ChannelID)
	if t == nil || t.Closed || t.Category != tickets.CategoryReplaces || t.InvoiceID != "" {
		return
	}
	if m.Author.ID != t.UserID {
		return
	}
	invoiceID := invoicePattern.FindString(m.Content)
	if invoiceID == "" {
		return
	}

	if d.invoices != nil {
		ok, err := d.invoices.InvoiceExists(ctx, invoiceID)
		if err != nil {
			d.logger.Warn("invoice lookup failed", zap.String("ticket", t.ID), zap.Error(err))
			return
		}
		if !ok {
			d.post(m.ChannelID, &discordgo.MessageSend{Content: lang.T("ticket_invoice_invalid", "invoice", invoiceID)})
			return
		}
	}

	captured, err := d.tickets.CaptureInvoice(ctx, m.ChannelID, invoiceID)
	if err != nil {
		d.logger.Warn("capture invoice failed", zap.String("ticket", t.ID), zap.Error(err))
		return
	}
	if captured {
		d.post(m.ChannelID, &discordgo.MessageSend{
			Content:   lang.T("ticket_invoice_captured", "invoice", invoiceID),
			Reference: m.Reference(),
		})
	}
}
