package handlers

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"storefront-bot/config"
	"storefront-bot/customid"
	"storefront-bot/lang"
	"storefront-bot/observability"
	"storefront-bot/permissions"
	"storefront-bot/spamguard"
	"storefront-bot/tickets"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Platform is what handlers need from the messaging API on top of the
// ticket lifecycle's needs.
type Platform interface {
	tickets.Platform
	Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	Followup(i *discordgo.Interaction, params *discordgo.WebhookParams) error
	Ban(guildID, userID, reason string, deleteDays int) error
	Unban(guildID, userID string) error
	RegisterCommands(guildID string, cmds []*discordgo.ApplicationCommand) (int, error)
}

// GuildStore is the ConfigStore surface used by commands.
type GuildStore interface {
	Get(ctx context.Context, guildID string) config.GuildConfig
	Set(ctx context.Context, guildID, key, value string) error
	Remove(ctx context.Context, guildID, key string) error
}

// InvoiceChecker validates invoice IDs against the store.
type InvoiceChecker interface {
	InvoiceExists(ctx context.Context, invoiceID string) (bool, error)
}

type Deps struct {
	Platform  Platform
	Tickets   *tickets.Manager
	Guilds    GuildStore
	Resolver  *permissions.Resolver
	Guard     *spamguard.Guard
	Cooldowns *spamguard.Cooldowns
	Invoices  InvoiceChecker
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

type Options struct {
	DefaultCooldown time.Duration
	SpamWindow      time.Duration
	// CommandGuildID scopes command registration to one guild when set.
	CommandGuildID string
}

// Request is one inbound interaction with its resolved caller and guild.
type Request struct {
	*discordgo.InteractionCreate
	Caller permissions.Caller
	Guild  config.GuildConfig

	responded bool
}

type Dispatcher struct {
	platform  Platform
	tickets   *tickets.Manager
	guilds    GuildStore
	resolver  *permissions.Resolver
	guard     *spamguard.Guard
	cooldowns *spamguard.Cooldowns
	invoices  InvoiceChecker
	metrics   *observability.Metrics
	logger    *zap.Logger
	opts      Options
	registry  *Registry
}

func NewDispatcher(d Deps, opts Options) (*Dispatcher, error) {
	if d.Metrics == nil {
		d.Metrics = observability.NewNoopMetrics()
	}
	if d.Cooldowns == nil {
		d.Cooldowns = spamguard.NewCooldowns()
	}
	disp := &Dispatcher{
		platform:  d.Platform,
		tickets:   d.Tickets,
		guilds:    d.Guilds,
		resolver:  d.Resolver,
		guard:     d.Guard,
		cooldowns: d.Cooldowns,
		invoices:  d.Invoices,
		metrics:   d.Metrics,
		logger:    d.Logger.Named("dispatcher"),
		opts:      opts,
		registry:  NewRegistry(),
	}
	if err := disp.registry.Add(disp.commands()...); err != nil {
		return nil, err
	}
	return disp, nil
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

// HandleInteraction is the gateway entry point.
func (d *Dispatcher) HandleInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	d.Dispatch(ctx, i)
}

// Dispatch routes i: autocomplete first, then buttons, then modals, then
// slash commands. Interactions outside a guild are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, i *discordgo.InteractionCreate) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return
	}
	r := &Request{
		InteractionCreate: i,
		Caller:            permissions.Caller{UserID: i.Member.User.ID, RoleIDs: i.Member.Roles},
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommandAutocomplete:
		d.autocomplete(ctx, r)
	case discordgo.InteractionMessageComponent:
		d.component(ctx, r)
	case discordgo.InteractionModalSubmit:
		d.modal(ctx, r)
	case discordgo.InteractionApplicationCommand:
		d.slash(ctx, r)
	}
}

func (d *Dispatcher) autocomplete(ctx context.Context, r *Request) {
	cmd, ok := d.registry.Get(r.ApplicationCommandData().Name)
	if !ok || cmd.Autocomplete == nil {
		return
	}
	r.Guild = d.guilds.Get(ctx, r.GuildID)
	choices := cmd.Autocomplete(ctx, r)
	if len(choices) > 25 {
		choices = choices[:25]
	}
	err := d.platform.Respond(r.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		d.logger.Debug("autocomplete response failed", zap.Error(err))
	}
}

func (d *Dispatcher) slash(ctx context.Context, r *Request) {
	name := r.ApplicationCommandData().Name
	cmd, ok := d.registry.Get(name)
	if !ok {
		d.logger.Debug("unknown command", zap.String("command", name))
		return
	}
	r.Guild = d.guilds.Get(ctx, r.GuildID)

	if res := d.guard.Check(r.Caller.UserID, name); res.IsSpam {
		d.metrics.Interactions.WithLabelValues("command", "spam").Inc()
		d.punishSpam(ctx, r, name, res.Count)
		return
	}

	cooldown := cmd.Cooldown
	if cooldown == 0 {
		cooldown = d.opts.DefaultCooldown
	}
	if wait := d.cooldowns.Hit(name, r.Caller.UserID, cooldown); wait > 0 {
		d.metrics.Interactions.WithLabelValues("command", "cooldown").Inc()
		secs := strconv.FormatFloat(wait.Seconds(), 'f', 1, 64)
		d.reply(r, lang.T("cooldown", "seconds", secs, "command", name), true)
		return
	}

	if !d.resolver.IsAllowed(name, cmd.Requirement, r.Caller, r.Guild) {
		d.metrics.Interactions.WithLabelValues("command", "denied").Inc()
		d.fail(r, ErrNotWhitelisted)
		return
	}

	d.invoke(ctx, r, "command", name, func() error { return cmd.Handler(ctx, r) })
}

// invoke runs fn and turns both errors and panics into ephemeral replies.
func (d *Dispatcher) invoke(ctx context.Context, r *Request, kind, name string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("handler panicked",
				zap.String("kind", kind), zap.String("name", name), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			d.metrics.Interactions.WithLabelValues(kind, "panic").Inc()
			d.fail(r, fmt.Errorf("panic in %s", name))
		}
	}()

	if err := fn(); err != nil {
		class := Classify(err)
		d.metrics.Interactions.WithLabelValues(kind, class.String()).Inc()
		if class == ClassInternal || class == ClassPlatform || class == ClassExternal {
			d.logger.Warn("handler failed", zap.String("kind", kind), zap.String("name", name), zap.String("user", r.Caller.UserID), zap.Error(err))
		}
		d.fail(r, err)
		return
	}
	d.metrics.Interactions.WithLabelValues(kind, "ok").Inc()
}

func (d *Dispatcher) component(ctx context.Context, r *Request) {
	raw := r.MessageComponentData().CustomID
	id, err := customid.Parse(raw)
	if err != nil {
		d.logger.Debug("unknown component", zap.String("custom_id", raw))
		d.reply(r, lang.T("unknown_component"), true)
		return
	}
	r.Guild = d.guilds.Get(ctx, r.GuildID)
	d.invoke(ctx, r, "component", id.Kind.String(), func() error { return d.routeComponent(ctx, r, id) })
}

func (d *Dispatcher) routeComponent(ctx context.Context, r *Request, id customid.ID) error {
	switch id.Kind {
	case customid.KindTicketCreate:
		return d.onCreateButton(ctx, r, id.Category)
	case customid.KindTicketClaim:
		return d.onClaimButton(ctx, r, id.TicketID)
	case customid.KindTicketClose:
		return d.onCloseButton(ctx, r, id.TicketID)
	case customid.KindRatingService:
		return d.onRating(ctx, r, id.TicketID, id.Score, false)
	case customid.KindRatingStaff:
		return d.onRating(ctx, r, id.TicketID, id.Score, true)
	case customid.KindSpamUnban:
		return d.onSpamUnban(ctx, r, id.UserID)
	case customid.KindSetup, customid.KindGiveawayJoin:
		d.reply(r, lang.T("feature_unavailable"), true)
		return nil
	}
	d.reply(r, lang.T("unknown_component"), true)
	return nil
}

func (d *Dispatcher) modal(ctx context.Context, r *Request) {
	data := r.ModalSubmitData()
	id, err := customid.Parse(data.CustomID)
	if err != nil {
		d.reply(r, lang.T("unknown_component"), true)
		return
	}
	r.Guild = d.guilds.Get(ctx, r.GuildID)
	d.invoke(ctx, r, "modal", id.Kind.String(), func() error {
		switch id.Kind {
		case customid.KindCloseReasonModal:
			return d.onCloseModal(ctx, r, id.TicketID, modalValue(data, "reason"))
		case customid.KindInvoiceModal:
			return d.onInvoiceModal(ctx, r, id.Category, modalValue(data, "invoice"))
		}
		d.reply(r, lang.T("unknown_component"), true)
		return nil
	})
}

// reply answers the interaction, falling back to a follow-up once a response
// has already been sent.
func (d *Dispatcher) reply(r *Request, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	if r.responded {
		if err := d.platform.Followup(r.Interaction, &discordgo.WebhookParams{Content: content, Flags: flags}); err != nil {
			d.logger.Debug("followup failed", zap.Error(err))
		}
		return
	}
	d.respond(r, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: flags},
	})
}

func (d *Dispatcher) replyEmbed(r *Request, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	embeds := []*discordgo.MessageEmbed{embed}
	if r.responded {
		if err := d.platform.Followup(r.Interaction, &discordgo.WebhookParams{Embeds: embeds, Flags: flags}); err != nil {
			d.logger.Debug("followup failed", zap.Error(err))
		}
		return
	}
	d.respond(r, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: embeds, Flags: flags},
	})
}

// deferReply shows a loading state before slow work runs. Later replies
// edit or follow it, and their visibility is fixed by ephemeral here.
func (d *Dispatcher) deferReply(r *Request, ephemeral bool) {
	if r.responded {
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	d.respond(r, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

// ack acknowledges a component without changing its message.
func (d *Dispatcher) ack(r *Request) {
	if r.responded {
		return
	}
	d.respond(r, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})
}

func (d *Dispatcher) respond(r *Request, resp *discordgo.InteractionResponse) {
	if err := d.platform.Respond(r.Interaction, resp); err != nil {
		d.logger.Warn("failed to respond", zap.Error(err))
		return
	}
	r.responded = true
}

func (d *Dispatcher) fail(r *Request, err error) {
	d.reply(r, Message(err), true)
}

func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, c := range data.Components {
		var inner []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			inner = row.Components
		case discordgo.ActionsRow:
			inner = row.Components
		}
		for _, ic := range inner {
			switch in := ic.(type) {
			case *discordgo.TextInput:
				if in.CustomID == customID {
					return in.Value
				}
			case discordgo.TextInput:
				if in.CustomID == customID {
					return in.Value
				}
			}
		}
	}
	return ""
}

// requireTicket resolves the ticket bound to the interaction's channel.
func (d *Dispatcher) requireTicket(ctx context.Context, r *Request) (*tickets.Ticket, error) {
	t := d.tickets.GetTicketByChannel(ctx, r.ChannelID)
	if t == nil {
		return nil, ErrNotTicketChannel
	}
	return t, nil
}
