package tickets

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"storefront-bot/config"
	"storefront-bot/events"
	"storefront-bot/lang"
	"storefront-bot/observability"
	"storefront-bot/permissions"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// GuildConfigs resolves per-guild settings.
type GuildConfigs interface {
	Get(ctx context.Context, guildID string) config.GuildConfig
}

type Options struct {
	DiscordCategory       string
	AutoCloseAfter        time.Duration
	TeardownMin           time.Duration
	TeardownMax           time.Duration
	TranscriptInlineLimit int
}

func OptionsFromConfig(c config.TicketsConfig) Options {
	return Options{
		DiscordCategory:       c.DiscordCategory,
		AutoCloseAfter:        c.AutoCloseAfter.Std(),
		TeardownMin:           c.TeardownMin.Std(),
		TeardownMax:           c.TeardownMax.Std(),
		TranscriptInlineLimit: c.TranscriptInlineLimit,
	}
}

type Deps struct {
	Store     *Store
	Guilds    GuildConfigs
	Resolver  *permissions.Resolver
	Platform  Platform
	Publisher events.Publisher
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// Manager runs the ticket lifecycle. Every mutation of one ticket happens
// under that ticket's lock; creation is serialised per guild and user.
type Manager struct {
	store    *Store
	guilds   GuildConfigs
	perms    *permissions.Resolver
	platform Platform
	events   events.Publisher
	metrics  *observability.Metrics
	logger   *zap.Logger
	opts     Options

	ticketLocks *keyedMutex
	createLocks *keyedMutex
	teardowns   *scheduler

	now   func() time.Time
	delay func() time.Duration
}

func NewManager(d Deps, opts Options) *Manager {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewNoopMetrics()
	}
	if opts.AutoCloseAfter <= 0 {
		opts.AutoCloseAfter = 24 * time.Hour
	}
	if opts.TranscriptInlineLimit <= 0 {
		opts.TranscriptInlineLimit = 1900
	}
	if opts.TeardownMax < opts.TeardownMin {
		opts.TeardownMax = opts.TeardownMin
	}

	m := &Manager{
		store:       d.Store,
		guilds:      d.Guilds,
		perms:       d.Resolver,
		platform:    d.Platform,
		events:      d.Publisher,
		metrics:     d.Metrics,
		logger:      d.Logger.Named("tickets"),
		opts:        opts,
		ticketLocks: newKeyedMutex(),
		createLocks: newKeyedMutex(),
		teardowns:   newScheduler(),
		now:         time.Now,
	}
	m.delay = m.randomDelay
	return m
}

func (m *Manager) randomDelay() time.Duration {
	span := m.opts.TeardownMax - m.opts.TeardownMin
	if span <= 0 {
		return m.opts.TeardownMin
	}
	return m.opts.TeardownMin + rand.N(span+1)
}

func (m *Manager) access(gc config.GuildConfig, creatorID string) Access {
	return Access{
		GuildID:     gc.GuildID,
		CreatorID:   creatorID,
		StaffRoleID: m.perms.StaffRole(gc),
		AdminRoleID: m.perms.AdminRole(gc),
	}
}

type CreateRequest struct {
	GuildID   string
	UserID    string
	Username  string
	Category  Category
	InvoiceID string
}

// Create opens a ticket channel for the user and records the ticket.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Ticket, error) {
	unlock := m.createLocks.Lock(req.GuildID + ":" + req.UserID)
	defer unlock()

	if existing := m.store.OpenForUser(ctx, req.GuildID, req.UserID); existing != nil {
		return nil, &DuplicateOpenTicketError{Existing: existing}
	}

	gc := m.guilds.Get(ctx, req.GuildID)
	gc.GuildID = req.GuildID
	parent := gc.TicketCategoryID
	if parent == "" {
		parent = m.opts.DiscordCategory
	}

	ch, err := m.platform.CreateChannel(req.GuildID, discordgo.GuildChannelCreateData{
		Name:                 channelName(req.Category, req.Username),
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             parent,
		PermissionOverwrites: Overwrites(m.access(gc, req.UserID), true),
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket channel: %w", err)
	}

	t, err := m.store.Create(ctx, Ticket{
		GuildID:   req.GuildID,
		ChannelID: ch.ID,
		UserID:    req.UserID,
		Category:  req.Category,
		CreatedAt: m.now().UTC(),
		InvoiceID: req.InvoiceID,
	})
	if err != nil {
		if derr := m.platform.DeleteChannel(ch.ID); derr != nil {
			m.logger.Warn("orphan ticket channel left behind", zap.String("channel", ch.ID), zap.Error(derr))
		}
		return nil, err
	}

	if _, err := m.platform.SendMessage(t.ChannelID, welcomeMessage(t, m.perms.StaffRole(gc))); err != nil {
		m.logger.Warn("welcome message failed", zap.String("ticket", t.ID), zap.Error(err))
	}
	m.send(gc.LogChannelID, openLog(t), t.ID)

	m.metrics.TicketsOpened.WithLabelValues(string(t.Category)).Inc()
	m.publish(ctx, events.TicketOpened, t, t.UserID, map[string]string{"category": string(t.Category)})
	m.logger.Info("ticket opened", zap.String("ticket", t.ID), zap.String("user", t.UserID), zap.String("category", string(t.Category)))
	return t, nil
}

// Claim marks a staff member as the ticket's handler.
func (m *Manager) Claim(ctx context.Context, ticketID string, caller permissions.Caller) (*Ticket, error) {
	unlock := m.ticketLocks.Lock(ticketID)
	defer unlock()

	t := m.store.Get(ctx, ticketID)
	switch {
	case t == nil:
		return nil, ErrNotFound
	case t.Closed:
		return nil, ErrAlreadyClosed
	case t.PendingClose:
		return nil, ErrClosePending
	}
	gc := m.guilds.Get(ctx, t.GuildID)
	if !m.perms.IsStaff(caller, gc) {
		return nil, ErrNotAuthorized
	}
	if t.Claimed() {
		return t, ErrAlreadyClaimed
	}

	now := m.now().UTC()
	t.ClaimedBy = caller.UserID
	t.ClaimedAt = &now
	if err := m.store.Save(ctx, t); err != nil {
		return nil, err
	}

	m.send(t.ChannelID, textMessage(lang.T("ticket_claimed", "staff", caller.UserID)), t.ID)
	m.publish(ctx, events.TicketClaimed, t, caller.UserID, nil)
	return t, nil
}

// Close applies the closer's policy: admins close directly with an optional
// reason, the creator closes directly with a reason, and staff start the
// review protocol with a reason.
func (m *Manager) Close(ctx context.Context, ticketID string, caller permissions.Caller, reason string) (*Ticket, error) {
	unlock := m.ticketLocks.Lock(ticketID)
	defer unlock()

	t := m.store.Get(ctx, ticketID)
	switch {
	case t == nil:
		return nil, ErrNotFound
	case t.Closed:
		return nil, ErrAlreadyClosed
	case t.PendingClose:
		return nil, ErrClosePending
	}

	reason = strings.TrimSpace(reason)
	gc := m.guilds.Get(ctx, t.GuildID)
	gc.GuildID = t.GuildID

	switch {
	case m.perms.IsAdmin(caller, gc):
		return t, m.finalizeLocked(ctx, t, caller.UserID, CloserOwner, reason)
	case caller.UserID == t.UserID:
		if reason == "" {
			return nil, ErrReasonRequired
		}
		return t, m.finalizeLocked(ctx, t, caller.UserID, CloserUser, reason)
	case m.perms.IsStaff(caller, gc):
		if reason == "" {
			return nil, ErrReasonRequired
		}
		return t, m.initiateCloseLocked(ctx, t, gc, caller.UserID, reason)
	}
	return nil, ErrNotAuthorized
}

func (m *Manager) initiateCloseLocked(ctx context.Context, t *Ticket, gc config.GuildConfig, staffID, reason string) error {
	now := m.now().UTC()
	t.PendingClose = true
	t.ClosedBy = staffID
	t.ClosedByType = CloserStaff
	t.CloseReason = reason
	t.RatingStartedAt = &now
	if err := m.store.Save(ctx, t); err != nil {
		return err
	}

	if err := m.platform.SetPermission(t.ChannelID, CreatorOverwrite(m.access(gc, t.UserID), false)); err != nil {
		m.logger.Warn("lock ticket channel failed", zap.String("ticket", t.ID), zap.Error(err))
	}
	m.send(t.ChannelID, reviewNotice(t), t.ID)
	m.publish(ctx, events.TicketCloseInitiated, t, staffID, map[string]string{"reason": reason})
	return m.showRatingsLocked(ctx, t)
}

// ShowRatings posts the prompt for whichever rating is still missing.
func (m *Manager) ShowRatings(ctx context.Context, ticketID string) error {
	unlock := m.ticketLocks.Lock(ticketID)
	defer unlock()

	t := m.store.Get(ctx, ticketID)
	switch {
	case t == nil:
		return ErrNotFound
	case t.Closed:
		return ErrAlreadyClosed
	case !t.PendingClose:
		return ErrNotPendingClose
	}
	return m.showRatingsLocked(ctx, t)
}

func (m *Manager) showRatingsLocked(ctx context.Context, t *Ticket) error {
	kind := ratingService
	if t.ServiceRating != nil {
		kind = ratingStaff
	}
	if t.StaffRating != nil {
		return nil
	}

	msg, err := m.platform.SendMessage(t.ChannelID, ratingPrompt(t, kind))
	if err != nil {
		m.logger.Warn("rating prompt failed", zap.String("ticket", t.ID), zap.Error(err))
		return nil
	}
	if kind == ratingService {
		t.ServiceRatingMessageID = msg.ID
	} else {
		t.StaffRatingMessageID = msg.ID
	}
	return m.store.Save(ctx, t)
}

// ProcessServiceRating records the creator's service score and asks for the
// staff score.
func (m *Manager) ProcessServiceRating(ctx context.Context, ticketID, userID string, score int) (*Ticket, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidRating
	}
	unlock := m.ticketLocks.Lock(ticketID)
	defer unlock()

	t := m.store.Get(ctx, ticketID)
	switch {
	case t == nil:
		return nil, ErrNotFound
	case t.UserID != userID:
		return nil, ErrNotTicketOwner
	case t.Closed:
		return nil, ErrAlreadyClosed
	case !t.PendingClose:
		return nil, ErrNotPendingClose
	case t.ServiceRating != nil:
		return nil, ErrAlreadyRated
	}

	t.ServiceRating = &score
	if err := m.store.Save(ctx, t); err != nil {
		return nil, err
	}

	m.freezePrompt(t, t.ServiceRatingMessageID, ratingService, score)
	m.metrics.Ratings.WithLabelValues("service").Observe(float64(score))
	m.publish(ctx, events.TicketRated, t, userID, map[string]string{"kind": "service", "score": fmt.Sprint(score)})
	return t, m.showRatingsLocked(ctx, t)
}

// ProcessStaffRating records the staff score, reports both scores and closes
// the ticket.
func (m *Manager) ProcessStaffRating(ctx context.Context, ticketID, userID string, score int) (*Ticket, error) {
	if score < 1 || score > 5 {
		return nil, ErrInvalidRating
	}
	unlock := m.ticketLocks.Lock(ticketID)
	defer unlock()

	t := m.store.Get(ctx, ticketID)
	switch {
	case t == nil:
		return nil, ErrNotFound
	case t.UserID != userID:
		return nil, ErrNotTicketOwner
	case t.Closed:
		return nil, ErrAlreadyClosed
	case t.ServiceRating == nil:
		return nil, ErrOutOfOrderRating
	case !t.PendingClose:
		return nil, ErrNotPendingClose
	case t.StaffRating != nil:
		return nil, ErrAlreadyRated
	}

	t.StaffRating = &score
	if err := m.store.Save(ctx, t); err != nil {
		return nil, err
	}

	m.freezePrompt(t, t.StaffRatingMessageID, ratingStaff, score)
	m.metrics.Ratings.WithLabelValues("staff").Observe(float64(score))
	m.publish(ctx, events.TicketRated, t, userID, map[string]string{"kind": "staff", "score": fmt.Sprint(score)})

	gc := m.guilds.Get(ctx, t.GuildID)
	m.send(gc.RatingChannelID, ratingRecord(t), t.ID)
	if gc.StaffRatingChannelID != gc.RatingChannelID {
		m.send(gc.StaffRatingChannelID, ratingRecord(t), t.ID)
	}
	m.send(t.ChannelID, textMessage(lang.T("ticket_thanks")), t.ID)

	return t, m.finalizeLocked(ctx, t, t.ClosedBy, CloserStaff, t.CloseReason)
}

func (m *Manager) freezePrompt(t *Ticket, messageID string, kind ratingKind, score int) {
	if messageID == "" {
		return
	}
	components := []discordgo.MessageComponent{ratingRow(t, kind, score)}
	err := m.platform.EditMessage(&discordgo.MessageEdit{
		Channel:    t.ChannelID,
		ID:         messageID,
		Components: &components,
	})
	if err != nil {
		m.logger.Warn("rating prompt update failed", zap.String("ticket", t.ID), zap.Error(err))
	}
}

// CloseTicket force-closes a ticket regardless of its review state.
func (m *Manager) CloseTicket(ctx context.Context, ticketID, closedBy string, closerType CloserType, reason string) (*Ticket, error) {
	unlock := m.ticketLocks.Lock(ticketID)
	defer unlock()

	t := m.store.Get(ctx, ticketID)
	switch {
	case t == nil:
		return nil, ErrNotFound
	case t.Closed:
		return nil, ErrAlreadyClosed
	}
	return t, m.finalizeLocked(ctx, t, closedBy, closerType, reason)
}

func (m *Manager) finalizeLocked(ctx context.Context, t *Ticket, closedBy string, closerType CloserType, reason string) error {
	now := m.now().UTC()
	t.Closed = true
	t.ClosedAt = &now
	t.ClosedBy = closedBy
	t.ClosedByType = closerType
	t.CloseReason = reason
	if err := m.store.Save(ctx, t); err != nil {
		return err
	}

	m.send(t.ChannelID, textMessage(lang.T("ticket_closing", "closer", mention(closedBy, closerType))), t.ID)

	m.metrics.TicketsClosed.WithLabelValues(string(closerType)).Inc()
	m.publish(ctx, events.TicketClosed, t, closedBy, map[string]string{"closer_type": string(closerType), "reason": reason})
	m.logger.Info("ticket closed", zap.String("ticket", t.ID), zap.String("closer", closedBy), zap.String("closer_type", string(closerType)))

	m.scheduleTeardown(t.ID, m.delay())
	return nil
}

// CancelClose reverts a pending close and gives the creator their send
// rights back.
func (m *Manager) CancelClose(ctx context.Context, ticketID string, caller permissions.Caller) (*Ticket, error) {
	unlock := m.ticketLocks.Lock(ticketID)
	defer unlock()

	t := m.store.Get(ctx, ticketID)
	switch {
	case t == nil:
		return nil, ErrNotFound
	case t.Closed:
		return nil, ErrAlreadyClosed
	}
	gc := m.guilds.Get(ctx, t.GuildID)
	gc.GuildID = t.GuildID
	if !m.perms.IsAdmin(caller, gc) {
		return nil, ErrNotAuthorized
	}
	if !t.PendingClose {
		return nil, ErrNotPendingClose
	}

	serviceMsg, staffMsg := t.ServiceRatingMessageID, t.StaffRatingMessageID
	t.PendingClose = false
	t.ClosedBy = ""
	t.ClosedByType = ""
	t.CloseReason = ""
	t.ServiceRating = nil
	t.StaffRating = nil
	t.RatingStartedAt = nil
	t.ServiceRatingMessageID = ""
	t.StaffRatingMessageID = ""
	if err := m.store.Save(ctx, t); err != nil {
		return nil, err
	}

	for _, id := range []string{serviceMsg, staffMsg} {
		if id == "" {
			continue
		}
		empty := []discordgo.MessageComponent{}
		if err := m.platform.EditMessage(&discordgo.MessageEdit{Channel: t.ChannelID, ID: id, Components: &empty}); err != nil {
			m.logger.Warn("clear rating prompt failed", zap.String("ticket", t.ID), zap.Error(err))
		}
	}
	if err := m.platform.SetPermission(t.ChannelID, CreatorOverwrite(m.access(gc, t.UserID), true)); err != nil {
		m.logger.Warn("unlock ticket channel failed", zap.String("ticket", t.ID), zap.Error(err))
	}
	m.send(t.ChannelID, textMessage(lang.T("ticket_close_cancelled", "admin", caller.UserID)), t.ID)
	m.publish(ctx, events.TicketCloseCancelled, t, caller.UserID, nil)
	return t, nil
}

// humanDuration renders d in its largest whole unit, e.g. "24 hours" or
// "90 minutes".
func humanDuration(d time.Duration) string {
	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int64(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int64(d/time.Minute), "minute")
	}
	return plural(int64(d/time.Second), "second")
}

// AutoCloseOverdue force-closes every pending ticket whose review window has
// run out. It returns how many tickets were closed.
func (m *Manager) AutoCloseOverdue(ctx context.Context) int {
	now := m.now()
	overdue := m.store.Filter(ctx, func(t *Ticket) bool {
		return t.PendingClose && !t.Closed && t.RatingStartedAt != nil &&
			now.Sub(*t.RatingStartedAt) > m.opts.AutoCloseAfter &&
			(t.ServiceRating == nil || t.StaffRating == nil)
	})

	closed := 0
	for _, t := range overdue {
		_, err := m.CloseTicket(ctx, t.ID, SystemCloser, CloserSystem, lang.T("ticket_auto_close_reason", "duration", humanDuration(m.opts.AutoCloseAfter)))
		switch {
		case err == nil:
			closed++
		case errors.Is(err, ErrAlreadyClosed):
		default:
			m.logger.Error("auto-close failed", zap.String("ticket", t.ID), zap.Error(err))
		}
	}
	if closed > 0 {
		m.logger.Info("auto-closed overdue tickets", zap.Int("count", closed))
	}
	return closed
}

func (m *Manager) scheduleTeardown(ticketID string, after time.Duration) {
	m.teardowns.Schedule(ticketID, after, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		m.teardown(ctx, ticketID)
	})
}

// CancelTeardown stops a scheduled channel deletion.
func (m *Manager) CancelTeardown(ticketID string) bool {
	return m.teardowns.Cancel(ticketID)
}

// teardown emits the transcript and close log, then deletes the channel.
func (m *Manager) teardown(ctx context.Context, ticketID string) {
	unlock := m.ticketLocks.Lock(ticketID)
	defer unlock()

	t := m.store.Get(ctx, ticketID)
	if t == nil || !t.Closed || t.ChannelDeleted {
		return
	}
	gc := m.guilds.Get(ctx, t.GuildID)

	transcriptCh := gc.TranscriptChannelID
	if transcriptCh == "" {
		transcriptCh = gc.LogChannelID
	}
	if transcriptCh != "" {
		msgs, err := fetchHistory(m.platform, t.ChannelID)
		if err != nil {
			m.logger.Warn("fetch transcript failed", zap.String("ticket", t.ID), zap.Error(err))
		}
		text := RenderTranscript(t, msgs)
		m.send(transcriptCh, transcriptMessage(t, text, m.opts.TranscriptInlineLimit), t.ID)
	}
	m.send(gc.LogChannelID, closeLog(t), t.ID)

	if err := m.platform.DeleteChannel(t.ChannelID); err != nil {
		if !isUnknownChannel(err) {
			m.logger.Warn("delete ticket channel failed", zap.String("ticket", t.ID), zap.Error(err))
			return
		}
		m.logger.Info("ticket channel already gone", zap.String("ticket", t.ID), zap.String("channel", t.ChannelID))
	}
	t.ChannelDeleted = true
	if err := m.store.Save(ctx, t); err != nil {
		m.logger.Warn("mark channel deleted failed", zap.String("ticket", t.ID), zap.Error(err))
	}
}

func isUnknownChannel(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel
}

// RecoverTeardowns schedules teardown for tickets that closed before a
// restart but still have a channel.
func (m *Manager) RecoverTeardowns(ctx context.Context) int {
	pending := m.store.Filter(ctx, func(t *Ticket) bool {
		return t.Closed && !t.ChannelDeleted && t.ChannelID != ""
	})
	for _, t := range pending {
		m.scheduleTeardown(t.ID, m.delay())
	}
	return len(pending)
}

// CaptureInvoice attaches invoiceID to the Replaces ticket bound to channelID
// if it does not have one yet.
func (m *Manager) CaptureInvoice(ctx context.Context, channelID, invoiceID string) (bool, error) {
	t := m.store.GetByChannel(ctx, channelID)
	if t == nil {
		return false, ErrNotFound
	}
	unlock := m.ticketLocks.Lock(t.ID)
	defer unlock()

	t = m.store.Get(ctx, t.ID)
	if t.Closed || t.Category != CategoryReplaces || t.InvoiceID != "" {
		return false, nil
	}
	t.InvoiceID = invoiceID
	if err := m.store.Save(ctx, t); err != nil {
		return false, err
	}
	return true, nil
}

// AddMember grants another user access to an open ticket.
func (m *Manager) AddMember(ctx context.Context, channelID string, caller permissions.Caller, userID string) (*Ticket, error) {
	t, err := m.staffTicket(ctx, channelID, caller)
	if err != nil {
		return nil, err
	}
	if err := m.platform.SetPermission(t.ChannelID, GuestOverwrite(userID)); err != nil {
		return nil, err
	}
	return t, nil
}

// RemoveMember revokes access granted with AddMember. The creator cannot be
// removed.
func (m *Manager) RemoveMember(ctx context.Context, channelID string, caller permissions.Caller, userID string) (*Ticket, error) {
	t, err := m.staffTicket(ctx, channelID, caller)
	if err != nil {
		return nil, err
	}
	if userID == t.UserID {
		return nil, fmt.Errorf("%w: the ticket creator cannot be removed", ErrValidation)
	}
	if err := m.platform.DeletePermission(t.ChannelID, userID); err != nil {
		return nil, err
	}
	return t, nil
}

func (m *Manager) staffTicket(ctx context.Context, channelID string, caller permissions.Caller) (*Ticket, error) {
	t := m.store.GetByChannel(ctx, channelID)
	if t == nil {
		return nil, ErrNotFound
	}
	if t.Closed {
		return nil, ErrAlreadyClosed
	}
	if !m.perms.IsStaff(caller, m.guilds.Get(ctx, t.GuildID)) {
		return nil, ErrNotAuthorized
	}
	return t, nil
}

func (m *Manager) GetTicket(ctx context.Context, id string) *Ticket {
	return m.store.Get(ctx, id)
}

func (m *Manager) GetTicketByChannel(ctx context.Context, channelID string) *Ticket {
	return m.store.GetByChannel(ctx, channelID)
}

// OpenTickets lists the guild's tickets that are not closed.
func (m *Manager) OpenTickets(ctx context.Context, guildID string) []*Ticket {
	return m.store.Filter(ctx, func(t *Ticket) bool {
		return t.GuildID == guildID && !t.Closed
	})
}

// OpenTicketFor returns the user's open ticket in the guild, or nil.
func (m *Manager) OpenTicketFor(ctx context.Context, guildID, userID string) *Ticket {
	return m.store.OpenForUser(ctx, guildID, userID)
}

// Shutdown drops pending teardowns; RecoverTeardowns picks them up on the
// next start.
func (m *Manager) Shutdown() {
	m.teardowns.Stop()
}

func (m *Manager) send(channelID string, msg *discordgo.MessageSend, ticketID string) {
	if channelID == "" {
		return
	}
	if _, err := m.platform.SendMessage(channelID, msg); err != nil {
		m.logger.Warn("ticket message failed", zap.String("ticket", ticketID), zap.String("channel", channelID), zap.Error(err))
	}
}

func (m *Manager) publish(ctx context.Context, typ events.Type, t *Ticket, actorID string, attrs map[string]string) {
	if err := m.events.Publish(ctx, events.New(typ, t.GuildID, t.ID, actorID, attrs)); err != nil {
		m.logger.Warn("publish ticket event failed", zap.String("type", string(typ)), zap.String("ticket", t.ID), zap.Error(err))
	}
}

func mention(userID string, ct CloserType) string {
	if ct == CloserSystem {
		return userID
	}
	return "<@" + userID + ">"
}

func channelName(c Category, username string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(username) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ' || r == '.':
			sb.WriteRune('-')
		}
	}
	name := sb.String()
	if name == "" {
		name = "user"
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return strings.ToLower(string(c)) + "-" + name
}
