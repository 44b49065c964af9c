package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"storefront-bot/config"
	"storefront-bot/lang"
	"storefront-bot/permissions"
	"storefront-bot/spamguard"
	"storefront-bot/storage"
	"storefront-bot/tickets"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	guildID       = "100000000000000001"
	panelChannel  = "chan-panel"
	spamChannel   = "chan-spam"
	acceptChannel = "chan-accept"
	adminRoleID   = "200000000000000001"
	staffRoleID   = "200000000000000002"
	trialRoleID   = "200000000000000003"
)

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: "user" + id}, Roles: roles}
}

var (
	adminMember    = member("300000000000000001", adminRoleID)
	staffMember    = member("300000000000000002", staffRoleID)
	trialMember    = member("300000000000000003", trialRoleID)
	customerMember = member("300000000000000004")
	otherMember    = member("300000000000000005")
)

type fakePlatform struct {
	mu        sync.Mutex
	seq       int
	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
	shown     []string
	events    []string
	sent      map[string][]*discordgo.MessageSend
	channels  int
	bans      []string
	unbans    []string
	banErr    error
	synced    int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{sent: make(map[string][]*discordgo.MessageSend)}
}

func (f *fakePlatform) CreateChannel(string, discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.channels++
	f.events = append(f.events, "channel")
	return &discordgo.Channel{ID: fmt.Sprintf("ticket-chan-%d", f.seq)}, nil
}

func (f *fakePlatform) DeleteChannel(string) error                                 { return nil }
func (f *fakePlatform) SetPermission(string, *discordgo.PermissionOverwrite) error { return nil }
func (f *fakePlatform) DeletePermission(string, string) error                      { return nil }
func (f *fakePlatform) EditMessage(*discordgo.MessageEdit) error                   { return nil }
func (f *fakePlatform) ChannelMessages(string, int, string) ([]*discordgo.Message, error) {
	return nil, nil
}

func (f *fakePlatform) SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.sent[channelID] = append(f.sent[channelID], msg)
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", f.seq)}, nil
}

func (f *fakePlatform) Respond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	f.events = append(f.events, fmt.Sprintf("respond:%d", resp.Type))
	if resp.Data != nil && resp.Data.Content != "" {
		f.shown = append(f.shown, resp.Data.Content)
	}
	return nil
}

func (f *fakePlatform) Followup(_ *discordgo.Interaction, params *discordgo.WebhookParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, params)
	f.events = append(f.events, "followup")
	f.shown = append(f.shown, params.Content)
	return nil
}

func (f *fakePlatform) Ban(_, userID, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bans = append(f.bans, userID)
	f.events = append(f.events, "ban")
	return f.banErr
}

func (f *fakePlatform) Unban(_, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbans = append(f.unbans, userID)
	return nil
}

func (f *fakePlatform) RegisterCommands(_ string, cmds []*discordgo.ApplicationCommand) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = len(cmds)
	f.events = append(f.events, "sync")
	return len(cmds), nil
}

func (f *fakePlatform) lastResponse(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.responses)
	return f.responses[len(f.responses)-1]
}

// lastText is the newest content shown to the user, whether it went out as
// the response or as a followup.
func (f *fakePlatform) lastText(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.shown)
	return f.shown[len(f.shown)-1]
}

func (f *fakePlatform) lastFollowup(t *testing.T) *discordgo.WebhookParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.followups)
	return f.followups[len(f.followups)-1]
}

func (f *fakePlatform) eventsSince(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events[n:]...)
}

func (f *fakePlatform) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakePlatform) responseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.responses)
}

type fakeInvoices map[string]bool

func (f fakeInvoices) InvoiceExists(_ context.Context, id string) (bool, error) {
	return f[id], nil
}

type env struct {
	d        *Dispatcher
	platform *fakePlatform
	tickets  *tickets.Manager
}

func newEnv(t *testing.T, cooldown time.Duration) *env {
	t.Helper()
	ctx := context.Background()
	kv, err := storage.NewFileKV(t.TempDir())
	require.NoError(t, err)

	guilds := config.NewStore(kv, zap.NewNop())
	require.NoError(t, guilds.Put(ctx, config.GuildConfig{
		GuildID:          guildID,
		AdminRoleID:      adminRoleID,
		StaffRoleID:      staffRoleID,
		TrialAdminRoleID: trialRoleID,
		SpamChannelID:    spamChannel,
		AcceptChannelID:  acceptChannel,
	}))

	platform := newFakePlatform()
	resolver := permissions.NewResolver(config.PermissionsConfig{})
	mgr := tickets.NewManager(tickets.Deps{
		Store:    tickets.NewStore(kv, zap.NewNop()),
		Guilds:   guilds,
		Resolver: resolver,
		Platform: platform,
		Logger:   zap.NewNop(),
	}, tickets.Options{TeardownMin: time.Hour, TeardownMax: time.Hour})
	t.Cleanup(mgr.Shutdown)

	d, err := NewDispatcher(Deps{
		Platform:  platform,
		Tickets:   mgr,
		Guilds:    guilds,
		Resolver:  resolver,
		Guard:     spamguard.New(7*time.Second, 2, zap.NewNop()),
		Cooldowns: spamguard.NewCooldowns(),
		Invoices:  fakeInvoices{"abcdef12-1234567": true},
		Logger:    zap.NewNop(),
	}, Options{DefaultCooldown: cooldown, SpamWindow: 7 * time.Second})
	require.NoError(t, err)

	return &env{d: d, platform: platform, tickets: mgr}
}

func slash(m *discordgo.Member, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID: "interaction", Type: discordgo.InteractionApplicationCommand, GuildID: guildID, ChannelID: panelChannel, Member: m,
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func sub(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

func strOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func button(m *discordgo.Member, channelID, customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID: "interaction", Type: discordgo.InteractionMessageComponent, GuildID: guildID, ChannelID: channelID, Member: m,
		Data: discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent},
	}}
}

func modalSubmit(m *discordgo.Member, channelID, customID, inputID, value string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID: "interaction", Type: discordgo.InteractionModalSubmit, GuildID: guildID, ChannelID: channelID, Member: m,
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: customID,
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: inputID, Value: value},
				}},
			},
		},
	}}
}

func TestSpamTriggersBanInsteadOfHandler(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		e.d.Dispatch(ctx, slash(staffMember, "ticket", sub("list")))
		assert.Equal(t, lang.T("ticket_none_open"), e.platform.lastText(t))
	}
	e.d.Dispatch(ctx, slash(staffMember, "ticket", sub("list")))

	assert.Equal(t, lang.T("spam_blocked"), e.platform.lastText(t))
	assert.Equal(t, []string{staffMember.User.ID}, e.platform.bans)
	require.Len(t, e.platform.sent[spamChannel], 1)
	assert.Contains(t, e.platform.sent[spamChannel][0].Content, "/ticket")

	review := e.platform.sent[acceptChannel]
	require.Len(t, review, 1)
	row := review[0].Components[0].(discordgo.ActionsRow)
	assert.Equal(t, "spam:unban:"+staffMember.User.ID, row.Components[0].(discordgo.Button).CustomID)

	// History was cleared, so the next call runs normally.
	e.d.Dispatch(ctx, slash(staffMember, "ticket", sub("list")))
	assert.Equal(t, lang.T("ticket_none_open"), e.platform.lastText(t))
}

func TestSpamUnbanButtonIsAdminOnly(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	target := "300000000000000009"

	e.d.Dispatch(ctx, button(staffMember, acceptChannel, "spam:unban:"+target))
	assert.Equal(t, lang.T("no_permission"), e.platform.lastText(t))
	assert.Empty(t, e.platform.unbans)

	e.d.Dispatch(ctx, button(adminMember, acceptChannel, "spam:unban:"+target))
	resp := e.platform.lastResponse(t)
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, resp.Type)
	assert.Equal(t, []string{target}, e.platform.unbans)
}

func TestCooldownShortCircuits(t *testing.T) {
	e := newEnv(t, time.Minute)
	ctx := context.Background()

	e.d.Dispatch(ctx, slash(staffMember, "ticket", sub("list")))
	e.d.Dispatch(ctx, slash(staffMember, "ticket", sub("list")))

	got := e.platform.lastText(t)
	assert.Contains(t, got, "Please wait")
	assert.Contains(t, got, "/ticket")
	assert.Empty(t, e.platform.bans)
}

func TestPermissionGate(t *testing.T) {
	tests := []struct {
		name    string
		command *discordgo.InteractionCreate
		denied  bool
	}{
		{"admin may show config", slash(adminMember, "config", sub("show")), false},
		{"staff may not show config", slash(staffMember, "config", sub("show")), true},
		{"member may not list tickets", slash(customerMember, "ticket", sub("list")), true},
		{"staff may list tickets", slash(staffMember, "ticket", sub("list")), false},
		{"trial admin may sync", slash(trialMember, "sync"), false},
		{"trial admin may not list tickets", slash(trialMember, "ticket", sub("list")), true},
		{"trial admin may not configure", slash(trialMember, "config", sub("show")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, 0)
			e.d.Dispatch(context.Background(), tt.command)

			resp := e.platform.lastResponse(t)
			if tt.denied {
				assert.Equal(t, lang.T("no_permission"), resp.Data.Content)
				assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
			} else {
				assert.NotEqual(t, lang.T("no_permission"), resp.Data.Content)
			}
		})
	}
}

func TestSyncRegistersEveryCommand(t *testing.T) {
	for name, m := range map[string]*discordgo.Member{"admin": adminMember, "trial admin": trialMember} {
		t.Run(name, func(t *testing.T) {
			e := newEnv(t, 0)
			e.d.Dispatch(context.Background(), slash(m, "sync"))
			assert.Equal(t, e.d.Registry().Len(), e.platform.synced)
		})
	}
}

func TestSyncIsVisibleToTrialAdmins(t *testing.T) {
	e := newEnv(t, 0)
	cmd, ok := e.d.Registry().Get("sync")
	require.True(t, ok)
	assert.Nil(t, cmd.Definition.DefaultMemberPermissions)
}

func TestUnknownCommandAndDMAreIgnored(t *testing.T) {
	e := newEnv(t, 0)
	e.d.Dispatch(context.Background(), slash(adminMember, "nope"))

	dm := slash(adminMember, "sync")
	dm.GuildID = ""
	e.d.Dispatch(context.Background(), dm)

	assert.Zero(t, e.platform.responseCount())
}

func TestHandlerPanicBecomesErrorReply(t *testing.T) {
	e := newEnv(t, 0)
	require.NoError(t, e.d.Registry().Add(&Command{
		Definition: &discordgo.ApplicationCommand{Name: "explode", Description: "x"},
		Handler:    func(context.Context, *Request) error { panic("boom") },
	}))

	assert.NotPanics(t, func() { e.d.Dispatch(context.Background(), slash(customerMember, "explode")) })
	assert.Equal(t, lang.T("generic_error"), e.platform.lastText(t))
}

func TestCreateButtonOpensTicket(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	e.d.Dispatch(ctx, button(customerMember, panelChannel, "ticket:create:Purchase"))
	tk := e.tickets.OpenTicketFor(ctx, guildID, customerMember.User.ID)
	require.NotNil(t, tk)
	assert.Equal(t, lang.T("ticket_created", "channel", tk.ChannelID), e.platform.lastText(t))

	e.d.Dispatch(ctx, button(customerMember, panelChannel, "ticket:create:FAQ"))
	assert.Equal(t, lang.T("ticket_duplicate", "channel", tk.ChannelID), e.platform.lastText(t))
	assert.Equal(t, 1, e.platform.channels)
}

func TestReplacesAsksForInvoice(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	e.d.Dispatch(ctx, button(customerMember, panelChannel, "ticket:create:Replaces"))
	resp := e.platform.lastResponse(t)
	assert.Equal(t, discordgo.InteractionResponseModal, resp.Type)
	assert.Equal(t, "modal:invoice:Replaces", resp.Data.CustomID)

	e.d.Dispatch(ctx, modalSubmit(customerMember, panelChannel, "modal:invoice:Replaces", "invoice", "unknown-1"))
	assert.Equal(t, lang.T("ticket_invoice_invalid", "invoice", "unknown-1"), e.platform.lastText(t))
	assert.Zero(t, e.platform.channels)

	e.d.Dispatch(ctx, modalSubmit(customerMember, panelChannel, "modal:invoice:Replaces", "invoice", "abcdef12-1234567"))
	tk := e.tickets.OpenTicketFor(ctx, guildID, customerMember.User.ID)
	require.NotNil(t, tk)
	assert.Equal(t, "abcdef12-1234567", tk.InvoiceID)
}

func TestMalformedCustomID(t *testing.T) {
	e := newEnv(t, 0)
	e.d.Dispatch(context.Background(), button(customerMember, panelChannel, "rating:service:TKT-0001:9"))
	assert.Equal(t, lang.T("unknown_component"), e.platform.lastText(t))
}

func TestCloseAndRateThroughComponents(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	e.d.Dispatch(ctx, button(customerMember, panelChannel, "ticket:create:Purchase"))
	tk := e.tickets.OpenTicketFor(ctx, guildID, customerMember.User.ID)
	require.NotNil(t, tk)

	e.d.Dispatch(ctx, button(staffMember, tk.ChannelID, "ticket:close:"+tk.ID))
	assert.Equal(t, discordgo.InteractionResponseModal, e.platform.lastResponse(t).Type)

	e.d.Dispatch(ctx, modalSubmit(staffMember, tk.ChannelID, "modal:close:"+tk.ID, "reason", "resolved"))
	assert.Equal(t, lang.T("ticket_review_started", "id", tk.ID), e.platform.lastText(t))

	e.d.Dispatch(ctx, button(otherMember, tk.ChannelID, "rating:service:"+tk.ID+":5"))
	assert.Equal(t, lang.T("ticket_not_owner"), e.platform.lastText(t))

	e.d.Dispatch(ctx, button(customerMember, tk.ChannelID, "rating:staff:"+tk.ID+":4"))
	assert.Equal(t, lang.T("ticket_out_of_order"), e.platform.lastText(t))

	e.d.Dispatch(ctx, button(customerMember, tk.ChannelID, "rating:service:"+tk.ID+":5"))
	e.d.Dispatch(ctx, button(customerMember, tk.ChannelID, "rating:staff:"+tk.ID+":4"))
	assert.Equal(t, lang.T("ticket_rating_recorded"), e.platform.lastText(t))
	assert.True(t, e.tickets.GetTicket(ctx, tk.ID).Closed)

	e.d.Dispatch(ctx, button(staffMember, tk.ChannelID, "ticket:close:"+tk.ID))
	assert.Equal(t, lang.T("ticket_already_closed"), e.platform.lastText(t))
}

func TestSlowWorkIsAcknowledgedFirst(t *testing.T) {
	deferred := fmt.Sprintf("respond:%d", discordgo.InteractionResponseDeferredChannelMessageWithSource)
	update := fmt.Sprintf("respond:%d", discordgo.InteractionResponseDeferredMessageUpdate)

	tests := []struct {
		name   string
		setup  func(t *testing.T, e *env) *discordgo.InteractionCreate
		first  string
		effect string
		text   string
	}{
		{
			name:   "create button",
			setup:  func(*testing.T, *env) *discordgo.InteractionCreate { return button(customerMember, panelChannel, "ticket:create:FAQ") },
			first:  deferred,
			effect: "channel",
		},
		{
			name: "invoice modal",
			setup: func(*testing.T, *env) *discordgo.InteractionCreate {
				return modalSubmit(customerMember, panelChannel, "modal:invoice:Replaces", "invoice", "abcdef12-1234567")
			},
			first:  deferred,
			effect: "channel",
		},
		{
			name:   "sync",
			setup:  func(*testing.T, *env) *discordgo.InteractionCreate { return slash(adminMember, "sync") },
			first:  deferred,
			effect: "sync",
		},
		{
			name: "spam ban",
			setup: func(_ *testing.T, e *env) *discordgo.InteractionCreate {
				for i := 0; i < 2; i++ {
					e.d.Dispatch(context.Background(), slash(staffMember, "ticket", sub("list")))
				}
				return slash(staffMember, "ticket", sub("list"))
			},
			first:  deferred,
			effect: "ban",
			text:   lang.T("spam_blocked"),
		},
		{
			name: "close modal",
			setup: func(t *testing.T, e *env) *discordgo.InteractionCreate {
				tk, err := e.tickets.Create(context.Background(), tickets.CreateRequest{GuildID: guildID, UserID: customerMember.User.ID, Username: "c", Category: tickets.CategoryPurchase})
				require.NoError(t, err)
				return modalSubmit(staffMember, tk.ChannelID, "modal:close:"+tk.ID, "reason", "resolved")
			},
			first:  deferred,
			effect: "followup",
			text:   lang.T("ticket_review_started", "id", "TKT-0001"),
		},
		{
			name: "rating button",
			setup: func(t *testing.T, e *env) *discordgo.InteractionCreate {
				ctx := context.Background()
				tk, err := e.tickets.Create(ctx, tickets.CreateRequest{GuildID: guildID, UserID: customerMember.User.ID, Username: "c", Category: tickets.CategoryPurchase})
				require.NoError(t, err)
				_, err = e.tickets.Close(ctx, tk.ID, permissions.Caller{UserID: staffMember.User.ID, RoleIDs: staffMember.Roles}, "done")
				require.NoError(t, err)
				return button(customerMember, tk.ChannelID, "rating:service:"+tk.ID+":5")
			},
			first:  update,
			effect: "followup",
			text:   lang.T("ticket_rating_recorded"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, 0)
			i := tt.setup(t, e)
			start := e.platform.eventCount()

			e.d.Dispatch(context.Background(), i)

			events := e.platform.eventsSince(start)
			require.NotEmpty(t, events)
			assert.Equal(t, tt.first, events[0])
			assert.Contains(t, events[1:], tt.effect)
			if tt.text != "" {
				last := e.platform.lastFollowup(t)
				assert.Equal(t, tt.text, last.Content)
				assert.Equal(t, discordgo.MessageFlagsEphemeral, last.Flags)
			}
		})
	}
}

func TestClaimButton(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()
	e.d.Dispatch(ctx, button(customerMember, panelChannel, "ticket:create:FAQ"))
	tk := e.tickets.OpenTicketFor(ctx, guildID, customerMember.User.ID)
	require.NotNil(t, tk)

	e.d.Dispatch(ctx, button(staffMember, tk.ChannelID, "ticket:claim:"+tk.ID))
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, e.platform.lastResponse(t).Type)

	e.d.Dispatch(ctx, button(adminMember, tk.ChannelID, "ticket:claim:"+tk.ID))
	assert.Equal(t, lang.T("ticket_already_claimed", "user", staffMember.User.ID), e.platform.lastText(t))
}

func TestConfigAutocomplete(t *testing.T) {
	e := newEnv(t, 0)
	i := slash(adminMember, "config", sub("set", &discordgo.ApplicationCommandInteractionDataOption{
		Name: "key", Type: discordgo.ApplicationCommandOptionString, Value: "spam", Focused: true,
	}))
	i.Type = discordgo.InteractionApplicationCommandAutocomplete

	e.d.Dispatch(context.Background(), i)
	resp := e.platform.lastResponse(t)
	assert.Equal(t, discordgo.InteractionApplicationCommandAutocompleteResult, resp.Type)
	require.Len(t, resp.Data.Choices, 1)
	assert.Equal(t, "spam_channel_id", resp.Data.Choices[0].Value)
}

func TestConfigSetAndUnknownKey(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	e.d.Dispatch(ctx, slash(adminMember, "config", sub("set", strOpt("key", "log_channel_id"), strOpt("value", "<#400000000000000001>"))))
	assert.Equal(t, lang.T("config_set", "key", "log_channel_id", "value", "400000000000000001"), e.platform.lastText(t))
	assert.Equal(t, "400000000000000001", e.d.guilds.Get(ctx, guildID).LogChannelID)

	e.d.Dispatch(ctx, slash(adminMember, "config", sub("remove", strOpt("key", "colour"))))
	assert.Contains(t, e.platform.lastText(t), "Unknown key `colour`")
}

func TestInvoiceAutoCapture(t *testing.T) {
	e := newEnv(t, 0)
	ctx := context.Background()

	tk, err := e.tickets.Create(ctx, tickets.CreateRequest{GuildID: guildID, UserID: customerMember.User.ID, Username: "c", Category: tickets.CategoryReplaces})
	require.NoError(t, err)

	msg := func(author *discordgo.User, content string) *discordgo.MessageCreate {
		return &discordgo.MessageCreate{Message: &discordgo.Message{ID: "m", GuildID: guildID, ChannelID: tk.ChannelID, Author: author, Content: content}}
	}

	e.d.OnMessage(ctx, msg(otherMember.User, "abcdef12-1234567"))
	assert.Empty(t, e.tickets.GetTicket(ctx, tk.ID).InvoiceID)

	e.d.OnMessage(ctx, msg(customerMember.User, "my invoice is abcdef12-1234567 thanks"))
	assert.Equal(t, "abcdef12-1234567", e.tickets.GetTicket(ctx, tk.ID).InvoiceID)
}

func restError(code int, msg string) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{Status: "403 Forbidden", StatusCode: http.StatusForbidden},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: msg},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"not whitelisted", ErrNotWhitelisted, ClassPermission},
		{"not owner", tickets.ErrNotTicketOwner, ClassPermission},
		{"reason required", tickets.ErrReasonRequired, ClassValidation},
		{"bad input", invalid("bad"), ClassValidation},
		{"unknown key", fmt.Errorf("%w: x", config.ErrUnknownKey), ClassValidation},
		{"ticket missing", tickets.ErrNotFound, ClassNotFound},
		{"not a ticket channel", ErrNotTicketChannel, ClassNotFound},
		{"already closed", tickets.ErrAlreadyClosed, ClassAlreadyProcessed},
		{"duplicate", &tickets.DuplicateOpenTicketError{Existing: &tickets.Ticket{}}, ClassAlreadyProcessed},
		{"platform", fmt.Errorf("wrapped: %w", restError(discordgo.ErrCodeMissingPermissions, "Missing Permissions")), ClassPlatform},
		{"anything else", errors.New("boom"), ClassInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestPlatformMessages(t *testing.T) {
	assert.Equal(t, lang.T("platform_missing_permissions"), Message(restError(discordgo.ErrCodeMissingPermissions, "Missing Permissions")))
	assert.Equal(t, lang.T("platform_role_hierarchy"), Message(restError(50013, "Missing Permissions: role hierarchy")))
	assert.Equal(t, "Unknown User", Message(restError(10013, "Unknown User")))
	assert.Equal(t, lang.T("generic_error"), Message(errors.New("boom")))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	cmd := &Command{Definition: &discordgo.ApplicationCommand{Name: "a"}, Handler: func(context.Context, *Request) error { return nil }}
	require.NoError(t, r.Add(cmd))
	assert.Error(t, r.Add(cmd))
	assert.Error(t, r.Add(&Command{Definition: &discordgo.ApplicationCommand{Name: "b"}}))
	assert.Len(t, r.Definitions(), 1)
}
