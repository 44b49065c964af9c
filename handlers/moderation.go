package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"storefront-bot/customid"
	"storefront-bot/lang"
	"storefront-bot/permissions"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

var banPermission int64 = discordgo.PermissionBanMembers

func moderationCommands(d *Dispatcher) []*Command {
	return []*Command{
		{
			Definition: &discordgo.ApplicationCommand{
				Name:                     "ban",
				Description:              "Ban a member from the server",
				DefaultMemberPermissions: &banPermission,
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to ban", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for ban"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "days", Description: "Days of messages to delete (0-7)"},
				},
			},
			Requirement: permissions.Requirement{OnlyWhitelisted: true, RequiredRole: permissions.RoleAdmin},
			Handler:     d.handleBan,
		},
		{
			Definition: &discordgo.ApplicationCommand{
				Name:                     "unban",
				Description:              "Unban a user from the server",
				DefaultMemberPermissions: &banPermission,
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "user-id", Description: "User ID to unban", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for unban"},
				},
			},
			Requirement: permissions.Requirement{OnlyWhitelisted: true, RequiredRole: permissions.RoleAdmin},
			Handler:     d.handleUnban,
		},
	}
}

func (d *Dispatcher) handleBan(ctx context.Context, r *Request) error {
	opts := optionMap(r)
	target := opts["user"].UserValue(nil)
	reason := optStr(opts, "reason", "No reason provided")
	days := int(min(max(optInt(opts, "days", 0), 0), 7))

	d.deferReply(r, false)
	if err := d.platform.Ban(r.GuildID, target.ID, reason, days); err != nil {
		return err
	}

	name := target.ID
	if res := r.ApplicationCommandData().Resolved; res != nil {
		if u, ok := res.Users[target.ID]; ok {
			name = u.Username
		}
	}
	d.reply(r, lang.T("ban_done", "user", name, "reason", reason), false)
	d.logModAction(r, "Ban", target.ID, reason)
	return nil
}

func (d *Dispatcher) handleUnban(ctx context.Context, r *Request) error {
	opts := optionMap(r)
	userID := opts["user-id"].StringValue()
	if !isSnowflake(userID) {
		return invalid(lang.T("invalid_user_id", "value", userID))
	}
	d.deferReply(r, false)
	if err := d.platform.Unban(r.GuildID, userID); err != nil {
		return err
	}
	d.reply(r, lang.T("unban_done", "user", userID), false)
	d.logModAction(r, "Unban", userID, optStr(opts, "reason", ""))
	return nil
}

// punishSpam bans a member who tripped the spam guard, reports it and offers
// admins a one-click unban in the accept channel.
func (d *Dispatcher) punishSpam(ctx context.Context, r *Request, command string, count int) {
	userID := r.Caller.UserID
	d.deferReply(r, true)
	d.guard.ClearUserHistory(userID)
	d.metrics.SpamBans.Inc()

	window := d.opts.SpamWindow.String()
	notice := lang.T("spam_banned", "user", userID, "command", command, "count", strconv.Itoa(count), "window", window)
	d.logger.Warn("spam detected", zap.String("user", userID), zap.String("command", command), zap.Int("count", count))

	if err := d.platform.Ban(r.GuildID, userID, fmt.Sprintf("Spamming /%s (%d uses in %s)", command, count, window), 0); err != nil {
		d.logger.Warn("spam ban failed", zap.String("user", userID), zap.Error(err))
		notice += "\n" + Message(err)
	}

	reportCh := r.Guild.SpamChannelID
	if reportCh == "" {
		reportCh = r.Guild.LogChannelID
	}
	d.post(reportCh, &discordgo.MessageSend{Content: notice})

	if r.Guild.AcceptChannelID != "" {
		d.post(r.Guild.AcceptChannelID, &discordgo.MessageSend{
			Content: lang.T("spam_review", "user", userID),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{Label: "Unban", Style: discordgo.SuccessButton, CustomID: customid.SpamUnban(userID)},
				}},
			},
		})
	}

	d.reply(r, lang.T("spam_blocked"), true)
}

func (d *Dispatcher) onSpamUnban(ctx context.Context, r *Request, userID string) error {
	if !d.resolver.IsAdmin(r.Caller, r.Guild) {
		return ErrNotWhitelisted
	}
	if err := d.platform.Unban(r.GuildID, userID); err != nil {
		return err
	}
	d.respond(r, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    lang.T("spam_unbanned", "user", userID, "admin", r.Caller.UserID),
			Components: []discordgo.MessageComponent{},
		},
	})
	d.logModAction(r, "Unban (spam review)", userID, "")
	return nil
}

func (d *Dispatcher) logModAction(r *Request, action, targetID, reason string) {
	ch := r.Guild.AutomodChannelID
	if ch == "" {
		ch = r.Guild.LogChannelID
	}
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Moderation - %s", action),
		Color: 0xED4245,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (`%s`)", targetID, targetID), Inline: true},
			{Name: "Moderator", Value: fmt.Sprintf("<@%s>", r.Caller.UserID), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if reason != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Reason", Value: reason})
	}
	d.post(ch, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
}

// post sends to a configured channel; failures are logged and dropped.
func (d *Dispatcher) post(channelID string, msg *discordgo.MessageSend) {
	if channelID == "" {
		return
	}
	if _, err := d.platform.SendMessage(channelID, msg); err != nil {
		d.logger.Warn("channel message failed", zap.String("channel", channelID), zap.Error(err))
	}
}

func isSnowflake(id string) bool {
	if len(id) < 15 || len(id) > 21 {
		return false
	}
	_, err := strconv.ParseUint(id, 10, 64)
	return err == nil
}
