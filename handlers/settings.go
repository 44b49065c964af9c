package handlers

import (
	"context"
	"fmt"
	"strings"

	"storefront-bot/config"
	"storefront-bot/lang"
	"storefront-bot/permissions"

	"github.com/bwmarrin/discordgo"
)

func settingsCommands(d *Dispatcher) []*Command {
	keyOpt := &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionString, Name: "key", Description: "Setting name", Required: true, Autocomplete: true,
	}
	return []*Command{{
		Definition: &discordgo.ApplicationCommand{
			Name:                     "config",
			Description:              "Server configuration",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name: "set", Description: "Set a role or channel ID", Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{
						keyOpt,
						{Type: discordgo.ApplicationCommandOptionString, Name: "value", Description: "Role or channel ID", Required: true},
					},
				},
				{
					Name: "remove", Description: "Clear a setting", Type: discordgo.ApplicationCommandOptionSubCommand,
					Options: []*discordgo.ApplicationCommandOption{keyOpt},
				},
				{Name: "show", Description: "Show the current configuration", Type: discordgo.ApplicationCommandOptionSubCommand},
			},
		},
		Requirement:  permissions.Requirement{OnlyWhitelisted: true, RequiredRole: permissions.RoleAdmin},
		Handler:      d.handleConfig,
		Autocomplete: d.completeConfigKey,
	}}
}

func (d *Dispatcher) handleConfig(ctx context.Context, r *Request) error {
	sub, opts := subcommand(r)
	switch sub {
	case "set":
		key, value := optStr(opts, "key", ""), strings.TrimSpace(optStr(opts, "value", ""))
		value = strings.Trim(value, "<@&#>")
		if !isSnowflake(value) {
			return invalid(lang.T("invalid_id", "value", value))
		}
		if err := d.guilds.Set(ctx, r.GuildID, key, value); err != nil {
			return err
		}
		d.reply(r, lang.T("config_set", "key", key, "value", value), true)
	case "remove":
		key := optStr(opts, "key", "")
		if err := d.guilds.Remove(ctx, r.GuildID, key); err != nil {
			return err
		}
		d.reply(r, lang.T("config_removed", "key", key), true)
	case "show":
		d.replyEmbed(r, configEmbed(d.guilds.Get(ctx, r.GuildID)), true)
	default:
		return invalid(fmt.Sprintf("unknown subcommand %q", sub))
	}
	return nil
}

func (d *Dispatcher) completeConfigKey(_ context.Context, r *Request) []*discordgo.ApplicationCommandOptionChoice {
	typed := ""
	if f := focused(r.ApplicationCommandData().Options); f != nil {
		typed = strings.ToLower(f.StringValue())
	}
	var out []*discordgo.ApplicationCommandOptionChoice
	for _, k := range config.Keys() {
		if strings.Contains(k, typed) {
			out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: k, Value: k})
		}
	}
	return out
}

func configEmbed(gc config.GuildConfig) *discordgo.MessageEmbed {
	var sb strings.Builder
	for _, k := range config.Keys() {
		v := gc.Get(k)
		switch {
		case v == "":
			v = "-"
		case strings.HasSuffix(k, "_role_id"):
			v = "<@&" + v + ">"
		case strings.HasSuffix(k, "_id"):
			v = "<#" + v + ">"
		}
		fmt.Fprintf(&sb, "`%s`: %s\n", k, v)
	}
	status := "not configured"
	if gc.Configured() {
		status = "configured"
	}
	return &discordgo.MessageEmbed{
		Title:       "Server configuration",
		Description: sb.String(),
		Color:       0x5865F2,
		Footer:      &discordgo.MessageEmbedFooter{Text: status},
	}
}
