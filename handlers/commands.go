package handlers

import (
	"context"
	"strconv"

	"storefront-bot/lang"
	"storefront-bot/permissions"

	"github.com/bwmarrin/discordgo"
)

var adminPerm int64 = discordgo.PermissionAdministrator

func (d *Dispatcher) commands() []*Command {
	cmds := make([]*Command, 0)
	cmds = append(cmds, ticketCommands(d)...)
	cmds = append(cmds, settingsCommands(d)...)
	cmds = append(cmds, moderationCommands(d)...)
	cmds = append(cmds, &Command{
		Definition: &discordgo.ApplicationCommand{
			Name:        "sync",
			Description: "Re-register the bot's slash commands",
		},
		Requirement: permissions.Requirement{OnlyWhitelisted: true},
		Handler:     d.handleSync,
	})
	return cmds
}

func (d *Dispatcher) handleSync(ctx context.Context, r *Request) error {
	d.deferReply(r, true)
	n, err := d.platform.RegisterCommands(d.opts.CommandGuildID, d.registry.Definitions())
	if err != nil {
		return err
	}
	d.reply(r, lang.T("sync_done", "count", strconv.Itoa(n)), true)
	return nil
}

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(r *Request) options {
	return subOptMap(r.ApplicationCommandData().Options)
}

func subOptMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options)
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

// subcommand returns the invoked subcommand and its options.
func subcommand(r *Request) (string, options) {
	opts := r.ApplicationCommandData().Options
	if len(opts) == 0 || opts[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", nil
	}
	return opts[0].Name, subOptMap(opts[0].Options)
}

func optStr(m options, key, def string) string {
	if o, ok := m[key]; ok {
		return o.StringValue()
	}
	return def
}

func optInt(m options, key string, def int64) int64 {
	if o, ok := m[key]; ok {
		return o.IntValue()
	}
	return def
}

// focused returns the option the user is typing into during autocomplete.
func focused(opts []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range opts {
		if o.Focused {
			return o
		}
		if f := focused(o.Options); f != nil {
			return f
		}
	}
	return nil
}
