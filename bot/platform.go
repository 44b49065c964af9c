package bot

import (
	"github.com/bwmarrin/discordgo"
)

// Platform adapts a gateway session to the narrow interfaces the ticket
// lifecycle and the dispatcher depend on.
type Platform struct {
	s *discordgo.Session
}

func NewPlatform(s *discordgo.Session) *Platform {
	return &Platform{s: s}
}

func (p *Platform) CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	return p.s.GuildChannelCreateComplex(guildID, data)
}

func (p *Platform) DeleteChannel(channelID string) error {
	_, err := p.s.ChannelDelete(channelID)
	return err
}

func (p *Platform) SetPermission(channelID string, ow *discordgo.PermissionOverwrite) error {
	return p.s.ChannelPermissionSet(channelID, ow.ID, ow.Type, ow.Allow, ow.Deny)
}

func (p *Platform) DeletePermission(channelID, targetID string) error {
	return p.s.ChannelPermissionDelete(channelID, targetID)
}

func (p *Platform) SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	return p.s.ChannelMessageSendComplex(channelID, msg)
}

func (p *Platform) EditMessage(edit *discordgo.MessageEdit) error {
	_, err := p.s.ChannelMessageEditComplex(edit)
	return err
}

func (p *Platform) ChannelMessages(channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	return p.s.ChannelMessages(channelID, limit, beforeID, "", "")
}

func (p *Platform) Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return p.s.InteractionRespond(i, resp)
}

func (p *Platform) Followup(i *discordgo.Interaction, params *discordgo.WebhookParams) error {
	_, err := p.s.FollowupMessageCreate(i, true, params)
	return err
}

func (p *Platform) Ban(guildID, userID, reason string, deleteDays int) error {
	return p.s.GuildBanCreateWithReason(guildID, userID, reason, deleteDays)
}

func (p *Platform) Unban(guildID, userID string) error {
	return p.s.GuildBanDelete(guildID, userID)
}

// RegisterCommands replaces the application's commands in guildID, or
// globally when guildID is empty.
func (p *Platform) RegisterCommands(guildID string, cmds []*discordgo.ApplicationCommand) (int, error) {
	registered, err := p.s.ApplicationCommandBulkOverwrite(p.s.State.User.ID, guildID, cmds)
	if err != nil {
		return 0, err
	}
	return len(registered), nil
}
