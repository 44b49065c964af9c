package tickets

import "github.com/bwmarrin/discordgo"

// Platform is the slice of the messaging API the ticket lifecycle drives.
type Platform interface {
	CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)
	DeleteChannel(channelID string) error
	SetPermission(channelID string, ow *discordgo.PermissionOverwrite) error
	DeletePermission(channelID, targetID string) error
	SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
	EditMessage(edit *discordgo.MessageEdit) error
	ChannelMessages(channelID string, limit int, beforeID string) ([]*discordgo.Message, error)
}
