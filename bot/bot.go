package bot

import (
	"sync/atomic"

	"storefront-bot/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	Session *discordgo.Session
	Config  *config.Config

	logger *zap.Logger
	ready  chan struct{}
	online atomic.Bool
}

func New(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent
	return &Bot{
		Session: s,
		Config:  cfg,
		logger:  logger.Named("gateway"),
		ready:   make(chan struct{}),
	}, nil
}

func (b *Bot) Start() error {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info("bot is online", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
		b.online.Store(true)
		select {
		case <-b.ready:
		default:
			close(b.ready)
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, _ *discordgo.Disconnect) {
		b.logger.Warn("gateway disconnected")
		b.online.Store(false)
	})
	b.Session.AddHandler(func(s *discordgo.Session, _ *discordgo.Resumed) {
		b.online.Store(true)
	})
	return b.Session.Open()
}

// Ready reports whether the gateway session is currently connected.
func (b *Bot) Ready() bool { return b.online.Load() }

func (b *Bot) Stop() {
	_ = b.Session.Close()
}

// RegisterCommands bulk-overwrites the application's commands in the
// configured guild, or globally when no guild is set.
func (b *Bot) RegisterCommands(cmds []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	<-b.ready

	appID := b.Session.State.User.ID
	guildID := b.Config.Discord.GuildID

	b.logger.Info("registering commands", zap.Int("count", len(cmds)), zap.String("app", appID), zap.String("guild", guildID))

	registered, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, cmds)
	if err != nil {
		return nil, err
	}

	b.logger.Info("registered slash commands", zap.Int("count", len(registered)))
	return registered, nil
}

func (b *Bot) CleanupCommands() error {
	<-b.ready
	appID := b.Session.State.User.ID
	guildID := b.Config.Discord.GuildID
	if _, err := b.Session.ApplicationCommandBulkOverwrite(appID, guildID, []*discordgo.ApplicationCommand{}); err != nil {
		return err
	}
	b.logger.Info("cleaned up all slash commands")
	return nil
}
