package config

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"storefront-bot/storage"

	"go.uber.org/zap"
)

// GuildConfig is the per-guild set of role and channel IDs. A guild counts as
// configured once AdminRoleID is present.
type GuildConfig struct {
	GuildID string `json:"guild_id"`

	AdminRoleID      string `json:"admin_role_id,omitempty"`
	StaffRoleID      string `json:"staff_role_id,omitempty"`
	CustomerRoleID   string `json:"customer_role_id,omitempty"`
	TrialAdminRoleID string `json:"trial_admin_role_id,omitempty"`

	LogChannelID           string `json:"log_channel_id,omitempty"`
	TranscriptChannelID    string `json:"transcript_channel_id,omitempty"`
	RatingChannelID        string `json:"rating_channel_id,omitempty"`
	SpamChannelID          string `json:"spam_channel_id,omitempty"`
	BackupChannelID        string `json:"backup_channel_id,omitempty"`
	AutomodChannelID       string `json:"automod_channel_id,omitempty"`
	WeeklyReportChannelID  string `json:"weekly_report_channel_id,omitempty"`
	AcceptChannelID        string `json:"accept_channel_id,omitempty"`
	StaffRatingChannelID   string `json:"staff_rating_channel_id,omitempty"`
	StaffFeedbackChannelID string `json:"staff_feedback_channel_id,omitempty"`
	TicketCategoryID       string `json:"ticket_category_id,omitempty"`
}

// Configured reports whether the setup flow has run for the guild.
func (g GuildConfig) Configured() bool {
	return g.AdminRoleID != ""
}

func (g *GuildConfig) field(key string) (*string, bool) {
	switch key {
	case "admin_role_id":
		return &g.AdminRoleID, true
	case "staff_role_id":
		return &g.StaffRoleID, true
	case "customer_role_id":
		return &g.CustomerRoleID, true
	case "trial_admin_role_id":
		return &g.TrialAdminRoleID, true
	case "log_channel_id":
		return &g.LogChannelID, true
	case "transcript_channel_id":
		return &g.TranscriptChannelID, true
	case "rating_channel_id":
		return &g.RatingChannelID, true
	case "spam_channel_id":
		return &g.SpamChannelID, true
	case "backup_channel_id":
		return &g.BackupChannelID, true
	case "automod_channel_id":
		return &g.AutomodChannelID, true
	case "weekly_report_channel_id":
		return &g.WeeklyReportChannelID, true
	case "accept_channel_id":
		return &g.AcceptChannelID, true
	case "staff_rating_channel_id":
		return &g.StaffRatingChannelID, true
	case "staff_feedback_channel_id":
		return &g.StaffFeedbackChannelID, true
	case "ticket_category_id":
		return &g.TicketCategoryID, true
	}
	return nil, false
}

// Get returns the value stored under key, or "" when unset or unknown.
func (g GuildConfig) Get(key string) string {
	if p, ok := g.field(key); ok {
		return *p
	}
	return ""
}

// Keys lists every settable key in a stable order.
func Keys() []string {
	keys := []string{
		"admin_role_id", "staff_role_id", "customer_role_id", "trial_admin_role_id",
		"log_channel_id", "transcript_channel_id", "rating_channel_id", "spam_channel_id",
		"backup_channel_id", "automod_channel_id", "weekly_report_channel_id", "accept_channel_id",
		"staff_rating_channel_id", "staff_feedback_channel_id", "ticket_category_id",
	}
	sort.Strings(keys)
	return keys
}

var ErrUnknownKey = errors.New("unknown guild config key")

// Store is the durable per-guild configuration. Reads are served from an
// in-memory cache that is filled lazily from the KV backend.
type Store struct {
	kv     storage.KV
	logger *zap.Logger

	mu     sync.RWMutex
	guilds map[string]GuildConfig
}

func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger.Named("guildconfig"),
		guilds: make(map[string]GuildConfig),
	}
}

func guildKey(guildID string) string {
	return "guilds/" + guildID
}

// Get returns the guild's configuration. A guild with nothing stored yields
// an empty, unconfigured value. When the backend is unreachable the empty
// value is returned uncached so the next call retries.
func (s *Store) Get(ctx context.Context, guildID string) GuildConfig {
	gc, err := s.load(ctx, guildID)
	if err != nil {
		s.logger.Warn("loading guild config failed, using empty config", zap.String("guild_id", guildID), zap.Error(err))
		return GuildConfig{GuildID: guildID}
	}
	return gc
}

func (s *Store) load(ctx context.Context, guildID string) (GuildConfig, error) {
	s.mu.RLock()
	gc, ok := s.guilds[guildID]
	s.mu.RUnlock()
	if ok {
		return gc, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gc, ok = s.guilds[guildID]; ok {
		return gc, nil
	}

	gc = GuildConfig{GuildID: guildID}
	err := s.kv.Load(ctx, guildKey(guildID), &gc)
	switch {
	case err == nil, errors.Is(err, storage.ErrNotFound):
	case errors.Is(err, storage.ErrCorrupt):
		s.logger.Warn("guild config corrupt, using empty config", zap.String("guild_id", guildID), zap.Error(err))
		gc = GuildConfig{}
	default:
		return GuildConfig{}, fmt.Errorf("load guild config: %w", err)
	}
	gc.GuildID = guildID
	s.guilds[guildID] = gc
	return gc, nil
}

// Set stores value under key and persists the guild document.
func (s *Store) Set(ctx context.Context, guildID, key, value string) error {
	return s.update(ctx, guildID, key, value)
}

// Remove clears key and persists the guild document.
func (s *Store) Remove(ctx context.Context, guildID, key string) error {
	return s.update(ctx, guildID, key, "")
}

// Put replaces the whole guild document, as the setup flow does.
func (s *Store) Put(ctx context.Context, gc GuildConfig) error {
	if err := s.kv.Save(ctx, guildKey(gc.GuildID), gc); err != nil {
		return fmt.Errorf("save guild config: %w", err)
	}
	s.mu.Lock()
	s.guilds[gc.GuildID] = gc
	s.mu.Unlock()
	return nil
}

func (s *Store) update(ctx context.Context, guildID, key, value string) error {
	gc, err := s.load(ctx, guildID)
	if err != nil {
		return err
	}
	p, ok := gc.field(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	*p = value
	return s.Put(ctx, gc)
}
