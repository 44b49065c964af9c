package handlers

import (
	"context"
	"fmt"
	"time"

	"storefront-bot/permissions"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc runs one slash command.
type HandlerFunc func(ctx context.Context, r *Request) error

// AutocompleteFunc returns suggestions for the focused option.
type AutocompleteFunc func(ctx context.Context, r *Request) []*discordgo.ApplicationCommandOptionChoice

// Command describes one slash command: how it registers with the platform
// and how the dispatcher gates and runs it.
type Command struct {
	Definition   *discordgo.ApplicationCommand
	Requirement  permissions.Requirement
	Cooldown     time.Duration
	Handler      HandlerFunc
	Autocomplete AutocompleteFunc
}

func (c *Command) Name() string { return c.Definition.Name }

type Registry struct {
	byName map[string]*Command
	order  []*Command
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Add registers cmds. Names must be unique.
func (r *Registry) Add(cmds ...*Command) error {
	for _, c := range cmds {
		if c.Definition == nil || c.Definition.Name == "" {
			return fmt.Errorf("command without a name")
		}
		if c.Handler == nil {
			return fmt.Errorf("command %q has no handler", c.Name())
		}
		if _, dup := r.byName[c.Name()]; dup {
			return fmt.Errorf("command %q registered twice", c.Name())
		}
		r.byName[c.Name()] = c
		r.order = append(r.order, c)
	}
	return nil
}

func (r *Registry) Get(name string) (*Command, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Definitions returns every command descriptor in registration order, ready
// for bulk registration.
func (r *Registry) Definitions() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, c.Definition)
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
