package permissions

import (
	"slices"

	"storefront-bot/config"
)

type Role string

const (
	RoleAny   Role = ""
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// Requirement is what a command declares about who may run it.
type Requirement struct {
	OnlyWhitelisted bool
	RequiredRole    Role
}

// Caller is the invoking member as seen in one guild.
type Caller struct {
	UserID  string
	RoleIDs []string
}

func (c Caller) HasRole(roleID string) bool {
	return roleID != "" && slices.Contains(c.RoleIDs, roleID)
}

// Tier is a caller's highest privilege in a guild.
type Tier int

const (
	TierMember Tier = iota
	TierStaff
	TierTrialAdmin
	TierAdmin
)

type Resolver struct {
	fallbackAdminRole string
	fallbackStaffRole string
	whitelist         map[string]struct{}
	syncCommand       string
}

func NewResolver(cfg config.PermissionsConfig) *Resolver {
	wl := make(map[string]struct{}, len(cfg.Whitelist))
	for _, id := range cfg.Whitelist {
		wl[id] = struct{}{}
	}
	sync := cfg.SyncCommand
	if sync == "" {
		sync = "sync"
	}
	return &Resolver{
		fallbackAdminRole: cfg.AdminRoleID,
		fallbackStaffRole: cfg.StaffRoleID,
		whitelist:         wl,
		syncCommand:       sync,
	}
}

func (r *Resolver) adminRole(gc config.GuildConfig) string {
	if gc.AdminRoleID != "" {
		return gc.AdminRoleID
	}
	return r.fallbackAdminRole
}

func (r *Resolver) staffRole(gc config.GuildConfig) string {
	if gc.StaffRoleID != "" {
		return gc.StaffRoleID
	}
	return r.fallbackStaffRole
}

// AdminRole and StaffRole resolve the effective role IDs for a guild.
func (r *Resolver) AdminRole(gc config.GuildConfig) string { return r.adminRole(gc) }
func (r *Resolver) StaffRole(gc config.GuildConfig) string { return r.staffRole(gc) }

func (r *Resolver) IsAdmin(c Caller, gc config.GuildConfig) bool {
	return c.HasRole(r.adminRole(gc))
}

// IsStaff is true for staff and for admins.
func (r *Resolver) IsStaff(c Caller, gc config.GuildConfig) bool {
	return r.IsAdmin(c, gc) || c.HasRole(r.staffRole(gc))
}

func (r *Resolver) Tier(c Caller, gc config.GuildConfig) Tier {
	switch {
	case r.IsAdmin(c, gc):
		return TierAdmin
	case c.HasRole(gc.TrialAdminRoleID):
		return TierTrialAdmin
	case c.HasRole(r.staffRole(gc)):
		return TierStaff
	}
	return TierMember
}

// IsAllowed decides whether caller may run the named command. The first
// matching rule wins: admin, then trial admin (sync only), then staff (only
// for commands that opt in), then the legacy user whitelist.
func (r *Resolver) IsAllowed(command string, req Requirement, c Caller, gc config.GuildConfig) bool {
	if !req.OnlyWhitelisted {
		return true
	}
	if r.IsAdmin(c, gc) {
		return true
	}
	if c.HasRole(gc.TrialAdminRoleID) {
		return command == r.syncCommand
	}
	if c.HasRole(r.staffRole(gc)) {
		return req.RequiredRole == RoleStaff
	}
	_, ok := r.whitelist[c.UserID]
	return ok
}
