package tickets

import "github.com/bwmarrin/discordgo"

const (
	permRead   = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
	permWrite  = discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles
	permStaff  = permRead | permWrite | discordgo.PermissionManageMessages
	permAdmin  = permStaff | discordgo.PermissionManageChannels
	permHidden = discordgo.PermissionViewChannel
)

// Access describes who gets which capability tier in a ticket channel.
type Access struct {
	GuildID     string
	CreatorID   string
	StaffRoleID string
	AdminRoleID string
}

// Overwrites builds the full overwrite set for a ticket channel. When
// creatorCanSend is false the creator keeps read access but loses send and
// attach; button interactions still work.
func Overwrites(a Access, creatorCanSend bool) []*discordgo.PermissionOverwrite {
	out := []*discordgo.PermissionOverwrite{
		{ID: a.GuildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: permHidden},
		creatorOverwrite(a.CreatorID, creatorCanSend),
	}
	if a.StaffRoleID != "" {
		out = append(out, &discordgo.PermissionOverwrite{
			ID: a.StaffRoleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: permStaff,
		})
	}
	if a.AdminRoleID != "" && a.AdminRoleID != a.StaffRoleID {
		out = append(out, &discordgo.PermissionOverwrite{
			ID: a.AdminRoleID, Type: discordgo.PermissionOverwriteTypeRole, Allow: permAdmin,
		})
	}
	return out
}

func creatorOverwrite(userID string, canSend bool) *discordgo.PermissionOverwrite {
	ow := &discordgo.PermissionOverwrite{ID: userID, Type: discordgo.PermissionOverwriteTypeMember, Allow: permRead}
	if canSend {
		ow.Allow |= permWrite
	} else {
		ow.Deny = permWrite
	}
	return ow
}

// CreatorOverwrite picks the creator's entry out of the full set, so lock and
// unlock apply exactly what creation would have.
func CreatorOverwrite(a Access, canSend bool) *discordgo.PermissionOverwrite {
	for _, ow := range Overwrites(a, canSend) {
		if ow.Type == discordgo.PermissionOverwriteTypeMember && ow.ID == a.CreatorID {
			return ow
		}
	}
	return creatorOverwrite(a.CreatorID, canSend)
}

// GuestOverwrite lets an extra member take part in a ticket.
func GuestOverwrite(userID string) *discordgo.PermissionOverwrite {
	return creatorOverwrite(userID, true)
}
