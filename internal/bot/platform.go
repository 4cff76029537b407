package bot

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vanilla-reaper/internal/moderation"

	"github.com/bwmarrin/discordgo"
)

// discordPlatform implements moderation.Platform on a discordgo session.
// Restriction is a member timeout; kick/ban go through the guild ban API.
type discordPlatform struct {
	session *discordgo.Session
}

func (p *discordPlatform) Restrict(ctx context.Context, chatID, userID string, until time.Time) error {
	_ = ctx
	return mapPlatformErr(p.session.GuildMemberTimeout(chatID, userID, &until))
}

func (p *discordPlatform) Unrestrict(ctx context.Context, chatID, userID string) error {
	_ = ctx
	return mapPlatformErr(p.session.GuildMemberTimeout(chatID, userID, nil))
}

func (p *discordPlatform) Ban(ctx context.Context, chatID, userID string) error {
	_ = ctx
	return mapPlatformErr(p.session.GuildBanCreateWithReason(chatID, userID, "moderation action", 0))
}

func (p *discordPlatform) Unban(ctx context.Context, chatID, userID string) error {
	_ = ctx
	return mapPlatformErr(p.session.GuildBanDelete(chatID, userID))
}

func (p *discordPlatform) CanRestrict(chatID string) bool {
	if p.session.State == nil || p.session.State.User == nil {
		return false
	}
	guild, err := p.session.State.Guild(chatID)
	if err != nil || guild == nil {
		guild, _ = p.session.Guild(chatID)
	}
	if guild == nil {
		return false
	}
	member, err := p.session.State.Member(chatID, p.session.State.User.ID)
	if err != nil || member == nil {
		member, _ = p.session.GuildMember(chatID, p.session.State.User.ID)
	}
	if member == nil {
		return false
	}

	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&discordgo.PermissionModerateMembers != 0 && perms&discordgo.PermissionBanMembers != 0
}

func mapPlatformErr(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return moderation.ErrPlatformDenied
	}
	return err
}
