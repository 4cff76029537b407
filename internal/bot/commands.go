package bot

import "github.com/bwmarrin/discordgo"

func (b *Bot) registerCommands() error {
	userOpt := func(name, desc string, required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        name,
			Description: desc,
			Required:    required,
		}
	}

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "warn",
			Description: "Warn a user (3 warnings = ban)",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "who to warn", true)},
		},
		{
			Name:        "warns",
			Description: "Show a user's warning count",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "whose warnings", false)},
		},
		{
			Name:        "mute",
			Description: "Mute a user for a while",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("user", "who to mute", true),
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "seconds",
					Description: "mute duration in seconds",
					Required:    false,
				},
			},
		},
		{
			Name:        "unmute",
			Description: "Lift a user's mute",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "who to unmute", true)},
		},
		{
			Name:        "kick",
			Description: "Kick a user out",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "who to kick", true)},
		},
		{
			Name:        "ban",
			Description: "Ban a user",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "who to ban", true)},
		},
		{
			Name:        "unban",
			Description: "Unban a user by id",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "user_id",
					Description: "id of the banned user",
					Required:    true,
				},
			},
		},
		{
			Name:        "addadmin",
			Description: "Grant bot admin in this chat (owner only)",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "who to promote", true)},
		},
		{
			Name:        "removeadmin",
			Description: "Revoke bot admin in this chat (owner only)",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "who to demote", true)},
		},
		{
			Name:        "setowner",
			Description: "Transfer bot ownership (owner only)",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "the new owner", true)},
		},
		{
			Name:        "admins",
			Description: "List the owner and chat admins",
		},
		{
			Name:        "profile",
			Description: "Warnings, mute status and victim flag for a user",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "whose profile", false)},
		},
		{
			Name:        "sacrifice",
			Description: "Pick a victim of the day (admin only)",
		},
		{
			Name:        "roast",
			Description: "Roast someone",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "who to roast", false)},
		},
		{
			Name:        "vanilla",
			Description: "A vanilla musing",
		},
		{
			Name:        "duel",
			Description: "Duel two users, fate picks the winner",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("opponent", "who you are dueling", true),
				userOpt("challenger", "who starts it (defaults to you)", false),
			},
		},
		{
			Name:        "roulette",
			Description: "Spin the wheel, take the consequences",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("user", "the wheel's target (defaults to you)", false)},
		},
		{
			Name:        "search",
			Description: "A sarcastic search",
		},
	}

	for _, command := range commands {
		if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", command); err != nil {
			return err
		}
	}
	return nil
}
