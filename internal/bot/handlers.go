package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"vanilla-reaper/internal/chance"
	"vanilla-reaper/internal/moderation"
	"vanilla-reaper/internal/phrases"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" {
		b.respond(session, interaction, "Commands only work inside a chat.", true)
		return
	}

	ctx := context.Background()
	actorID := invokerID(interaction)
	if actorID == "" {
		b.respond(session, interaction, "Could not tell who you are. Suspicious.", true)
		return
	}

	data := interaction.ApplicationCommandData()
	chatID := interaction.GuildID

	switch data.Name {
	case "warn":
		b.handleWarn(ctx, session, interaction, actorID, chatID, data.Options)
	case "warns":
		b.handleWarns(session, interaction, actorID, chatID, data.Options)
	case "mute":
		b.handleMute(ctx, session, interaction, actorID, chatID, data.Options)
	case "unmute":
		b.handleUnmute(ctx, session, interaction, actorID, chatID, data.Options)
	case "kick":
		b.handleKick(ctx, session, interaction, actorID, chatID, data.Options)
	case "ban":
		b.handleBan(ctx, session, interaction, actorID, chatID, data.Options)
	case "unban":
		b.handleUnban(ctx, session, interaction, actorID, chatID, data.Options)
	case "addadmin":
		b.handleGrantAdmin(ctx, session, interaction, actorID, chatID, data.Options)
	case "removeadmin":
		b.handleRevokeAdmin(ctx, session, interaction, actorID, chatID, data.Options)
	case "setowner":
		b.handleSetOwner(ctx, session, interaction, actorID, data.Options)
	case "admins":
		b.handleAdmins(session, interaction, chatID)
	case "profile":
		b.handleProfile(session, interaction, actorID, chatID, data.Options)
	case "sacrifice":
		b.handleSacrifice(ctx, session, interaction, actorID, chatID)
	case "roast":
		b.handleRoast(session, interaction, actorID, data.Options)
	case "vanilla":
		b.respond(session, interaction, phrases.Vanilla(), false)
	case "duel":
		b.handleDuel(session, interaction, actorID, data.Options)
	case "roulette":
		b.handleRoulette(ctx, session, interaction, actorID, chatID, data.Options)
	case "search":
		b.respond(session, interaction, phrases.Search(), false)
	}
}

func (b *Bot) handleWarn(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	target := optionUser(session, options, "user")
	if target == nil {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	result, err := b.mod.Warn(ctx, actorID, target.ID, chatID)
	if err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	msg := fmt.Sprintf("%s received warning %d/3.", mention(target.ID), result.Count)
	if result.Banned {
		msg += fmt.Sprintf(" %s is banned after 3 warnings.", mention(target.ID))
	}
	b.respond(session, interaction, msg, false)
}

func (b *Bot) handleWarns(session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	targetID := actorID
	if target := optionUser(session, options, "user"); target != nil {
		targetID = target.ID
	}
	count := b.mod.Profile(chatID, targetID).WarningCount
	b.respond(session, interaction, fmt.Sprintf("%s has %d warning(s).", mention(targetID), count), false)
}

func (b *Bot) handleMute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	target := optionUser(session, options, "user")
	if target == nil {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	seconds := int64(b.cfg.Mute.DefaultSeconds)
	if value, ok := optionInt(options, "seconds"); ok && value > 0 {
		seconds = value
	}
	duration := time.Duration(seconds) * time.Second
	if _, err := b.mod.Mute(ctx, actorID, target.ID, chatID, duration); err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("%s is muted for %d seconds.", mention(target.ID), seconds), false)
}

func (b *Bot) handleUnmute(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	target := optionUser(session, options, "user")
	if target == nil {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	if err := b.mod.Unmute(ctx, actorID, target.ID, chatID); err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("%s can speak again.", mention(target.ID)), false)
}

func (b *Bot) handleKick(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	target := optionUser(session, options, "user")
	if target == nil {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	if err := b.mod.Kick(ctx, actorID, target.ID, chatID); err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("%s was shown the door.", mention(target.ID)), false)
}

func (b *Bot) handleBan(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	target := optionUser(session, options, "user")
	if target == nil {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	if err := b.mod.Ban(ctx, actorID, target.ID, chatID); err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("%s is banned.", mention(target.ID)), false)
}

func (b *Bot) handleUnban(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	targetID, ok := optionString(options, "user_id")
	if !ok || strings.TrimSpace(targetID) == "" {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	targetID = strings.TrimSpace(targetID)
	if err := b.mod.Unban(ctx, actorID, targetID, chatID); err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("User %s is unbanned.", targetID), false)
}

func (b *Bot) handleGrantAdmin(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	target := optionUser(session, options, "user")
	if target == nil {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	if err := b.mod.GrantAdmin(ctx, actorID, target.ID, chatID); err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("%s is now an admin.", mention(target.ID)), false)
}

func (b *Bot) handleRevokeAdmin(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	target := optionUser(session, options, "user")
	if target == nil {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	if err := b.mod.RevokeAdmin(ctx, actorID, target.ID, chatID); err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("%s is no longer an admin.", mention(target.ID)), false)
}

func (b *Bot) handleSetOwner(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	target := optionUser(session, options, "user")
	if target == nil {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	if err := b.mod.TransferOwnership(ctx, actorID, target.ID); err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("%s now owns me. Condolences.", mention(target.ID)), false)
}

func (b *Bot) handleAdmins(session *discordgo.Session, interaction *discordgo.InteractionCreate, chatID string) {
	lines := []string{"Owner: " + mention(b.mod.Owner())}
	admins := b.mod.Admins(chatID)
	if len(admins) == 0 {
		lines = append(lines, "Admins: none")
	} else {
		mentions := make([]string, 0, len(admins))
		for _, id := range admins {
			mentions = append(mentions, mention(id))
		}
		lines = append(lines, "Admins: "+strings.Join(mentions, ", "))
	}
	b.respond(session, interaction, strings.Join(lines, "\n"), false)
}

func (b *Bot) handleProfile(session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	targetID := actorID
	if target := optionUser(session, options, "user"); target != nil {
		targetID = target.ID
	}
	profile := b.mod.Profile(chatID, targetID)

	lines := []string{
		fmt.Sprintf("Profile of %s:", mention(targetID)),
		fmt.Sprintf("Warnings: %d", profile.WarningCount),
	}
	if profile.Muted {
		lines = append(lines, fmt.Sprintf("Muted for another %d seconds", int(profile.MuteRemaining.Seconds())))
	} else {
		lines = append(lines, "Muted: no")
	}
	if profile.IsVictim {
		lines = append(lines, "Victim of the day: yes")
	} else {
		lines = append(lines, "Victim of the day: no")
	}
	b.respond(session, interaction, strings.Join(lines, "\n"), false)
}

func (b *Bot) handleSacrifice(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string) {
	victimID, err := b.mod.PickVictim(ctx, actorID, chatID)
	if err != nil {
		b.respond(session, interaction, rejectionMessage(err), true)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("Victim of the day: %s.", mention(victimID)), false)
}

func (b *Bot) handleRoast(session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	targetID := actorID
	if target := optionUser(session, options, "user"); target != nil {
		targetID = target.ID
	}
	b.respond(session, interaction, fmt.Sprintf("%s - %s", mention(targetID), phrases.Roast()), false)
}

func (b *Bot) handleDuel(session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opponent := optionUser(session, options, "opponent")
	if opponent == nil {
		b.respond(session, interaction, "Could not resolve that user.", true)
		return
	}
	challengerID := actorID
	if challenger := optionUser(session, options, "challenger"); challenger != nil {
		challengerID = challenger.ID
	}
	b.respond(session, interaction, fmt.Sprintf("Duel! The winner is %s.", mention(duelWinner(challengerID, opponent.ID))), false)
}

var duelPick = rand.Intn

func duelWinner(challengerID, opponentID string) string {
	if duelPick(2) == 0 {
		return challengerID
	}
	return opponentID
}

func (b *Bot) handleRoulette(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, actorID, chatID string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	targetID := actorID
	if target := optionUser(session, options, "user"); target != nil {
		targetID = target.ID
	}

	result := b.roulette.Roll(ctx, targetID, chatID)
	switch result.Outcome {
	case chance.OutcomeNothing:
		b.respond(session, interaction, "The wheel spins... nothing. Luck is not for you.", false)
	case chance.OutcomeShortMute:
		b.respondMuteOutcome(session, interaction, targetID, int(chance.ShortMuteDuration.Seconds()), result.MuteErr)
	case chance.OutcomeLongMute:
		b.respondMuteOutcome(session, interaction, targetID, int(chance.LongMuteDuration.Seconds()), result.MuteErr)
	case chance.OutcomeRoast:
		b.respond(session, interaction, "The wheel demands a roast: "+phrases.Roast(), false)
	case chance.OutcomeHonor:
		b.respond(session, interaction, fmt.Sprintf("Honor is granted to %s, with a minute of silence.", mention(targetID)), false)
	case chance.OutcomeVictim:
		b.respond(session, interaction, fmt.Sprintf("Victim of the day: %s.", mention(targetID)), false)
	}
}

func (b *Bot) respondMuteOutcome(session *discordgo.Session, interaction *discordgo.InteractionCreate, targetID string, seconds int, muteErr error) {
	if muteErr != nil {
		b.respond(session, interaction, "The wheel chose a mute, but "+rejectionMessage(muteErr), false)
		return
	}
	b.respond(session, interaction, fmt.Sprintf("The wheel chose a %d second mute for %s.", seconds, mention(targetID)), false)
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, moderation.ErrNotOwner):
		return "Only the owner can do that."
	case errors.Is(err, moderation.ErrNotAdmin):
		return "Only admins can do that."
	case errors.Is(err, moderation.ErrTargetOwner):
		return "The owner is untouchable."
	case errors.Is(err, moderation.ErrPlatformDenied):
		return "I lack the permissions for that here. Fix my role and try again."
	case errors.Is(err, moderation.ErrEmptyPool):
		return "No recently active users to choose from."
	case errors.Is(err, moderation.ErrBadDuration):
		return "That duration makes no sense."
	default:
		return "That failed. The platform refused; try again later."
	}
}

func invokerID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func optionUser(session *discordgo.Session, options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.User {
	for _, option := range options {
		if option.Name == name && option.Type == discordgo.ApplicationCommandOptionUser {
			return option.UserValue(session)
		}
	}
	return nil
}

func optionInt(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (int64, bool) {
	for _, option := range options {
		if option.Name == name && option.Type == discordgo.ApplicationCommandOptionInteger {
			return option.IntValue(), true
		}
	}
	return 0, false
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	for _, option := range options {
		if option.Name == name && option.Type == discordgo.ApplicationCommandOptionString {
			return option.StringValue(), true
		}
	}
	return "", false
}
