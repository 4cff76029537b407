package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"vanilla-reaper/internal/activity"
	"vanilla-reaper/internal/audit"
	"vanilla-reaper/internal/chance"
	"vanilla-reaper/internal/config"
	"vanilla-reaper/internal/moderation"
	"vanilla-reaper/internal/phrases"
	"vanilla-reaper/internal/state"
	"vanilla-reaper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *state.Store
	tracker  *activity.Tracker
	mod      *moderation.Engine
	roulette *chance.Engine
	audit    *audit.Logger
	session  *discordgo.Session
	watchdog *activity.Watchdog

	// last channel seen per guild, so silence nudges land somewhere
	// sensible
	nudgeMu       sync.Mutex
	nudgeChannels map[string]string
}

func New(cfg config.Config, logger *zap.Logger, store *state.Store, tracker *activity.Tracker, auditLogger *audit.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:           cfg,
		logger:        logger,
		store:         store,
		tracker:       tracker,
		audit:         auditLogger,
		session:       session,
		nudgeChannels: make(map[string]string),
	}

	if cfg.Silence.Enabled {
		b.watchdog = activity.NewWatchdog(
			store,
			time.Duration(cfg.Silence.ThresholdSeconds)*time.Second,
			time.Duration(cfg.Silence.CheckSeconds)*time.Second,
			b.nudgeChat,
			logger,
		)
	}

	return b, nil
}

// Platform returns the moderation platform backed by this bot's session.
func (b *Bot) Platform() moderation.Platform {
	return &discordPlatform{session: b.session}
}

// AttachEngines wires the moderation and roulette engines. The engines
// depend on Platform, so they are built after the bot and attached
// before Start.
func (b *Bot) AttachEngines(mod *moderation.Engine, roulette *chance.Engine) {
	b.mod = mod
	b.roulette = roulette
}

func (b *Bot) Start() error {
	// system-initiated expiries have no command response, so announce them
	b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
		if entry.ActorID == "" && entry.Event == "mute_expired" {
			b.sendToGuild(entry.ChatID, mention(entry.TargetID)+" is no longer muted. Use the voice wisely.")
		}
	})

	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	if b.watchdog != nil {
		b.watchdog.Start()
	}

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.watchdog != nil {
		b.watchdog.Stop()
	}
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	b.tracker.RecordMessage(msg.GuildID, msg.Author.ID)

	b.nudgeMu.Lock()
	b.nudgeChannels[msg.GuildID] = msg.ChannelID
	b.nudgeMu.Unlock()

	if b.mentionsBot(session, msg) {
		_, _ = session.ChannelMessageSend(msg.ChannelID, phrases.Reply())
	}
}

func (b *Bot) mentionsBot(session *discordgo.Session, msg *discordgo.MessageCreate) bool {
	if session.State == nil || session.State.User == nil {
		return false
	}
	botID := session.State.User.ID
	for _, user := range msg.Mentions {
		if user != nil && user.ID == botID {
			return true
		}
	}
	name := strings.ToLower(session.State.User.Username)
	return name != "" && strings.Contains(strings.ToLower(msg.Content), name)
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	b.tracker.RecordMembership(event.GuildID, event.User.ID, true)
	b.sendToGuild(event.GuildID, phrases.Greeting())
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	b.tracker.RecordMembership(event.GuildID, event.User.ID, false)
	b.sendToGuild(event.GuildID, phrases.Farewell())
}

func (b *Bot) nudgeChat(guildID string) {
	b.sendToGuild(guildID, phrases.Nudge())
}

func (b *Bot) sendToGuild(guildID, content string) {
	b.nudgeMu.Lock()
	channelID := b.nudgeChannels[guildID]
	b.nudgeMu.Unlock()
	if channelID == "" {
		channelID = b.systemChannel(guildID)
	}
	if channelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		b.logger.Warn("send failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (b *Bot) systemChannel(guildID string) string {
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		guild, _ = b.session.Guild(guildID)
	}
	if guild == nil {
		return ""
	}
	return guild.SystemChannelID
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}
