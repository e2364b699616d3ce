package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/cinebot/pkg/bus"
	"github.com/sipeed/cinebot/pkg/component"
	"github.com/sipeed/cinebot/pkg/conversation"
	"github.com/sipeed/cinebot/pkg/logger"
	"github.com/sipeed/cinebot/pkg/movies"
)

// Deps are the services the command handlers drive.
type Deps struct {
	Clicks     *bus.ClickBus
	Components *component.Manager
	Chat       *conversation.Session
	Movies     *movies.Service
}

// Bot routes Discord interactions to the command handlers and publishes
// button clicks on the click bus.
type Bot struct {
	platform   Platform
	clicks     *bus.ClickBus
	components *component.Manager
	chat       *conversation.Session
	movies     *movies.Service
	guildID    string
	commands   map[string]command
}

type command struct {
	// ephemeral decides the visibility of the deferred reply.
	ephemeral func(options) bool
	run       func(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) error
}

// Option configures a Bot.
type Option func(*Bot)

// WithGuild registers the commands to one guild instead of globally.
func WithGuild(guildID string) Option {
	return func(b *Bot) { b.guildID = guildID }
}

func New(platform Platform, deps Deps, opts ...Option) *Bot {
	b := &Bot{
		platform:   platform,
		clicks:     deps.Clicks,
		components: deps.Components,
		chat:       deps.Chat,
		movies:     deps.Movies,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.commands = map[string]command{
		commandChat: {
			ephemeral: func(o options) bool { return o.Bool("ephemeral") },
			run:       b.handleChat,
		},
		commandMovies: {
			ephemeral: func(options) bool { return true },
			run:       b.handleMovies,
		},
	}
	return b
}

// Run opens the gateway, registers the commands once ready and serves
// interactions until ctx is done.
func (b *Bot) Run(ctx context.Context, s *discordgo.Session) error {
	removeReady := s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		appID := r.User.ID
		if r.Application != nil && r.Application.ID != "" {
			appID = r.Application.ID
		}
		logger.InfoCF("discord", "Connected", map[string]interface{}{
			"user":   r.User.Username,
			"guilds": len(r.Guilds),
		})
		if _, err := s.ApplicationCommandBulkOverwrite(appID, b.guildID, Commands(), discordgo.WithContext(ctx)); err != nil {
			logger.ErrorCF("discord", "Failed to register commands", map[string]interface{}{
				"guild_id": b.guildID,
				"error":    err.Error(),
			})
			return
		}
		logger.InfoCF("discord", "Registered commands", map[string]interface{}{
			"guild_id": b.guildID,
			"count":    len(Commands()),
		})
	})
	defer removeReady()

	removeInteraction := s.AddHandler(func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.HandleInteraction(ctx, i.Interaction)
	})
	defer removeInteraction()

	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	<-ctx.Done()
	logger.InfoC("discord", "Closing gateway")
	return s.Close()
}

// HandleInteraction dispatches one interaction. Commands are answered here;
// button clicks go to the collectors through the click bus.
func (b *Bot) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(ctx, i)
	case discordgo.InteractionMessageComponent:
		b.publishClick(i)
	}
}

func (b *Bot) publishClick(i *discordgo.Interaction) {
	if i.Message == nil || b.clicks == nil {
		return
	}
	event := bus.ClickEvent{
		ChannelID: i.ChannelID,
		MessageID: i.Message.ID,
		CustomID:  i.MessageComponentData().CustomID,
		GuildID:   i.GuildID,
		Acknowledge: func(ctx context.Context) error {
			return b.platform.InteractionRespond(i, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseDeferredMessageUpdate,
			}, discordgo.WithContext(ctx))
		},
	}
	if u := interactionUser(i); u != nil {
		event.UserID = u.ID
	}
	delivered := b.clicks.Publish(event)
	logger.DebugCF("discord", "Button clicked", map[string]interface{}{
		"message_id":  event.MessageID,
		"custom_id":   event.CustomID,
		"subscribers": delivered,
	})
}

func (b *Bot) handleCommand(ctx context.Context, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	cmd, ok := b.commands[data.Name]
	if !ok {
		logger.WarnCF("discord", "Unknown command", map[string]interface{}{"command": data.Name})
		return
	}

	ephemeral := cmd.ephemeral(newOptions(data.Options))
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := b.platform.InteractionRespond(i, resp, discordgo.WithContext(ctx)); err != nil {
		logger.ErrorCF("discord", "Failed to defer reply", map[string]interface{}{
			"command": data.Name,
			"error":   err.Error(),
		})
		return
	}

	if err := cmd.run(ctx, i, data); err != nil {
		fields := map[string]interface{}{
			"command":  data.Name,
			"guild_id": i.GuildID,
			"error":    err.Error(),
		}
		if u := interactionUser(i); u != nil {
			fields["user_id"] = u.ID
		}
		logger.WarnCF("discord", "Command failed", fields)
		if editErr := b.editContent(ctx, i, UserMessage(err)); editErr != nil {
			logger.ErrorCF("discord", "Failed to report command error", map[string]interface{}{
				"command": data.Name,
				"error":   editErr.Error(),
			})
		}
	}
}

// ---------------------------------------------------------------------------
// Reply helpers
// ---------------------------------------------------------------------------

func (b *Bot) editContent(ctx context.Context, i *discordgo.Interaction, content string) error {
	_, err := b.platform.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content}, discordgo.WithContext(ctx))
	return err
}

func followUpFlags(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// replyChunks edits the deferred reply with the first chunk of content and
// sends the rest as follow-ups.
func (b *Bot) replyChunks(ctx context.Context, i *discordgo.Interaction, content string, ephemeral bool) error {
	chunks := ChunkContent(content, MaxMessageLength)
	if len(chunks) == 0 {
		chunks = []string{conversation.FallbackReply}
	}
	if err := b.editContent(ctx, i, chunks[0]); err != nil {
		return err
	}
	for _, chunk := range chunks[1:] {
		if _, err := b.platform.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
			Content: chunk,
			Flags:   followUpFlags(ephemeral),
		}, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}

// replyEmbeds edits the deferred reply with the first batch of embeds and
// sends the rest as follow-ups.
func (b *Bot) replyEmbeds(ctx context.Context, i *discordgo.Interaction, embeds []*discordgo.MessageEmbed, ephemeral bool) error {
	batches := chunkEmbeds(embeds, MaxEmbedsPerMessage)
	if len(batches) == 0 {
		return b.editContent(ctx, i, string(movies.ErrNoMatches))
	}
	first := batches[0]
	if _, err := b.platform.InteractionResponseEdit(i, &discordgo.WebhookEdit{Embeds: &first}, discordgo.WithContext(ctx)); err != nil {
		return err
	}
	for _, batch := range batches[1:] {
		if _, err := b.platform.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
			Embeds: batch,
			Flags:  followUpFlags(ephemeral),
		}, discordgo.WithContext(ctx)); err != nil {
			return err
		}
	}
	return nil
}
