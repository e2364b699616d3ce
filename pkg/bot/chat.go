package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/cinebot/pkg/conversation"
)

func (b *Bot) handleChat(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) error {
	if b.chat == nil {
		return conversation.ErrNotConfigured
	}
	opts := newOptions(data.Options)

	id := conversation.Identity{GuildID: i.GuildID}
	if u := interactionUser(i); u != nil {
		id.UserID = u.ID
	}

	reply, err := b.chat.Respond(ctx, id, opts.String("query"))
	if err != nil {
		return err
	}
	return b.replyChunks(ctx, i, reply, opts.Bool("ephemeral"))
}
