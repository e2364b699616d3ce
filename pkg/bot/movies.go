package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/cinebot/pkg/component"
	"github.com/sipeed/cinebot/pkg/logger"
	"github.com/sipeed/cinebot/pkg/movies"
)

const (
	contentCreated        = "Movie created!"
	contentCreatedNoData  = "Movie created, but additional data could not be fetched for the title"
	contentCreatedDeleted = "Movie was created, but then deleted."
)

func (b *Bot) handleMovies(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) error {
	if b.movies == nil {
		return ErrDisabledCommand
	}
	if i.GuildID == "" {
		return ErrGuildOnly
	}
	if !b.movies.LookupsEnabled() {
		logger.DebugC("discord", "OMDb API is not configured")
	}

	name, opts := subcommand(data)
	switch name {
	case "create", "edit":
		return b.handleUpsert(ctx, i, opts)
	case "list":
		return b.handleList(ctx, i, opts)
	case "pick":
		return b.handlePick(ctx, i, opts)
	case "delete":
		return b.handleDelete(ctx, i, opts)
	default:
		return ErrUnknownCommand
	}
}

func (b *Bot) handleUpsert(ctx context.Context, i *discordgo.Interaction, opts options) error {
	res, err := b.movies.Upsert(ctx, movies.UpsertInput{
		GuildID:  i.GuildID,
		Title:    opts.String("title"),
		IMDbID:   opts.String("imdb_id"),
		Favorite: opts.Bool("favorite"),
	})
	if err != nil {
		return err
	}

	content := contentCreated
	if !res.Enriched {
		content = contentCreatedNoData
	}
	embeds := []*discordgo.MessageEmbed{Embed(movies.RenderCard(res.Movie))}
	buttons := deleteButtonRow()
	msg, err := b.platform.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content:    &content,
		Embeds:     &embeds,
		Components: &buttons,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}

	if b.components == nil || msg == nil {
		return nil
	}
	movieID := res.Movie.ID()
	b.components.Listen(ctx, component.NewInteractionReply(i, msg), component.Handlers{
		deleteButtonID: func(ctx context.Context) error {
			return b.movies.Delete(ctx, movieID)
		},
	}, component.WithCleanup(func(ctx context.Context) error {
		deleted := contentCreatedDeleted
		noEmbeds := []*discordgo.MessageEmbed{}
		noComponents := []discordgo.MessageComponent{}
		_, err := b.platform.InteractionResponseEdit(i, &discordgo.WebhookEdit{
			Content:    &deleted,
			Embeds:     &noEmbeds,
			Components: &noComponents,
		}, discordgo.WithContext(ctx))
		return err
	}))
	return nil
}

func (b *Bot) handleList(ctx context.Context, i *discordgo.Interaction, opts options) error {
	list, err := b.movies.List(ctx, i.GuildID, parseFilter(opts))
	if err != nil {
		return err
	}
	return b.replyEmbeds(ctx, i, movieEmbeds(list), true)
}

func (b *Bot) handlePick(ctx context.Context, i *discordgo.Interaction, opts options) error {
	m, err := b.movies.Pick(ctx, i.GuildID, parseFilter(opts))
	if err != nil {
		return err
	}
	return b.replyEmbeds(ctx, i, movieEmbeds([]*movies.Movie{m}), true)
}

func (b *Bot) handleDelete(ctx context.Context, i *discordgo.Interaction, opts options) error {
	title := opts.String("title")
	if title == "" {
		return movies.ErrTitleRequired
	}
	m, err := b.movies.DeleteByTitle(ctx, i.GuildID, title)
	if err != nil {
		return err
	}
	return b.editContent(ctx, i, fmt.Sprintf("Deleted **%s**.", m.Title))
}
