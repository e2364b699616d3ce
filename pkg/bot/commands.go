package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/cinebot/pkg/movies"
)

const (
	commandChat   = "chatgpt"
	commandMovies = "movies"
)

// Commands returns the application commands the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	guildOnly := false
	return []*discordgo.ApplicationCommand{
		{
			Name:        commandChat,
			Description: "Queries ChatGPT.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "The query (a question for ChatGPT).",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "ephemeral",
					Description: "Whether you want to show the answer to only you.",
				},
			},
		},
		{
			Name:         commandMovies,
			Description:  "Managing movie list",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				upsertSubcommand("create", "Adds a movie to the list."),
				upsertSubcommand("edit", "Updates a movie on the list."),
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Filters a list of movies.",
					Options:     filterOptions(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "pick",
					Description: "Picks movies based on given parameters",
					Options:     filterOptions(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "Removes a movie from the list.",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "title",
							Description: "Title of the movie",
							Required:    true,
						},
					},
				},
			},
		},
	}
}

func upsertSubcommand(name, description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionSubCommand,
		Name:        name,
		Description: description,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "title",
				Description: "Title of the movie",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "imdb_id",
				Description: "Part of the URL. Ex: tt8801880",
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "favorite",
				Description: "Whether this is favorited",
			},
		},
	}
}

func filterOptions() []*discordgo.ApplicationCommandOption {
	zero := 0.0
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "search_term",
			Description: "Part of the movie title",
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "genre",
			Description: "Picks movie based on genre",
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "actor",
			Description: "Picks movie based on actor chosen",
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "director",
			Description: "Person who directed the movie",
		},
		{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "is_favorite",
			Description: "Picks from list of favorited movies",
		},
		{
			Type:        discordgo.ApplicationCommandOptionNumber,
			Name:        "movie_length_max",
			Description: "Max length of the movie in minutes",
			MinValue:    &zero,
		},
		{
			Type:        discordgo.ApplicationCommandOptionNumber,
			Name:        "imdb_rating",
			Description: "Minimum IMDb rating of movie, out of 100",
			MinValue:    &zero,
			MaxValue:    100,
		},
	}
}

// ---------------------------------------------------------------------------
// Option parsing
// ---------------------------------------------------------------------------

// options indexes the values of one command or subcommand by name.
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func newOptions(list []*discordgo.ApplicationCommandInteractionDataOption) options {
	out := make(options, len(list))
	for _, o := range list {
		out[o.Name] = o
	}
	return out
}

func (o options) String(name string) string {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func (o options) Bool(name string) bool {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionBoolean {
		return opt.BoolValue()
	}
	return false
}

func (o options) Int(name string) int {
	opt, ok := o[name]
	if !ok {
		return 0
	}
	switch opt.Type {
	case discordgo.ApplicationCommandOptionNumber:
		return int(opt.FloatValue())
	case discordgo.ApplicationCommandOptionInteger:
		return int(opt.IntValue())
	}
	return 0
}

// subcommand splits the first subcommand off a command's options.
func subcommand(data discordgo.ApplicationCommandInteractionData) (string, options) {
	for _, o := range data.Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, newOptions(o.Options)
		}
	}
	return "", newOptions(data.Options)
}

func parseFilter(o options) movies.Filter {
	return movies.Filter{
		SearchTerm:    o.String("search_term"),
		Genre:         o.String("genre"),
		Actor:         o.String("actor"),
		Director:      o.String("director"),
		MaxLength:     o.Int("movie_length_max"),
		MinIMDbRating: o.Int("imdb_rating"),
		FavoriteOnly:  o.Bool("is_favorite"),
	}
}
