package bot

import (
	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/cinebot/pkg/component"
)

// Platform is the slice of the Discord REST API the command handlers use.
// *discordgo.Session satisfies it.
type Platform interface {
	component.Editor
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// NewSession builds a gateway session for token. The session only asks for
// the guild intent; interactions arrive regardless of intents.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	return s, nil
}

// interactionUser returns the invoking user for guild and DM interactions.
func interactionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
