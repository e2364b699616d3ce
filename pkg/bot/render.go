package bot

import (
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/sipeed/cinebot/pkg/movies"
)

const (
	// MaxMessageLength is Discord's content limit per message.
	MaxMessageLength = 2000
	// MaxEmbedsPerMessage is Discord's embed limit per message.
	MaxEmbedsPerMessage = 10

	deleteButtonID = "delete"
)

// Embed converts a movie card to a Discord embed.
func Embed(card movies.Card) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: card.Title,
		URL:   card.URL,
	}
	for _, f := range card.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return e
}

func movieEmbeds(list []*movies.Movie) []*discordgo.MessageEmbed {
	cards := movies.RenderCards(list)
	out := make([]*discordgo.MessageEmbed, 0, len(cards))
	for _, c := range cards {
		out = append(out, Embed(c))
	}
	return out
}

func deleteButtonRow() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Delete",
					Style:    discordgo.DangerButton,
					CustomID: deleteButtonID,
				},
			},
		},
	}
}

// ChunkContent splits s into pieces of at most limit runes, breaking after
// the last newline of a piece when there is one.
func ChunkContent(s string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	if s == "" {
		return nil
	}

	var chunks []string
	for utf8.RuneCountInString(s) > limit {
		cut := byteOffset(s, limit)
		if nl := strings.LastIndexByte(s[:cut], '\n'); nl > 0 {
			cut = nl + 1
		}
		chunks = append(chunks, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// byteOffset returns the byte index of the n-th rune of s.
func byteOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

// chunkEmbeds groups embeds into batches of at most size.
func chunkEmbeds(embeds []*discordgo.MessageEmbed, size int) [][]*discordgo.MessageEmbed {
	var out [][]*discordgo.MessageEmbed
	for len(embeds) > size {
		out = append(out, embeds[:size])
		embeds = embeds[size:]
	}
	if len(embeds) > 0 {
		out = append(out, embeds)
	}
	return out
}
