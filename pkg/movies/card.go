package movies

import "strconv"

// blankValue renders a field with no value; chat embeds reject empty ones.
const blankValue = "\u200b"

// CardField is one named value of a Card.
type CardField struct {
	Name   string
	Value  string
	Inline bool
}

// Card is the platform-independent rendering of a movie.
type Card struct {
	Title  string
	URL    string
	Fields []CardField
}

// RenderCard renders m as a card: title and year, IMDb link, director,
// actors and the three ratings.
func RenderCard(m *Movie) Card {
	title := m.Title
	if m.Year != nil {
		title += " (" + strconv.Itoa(*m.Year) + ")"
	}
	return Card{
		Title: title,
		URL:   m.IMDbURL(),
		Fields: []CardField{
			{Name: "Director", Value: orUnknown(m.Director)},
			{Name: "Actor", Value: orUnknown(m.Actors)},
			{Name: "Ratings", Value: blankValue},
			{Name: "IMDb", Value: rating(m.IMDbRating), Inline: true},
			{Name: "Metacritic", Value: rating(m.MetacriticRating), Inline: true},
			{Name: "Rotten Tomatoes", Value: rating(m.RottenTomatoesRating), Inline: true},
		},
	}
}

// RenderCards renders every movie in order.
func RenderCards(list []*Movie) []Card {
	cards := make([]Card, 0, len(list))
	for _, m := range list {
		cards = append(cards, RenderCard(m))
	}
	return cards
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func rating(r *int) string {
	if r == nil {
		return "N/A"
	}
	return strconv.Itoa(*r)
}
