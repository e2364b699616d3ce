// Package movies is the movie list bounded context: the per-guild Movie
// aggregate, the filters used by list and pick, and the service that keeps
// records enriched with metadata from an external source.
package movies

import (
	"strings"
	"time"

	"github.com/sipeed/cinebot/pkg/domain"
)

// Movie is one entry of a guild's movie list. Titles are unique per guild
// (case-insensitively), and so are IMDb ids when present. Optional values
// are nil when unknown.
type Movie struct {
	domain.AggregateRoot

	GuildID    string
	Title      string
	IsFavorite bool
	WasWatched bool

	// Length is the runtime in minutes.
	Length   *int
	Actors   string // comma-separated
	Director string
	Genre    string // comma-separated
	Year     *int
	IMDbID   string

	// Ratings are on a 0-100 scale.
	IMDbRating           *int
	MetacriticRating     *int
	RottenTomatoesRating *int

	// Rated is the content rating, e.g. "PG-13".
	Rated    string
	Language string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMovie creates a movie with a fresh id.
func NewMovie(guildID, title string) *Movie {
	now := time.Now().UTC()
	m := &Movie{
		GuildID:   guildID,
		Title:     strings.TrimSpace(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.SetID(domain.NewID())
	return m
}

// Metadata is what a lookup service knows about a title.
type Metadata struct {
	Title                string
	Year                 *int
	Length               *int
	Genre                string
	Director             string
	Actors               string
	IMDbID               string
	IMDbRating           *int
	MetacriticRating     *int
	RottenTomatoesRating *int
	Rated                string
	Language             string
}

// NewMovieFromMetadata creates a movie filled from md.
func NewMovieFromMetadata(guildID string, md *Metadata) *Movie {
	m := NewMovie(guildID, md.Title)
	m.Length = md.Length
	m.Actors = md.Actors
	m.Director = md.Director
	m.Genre = md.Genre
	m.Year = md.Year
	m.IMDbID = md.IMDbID
	m.IMDbRating = md.IMDbRating
	m.MetacriticRating = md.MetacriticRating
	m.RottenTomatoesRating = md.RottenTomatoesRating
	m.Rated = md.Rated
	m.Language = md.Language
	return m
}

// Validate checks the invariants a stored movie must satisfy.
func (m *Movie) Validate() error {
	if m.GuildID == "" {
		return ErrGuildRequired
	}
	if strings.TrimSpace(m.Title) == "" {
		return ErrTitleRequired
	}
	for _, r := range []*int{m.IMDbRating, m.MetacriticRating, m.RottenTomatoesRating} {
		if r != nil && (*r < 0 || *r > 100) {
			return ErrInvalidRating
		}
	}
	if m.Length != nil && *m.Length < 0 {
		return ErrInvalidLength
	}
	return nil
}

// MarkSaved records the event for a successful upsert.
func (m *Movie) MarkSaved(created bool) {
	eventType := domain.EventMovieUpdated
	if created {
		eventType = domain.EventMovieCreated
	}
	m.RecordEvent(domain.NewEvent(eventType, m.ID(), m.eventData()))
}

// MarkDeleted records the deletion event.
func (m *Movie) MarkDeleted() {
	m.RecordEvent(domain.NewEvent(domain.EventMovieDeleted, m.ID(), m.eventData()))
}

func (m *Movie) eventData() map[string]interface{} {
	return map[string]interface{}{
		"guild_id": m.GuildID,
		"title":    m.Title,
		"imdb_id":  m.IMDbID,
	}
}

// IMDbURL links to the movie's IMDb page, or "" without an IMDb id.
func (m *Movie) IMDbURL() string {
	if m.IMDbID == "" {
		return ""
	}
	return "https://imdb.com/title/" + m.IMDbID
}

// Int returns a pointer to v, for optional fields.
func Int(v int) *int { return &v }
