package movies

import (
	"context"

	"github.com/sipeed/cinebot/pkg/domain"
)

// Repository stores movies.
type Repository interface {
	// Upsert inserts m, or overwrites the guild's existing movie with the
	// same title or IMDb id. It reports whether a new row was created and
	// sets m's id to the stored one.
	Upsert(ctx context.Context, m *Movie) (created bool, err error)
	FindByID(ctx context.Context, id domain.EntityID) (*Movie, error)
	FindByTitle(ctx context.Context, guildID, title string) (*Movie, error)
	FindByGuild(ctx context.Context, guildID string) ([]*Movie, error)
	Delete(ctx context.Context, id domain.EntityID) error
	Count(ctx context.Context) (int, error)
}

// Query asks a metadata source for one title. IMDbID wins when both are
// set; title search is fuzzy and often picks the wrong film.
type Query struct {
	IMDbID string
	Title  string
}

// MetadataSource looks up movie metadata.
type MetadataSource interface {
	Lookup(ctx context.Context, q Query) (*Metadata, error)
}
