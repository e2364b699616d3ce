package movies

import (
	"strings"

	"github.com/sipeed/cinebot/pkg/domain"
)

// Filter holds the list and pick options. Zero values mean "any".
type Filter struct {
	SearchTerm string
	Genre      string
	Actor      string
	Director   string
	// MaxLength keeps movies of at most this many minutes.
	MaxLength int
	// MinIMDbRating keeps movies rated strictly above it (0-100 scale).
	MinIMDbRating int
	FavoriteOnly  bool
}

// Spec composes the set options into one specification.
func (f Filter) Spec() domain.Specification[Movie] {
	var specs []domain.Specification[Movie]
	if f.SearchTerm != "" {
		specs = append(specs, TitleContains(f.SearchTerm))
	}
	if f.Genre != "" {
		specs = append(specs, GenreContains(f.Genre))
	}
	if f.Actor != "" {
		specs = append(specs, ActorContains(f.Actor))
	}
	if f.Director != "" {
		specs = append(specs, DirectorContains(f.Director))
	}
	if f.MaxLength > 0 {
		specs = append(specs, LengthAtMost(f.MaxLength))
	}
	if f.MinIMDbRating > 0 {
		specs = append(specs, IMDbRatingAbove(f.MinIMDbRating))
	}
	if f.FavoriteOnly {
		specs = append(specs, Favorite())
	}
	return domain.All(specs...)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func TitleContains(term string) domain.Specification[Movie] {
	return domain.SpecFunc[Movie](func(m *Movie) bool { return containsFold(m.Title, term) })
}

// GenreContains never matches a movie without a genre.
func GenreContains(genre string) domain.Specification[Movie] {
	return domain.SpecFunc[Movie](func(m *Movie) bool { return m.Genre != "" && containsFold(m.Genre, genre) })
}

func ActorContains(actor string) domain.Specification[Movie] {
	return domain.SpecFunc[Movie](func(m *Movie) bool { return m.Actors != "" && containsFold(m.Actors, actor) })
}

func DirectorContains(director string) domain.Specification[Movie] {
	return domain.SpecFunc[Movie](func(m *Movie) bool { return m.Director != "" && containsFold(m.Director, director) })
}

// LengthAtMost excludes movies of unknown length.
func LengthAtMost(minutes int) domain.Specification[Movie] {
	return domain.SpecFunc[Movie](func(m *Movie) bool {
		return m.Length != nil && *m.Length > 0 && *m.Length <= minutes
	})
}

// IMDbRatingAbove excludes unrated movies.
func IMDbRatingAbove(rating int) domain.Specification[Movie] {
	return domain.SpecFunc[Movie](func(m *Movie) bool {
		return m.IMDbRating != nil && *m.IMDbRating > 0 && *m.IMDbRating > rating
	})
}

func Favorite() domain.Specification[Movie] {
	return domain.SpecFunc[Movie](func(m *Movie) bool { return m.IsFavorite })
}
