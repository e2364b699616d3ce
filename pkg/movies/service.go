package movies

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/sipeed/cinebot/pkg/domain"
	"github.com/sipeed/cinebot/pkg/logger"
)

// UpsertInput is a create or edit request.
type UpsertInput struct {
	GuildID  string
	Title    string
	IMDbID   string
	Favorite bool
}

// UpsertResult is the stored movie and whether metadata was found for it.
type UpsertResult struct {
	Movie    *Movie
	Created  bool
	Enriched bool
}

// Service implements the movie list operations.
type Service struct {
	repo   Repository
	source MetadataSource
	events domain.Publisher
	intn   func(n int) int
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetadataSource enables lookups. Without one every upsert is
// title-only.
func WithMetadataSource(src MetadataSource) ServiceOption {
	return func(s *Service) { s.source = src }
}

func WithEvents(p domain.Publisher) ServiceOption {
	return func(s *Service) { s.events = p }
}

// WithRandom replaces the random index picker used by Pick (tests).
func WithRandom(intn func(n int) int) ServiceOption {
	return func(s *Service) { s.intn = intn }
}

func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo, intn: rand.IntN}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LookupsEnabled reports whether a metadata source is configured.
func (s *Service) LookupsEnabled() bool { return s.source != nil }

// Upsert creates or overwrites a movie. With a metadata source it looks the
// movie up first, preferring the IMDb id; a failed lookup falls back to a
// title-only record when a title was given.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (*UpsertResult, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.IMDbID = strings.TrimSpace(in.IMDbID)
	if in.Title == "" && in.IMDbID == "" {
		return nil, ErrTitleOrIMDbRequired
	}

	if s.source != nil {
		md, err := s.source.Lookup(ctx, Query{IMDbID: in.IMDbID, Title: in.Title})
		if err == nil && md != nil && md.Title != "" {
			m := NewMovieFromMetadata(in.GuildID, md)
			m.IsFavorite = in.Favorite
			created, err := s.save(ctx, m)
			if err != nil {
				return nil, err
			}
			return &UpsertResult{Movie: m, Created: created, Enriched: true}, nil
		}
		fields := map[string]interface{}{
			"guild_id": in.GuildID,
			"title":    in.Title,
			"imdb_id":  in.IMDbID,
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		logger.WarnCF("movies", "Metadata lookup failed", fields)
	}

	if in.Title == "" {
		return nil, ErrNotCreated
	}
	m := NewMovie(in.GuildID, in.Title)
	m.IsFavorite = in.Favorite
	created, err := s.save(ctx, m)
	if err != nil {
		return nil, err
	}
	return &UpsertResult{Movie: m, Created: created}, nil
}

func (s *Service) save(ctx context.Context, m *Movie) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	created, err := s.repo.Upsert(ctx, m)
	if err != nil {
		return false, err
	}
	m.MarkSaved(created)
	s.flush(m)

	logger.InfoCF("movies", "Movie saved", map[string]interface{}{
		"movie_id": m.ID().String(),
		"guild_id": m.GuildID,
		"title":    m.Title,
		"created":  created,
	})
	return created, nil
}

// List returns the guild's movies matching f.
func (s *Service) List(ctx context.Context, guildID string, f Filter) ([]*Movie, error) {
	all, err := s.repo.FindByGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return domain.Filter(all, f.Spec()), nil
}

// Pick returns one random movie matching f.
func (s *Service) Pick(ctx context.Context, guildID string, f Filter) (*Movie, error) {
	matches, err := s.List(ctx, guildID, f)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNoMatches
	}
	return matches[s.intn(len(matches))], nil
}

// Delete removes the movie with id.
func (s *Service) Delete(ctx context.Context, id domain.EntityID) error {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, m)
}

// DeleteByTitle removes the guild's movie named title.
func (s *Service) DeleteByTitle(ctx context.Context, guildID, title string) (*Movie, error) {
	m, err := s.repo.FindByTitle(ctx, guildID, strings.TrimSpace(title))
	if err != nil {
		return nil, err
	}
	if err := s.remove(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Count returns the number of stored movies across guilds.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) remove(ctx context.Context, m *Movie) error {
	if err := s.repo.Delete(ctx, m.ID()); err != nil {
		return err
	}
	m.MarkDeleted()
	s.flush(m)
	logger.InfoCF("movies", "Movie deleted", map[string]interface{}{
		"movie_id": m.ID().String(),
		"guild_id": m.GuildID,
		"title":    m.Title,
	})
	return nil
}

func (s *Service) flush(m *Movie) {
	for _, e := range m.PullEvents() {
		domain.PublishTo(s.events, e)
	}
}
