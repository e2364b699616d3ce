// Package app is the composition root: it wires configuration, storage,
// integrations and the two command subsystems together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sipeed/cinebot/pkg/api"
	"github.com/sipeed/cinebot/pkg/bot"
	"github.com/sipeed/cinebot/pkg/bus"
	"github.com/sipeed/cinebot/pkg/component"
	"github.com/sipeed/cinebot/pkg/config"
	"github.com/sipeed/cinebot/pkg/conversation"
	"github.com/sipeed/cinebot/pkg/domain"
	"github.com/sipeed/cinebot/pkg/infrastructure/eventbus"
	"github.com/sipeed/cinebot/pkg/infrastructure/persistence"
	"github.com/sipeed/cinebot/pkg/integration"
	"github.com/sipeed/cinebot/pkg/integration/omdb"
	"github.com/sipeed/cinebot/pkg/logger"
	"github.com/sipeed/cinebot/pkg/movies"
	"github.com/sipeed/cinebot/pkg/persona"
	"github.com/sipeed/cinebot/pkg/providers"
	"github.com/sipeed/cinebot/pkg/ratelimit"
)

const healthTimeout = 3 * time.Second

// ---------------------------------------------------------------------------
// Application container
// ---------------------------------------------------------------------------

// Container holds the wired services shared by every entrypoint.
type Container struct {
	Config *config.Config

	// Domain event bus
	Events *eventbus.InProcessEventBus

	// Storage and integrations
	MovieStore   *persistence.MovieRepository
	Integrations *integration.Registry

	// Application services
	Movies *movies.Service
	Chat   *conversation.Session
	Policy *ratelimit.Policy
}

// NewContainer builds the container from cfg. The chat backend and the
// metadata lookups are optional: a missing credential disables them.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{
		Config:       cfg,
		Events:       eventbus.New(),
		Integrations: integration.NewRegistry(),
	}
	c.Events.SubscribeAll(eventbus.LogSink)

	store, err := persistence.OpenMovieRepository(cfg.Movies.DatabasePath)
	if err != nil {
		return nil, err
	}
	c.MovieStore = store
	c.Integrations.Register(store)

	movieOpts := []movies.ServiceOption{movies.WithEvents(c.Events)}
	if cfg.Movies.OMDbAPIKey != "" {
		client := omdb.NewClient(cfg.Movies.OMDbAPIKey, cfg.Movies.OMDbAPIRoot)
		c.Integrations.Register(client)
		movieOpts = append(movieOpts, movies.WithMetadataSource(client))
	} else {
		logger.InfoC("app", "OMDb API is not configured, movies are stored by title only")
	}
	c.Movies = movies.NewService(store, movieOpts...)

	chatCfg, err := resolvePersona(cfg.Chat)
	if err != nil {
		store.Close()
		return nil, err
	}
	cfg.Chat = chatCfg

	backend, err := chatBackend(cfg.Chat)
	if err != nil {
		store.Close()
		return nil, err
	}
	if backend != nil {
		c.Integrations.Register(integration.Func{ID: "chat-" + backend.Name()})
	}

	c.Policy = newPolicy(cfg.Chat)
	// A nil Provider must stay a nil Backend.
	var completer conversation.Backend
	if backend != nil {
		completer = backend
	}
	c.Chat = conversation.NewSession(completer, c.Policy, conversation.NewCache(cfg.Chat.ConversationTTL()),
		conversation.WithSystemPrompt(cfg.Chat.SystemPrompt),
		conversation.WithEvents(c.Events),
	)
	return c, nil
}

func resolvePersona(cfg config.ChatConfig) (config.ChatConfig, error) {
	out, warnings, err := persona.Resolve(cfg)
	for _, w := range warnings {
		logger.WarnCF("app", "Skipped persona file", map[string]interface{}{"error": w.Error()})
	}
	if err != nil {
		return cfg, err
	}
	if cfg.Persona != "" {
		logger.InfoCF("app", "Persona applied", map[string]interface{}{
			"persona": cfg.Persona,
			"model":   out.Model,
		})
	}
	return out, nil
}

// chatBackend returns nil without error when no credential is configured.
func chatBackend(cfg config.ChatConfig) (providers.Provider, error) {
	p, err := providers.CreateProvider(cfg)
	if errors.Is(err, providers.ErrNoCredential) {
		logger.InfoC("app", "Chat backend is not configured, /chatgpt is disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	logger.InfoCF("app", "Chat backend ready", map[string]interface{}{
		"provider": p.Name(),
		"model":    p.Model(),
	})
	return p, nil
}

// newPolicy builds the two limiters. Both share the guild budget; the
// allow-listed class only swaps the per-user budget.
func newPolicy(cfg config.ChatConfig) *ratelimit.Policy {
	guild := ratelimit.Budget(cfg.GuildLimit)
	regular := ratelimit.NewLimiter("regular", ratelimit.Budget(cfg.UserLimit), guild)
	allowListed := ratelimit.NewLimiter("allow-listed", ratelimit.Budget(cfg.WhitelistUserLimit), guild)
	logger.InfoCF("app", "Rate limits configured", map[string]interface{}{
		"user":             cfg.UserLimit.String(),
		"guild":            cfg.GuildLimit.String(),
		"allow_listed":     cfg.WhitelistUserLimit.String(),
		"allow_list_count": len(cfg.WhitelistUserIDs),
	})
	return ratelimit.NewPolicy(regular, allowListed, cfg.WhitelistUserIDs)
}

// Janitor builds the scheduled sweeps over the container's state. extra
// tasks run after the built-in ones.
func (c *Container) Janitor(extra ...Task) (*Janitor, error) {
	tasks := []Task{
		{Name: "rate-limit-windows", Run: func(context.Context) (int, error) {
			return c.Policy.Sweep(), nil
		}},
		{Name: "integration-health", Run: func(ctx context.Context) (int, error) {
			status := c.Integrations.HealthAll(ctx, healthTimeout)
			if !integration.Healthy(status) {
				return 0, fmt.Errorf("unhealthy integrations: %v", status)
			}
			return 0, nil
		}},
	}
	return NewJanitor(c.Config.Janitor.Schedule, append(tasks, extra...)...)
}

// Close releases the container's resources.
func (c *Container) Close() {
	domain.PublishTo(c.Events, domain.NewEvent(domain.EventSystemShutdown, "", nil))
	c.Events.Close()
	c.Integrations.CloseAll()
}

// ---------------------------------------------------------------------------
// Run modes
// ---------------------------------------------------------------------------

// RunBot connects to Discord and serves until ctx is done or a component
// fails. The status server and the janitor run alongside.
func (c *Container) RunBot(ctx context.Context) error {
	session, err := bot.NewSession(c.Config.Discord.Token)
	if err != nil {
		return err
	}

	clicks := bus.NewClickBus()
	defer clicks.Close()
	manager := component.NewManager(clicks, component.NewCleaner(session),
		component.WithChannelTimeout(c.Config.Component.ChannelTimeout),
		component.WithEvents(c.Events),
	)

	var botOpts []bot.Option
	if c.Config.Discord.GuildID != "" {
		botOpts = append(botOpts, bot.WithGuild(c.Config.Discord.GuildID))
	}
	b := bot.New(session, bot.Deps{
		Clicks:     clicks,
		Components: manager,
		Chat:       c.Chat,
		Movies:     c.Movies,
	}, botOpts...)

	janitor, err := c.Janitor()
	if err != nil {
		return err
	}

	domain.PublishTo(c.Events, domain.NewEvent(domain.EventSystemStartup, "", map[string]interface{}{
		"chat_configured": c.Chat.Configured(),
		"lookups_enabled": c.Movies.LookupsEnabled(),
	}))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(ctx, session) })
	g.Go(func() error { return janitor.Run(ctx) })
	g.Go(func() error {
		c.Chat.Cache().Run(ctx, c.Config.Chat.SweepPeriod)
		return nil
	})
	if c.Config.Gateway.Enabled {
		server := api.NewServer(c.Config.Gateway, api.Deps{
			Components:   manager,
			Chat:         c.Chat,
			Movies:       c.Movies,
			Events:       c.Events,
			Integrations: c.Integrations,
		})
		g.Go(func() error { return server.Run(ctx) })
	}
	return g.Wait()
}
