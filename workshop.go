// Package workshop wires the multi-agent chat orchestrator: configuration,
// providers, agents, session storage, the orchestration engine, and the HTTP
// surfaces.
package workshop

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nhcloud/agentframework-workshop-sub001/agent"
	"github.com/nhcloud/agentframework-workshop-sub001/agents"
	intobs "github.com/nhcloud/agentframework-workshop-sub001/internal/observability"
	"github.com/nhcloud/agentframework-workshop-sub001/internal/orchestration"
	"github.com/nhcloud/agentframework-workshop-sub001/internal/provider"
	"github.com/nhcloud/agentframework-workshop-sub001/internal/server"
	"github.com/nhcloud/agentframework-workshop-sub001/pkg/config"
	"github.com/nhcloud/agentframework-workshop-sub001/pkg/observability"
	"github.com/nhcloud/agentframework-workshop-sub001/pkg/session"
)

// App is the assembled orchestrator application.
type App struct {
	Config   *config.Config
	Registry agent.Registry
	Sessions *session.Manager
	Engine   *orchestration.Engine

	apiServer *server.Server
	obsServer *observability.Server
	sweeper   *session.Sweeper
}

// NewApp builds the application from configuration.
func NewApp(cfg *config.Config) (*App, error) {
	observability.InitMetrics()

	if err := intobs.InitFromEnv(); err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	backend, err := buildBackend(cfg)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(backend)

	registry := agent.NewLocalRegistry(
		agent.WithRateLimit(cfg.Orchestration.RateLimit, cfg.Orchestration.RateBurst),
	)

	defs := agentDefs(cfg)
	providers, err := buildProviders(cfg, defs)
	if err != nil {
		return nil, err
	}
	if err := agents.BuildAll(defs, providers, registry); err != nil {
		return nil, err
	}

	engine := orchestration.NewEngine(registry, sessions, nil, nil, orchestration.Config{
		Deadline:     cfg.Orchestration.Deadline.AsDuration(),
		DefaultAgent: cfg.Orchestration.DefaultAgent,
		GenericAgent: cfg.Orchestration.GenericAgent,
		MaxAgents:    cfg.Orchestration.MaxAgents,
	})

	healthChecker := observability.InitHealthChecker()
	healthChecker.RegisterCheck(observability.PingCheck())
	healthChecker.RegisterCheck(observability.SessionStoreCheck(sessions.Ping))

	return &App{
		Config:    cfg,
		Registry:  registry,
		Sessions:  sessions,
		Engine:    engine,
		apiServer: server.New(engine, registry, sessions, cfg.Server.Port),
		obsServer: observability.NewServer(cfg.Server.ObservabilityPort),
		sweeper: session.NewSweeper(sessions, cfg.Session.CleanupSchedule,
			cfg.Session.MaxAge.AsDuration()),
	}, nil
}

// Run builds the application from a config file and serves until a shutdown
// signal or a server error.
func Run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	return app.Serve()
}

// Serve starts the HTTP surfaces and the session sweeper and blocks until
// shutdown.
func (a *App) Serve() error {
	errChan := make(chan error, 2)

	go func() {
		log.Printf("Chat API listening on :%d", a.Config.Server.Port)
		if err := a.apiServer.Start(); err != nil {
			errChan <- fmt.Errorf("chat API server: %w", err)
		}
	}()

	go func() {
		log.Printf("Observability endpoints on :%d", a.Config.Server.ObservabilityPort)
		if err := a.obsServer.Start(); err != nil {
			errChan <- fmt.Errorf("observability server: %w", err)
		}
	}()

	if err := a.sweeper.Start(); err != nil {
		return fmt.Errorf("starting session sweeper: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Printf("Server error: %v", err)
	case sig := <-quit:
		log.Printf("Received %v, shutting down", sig)
	}

	return a.Shutdown()
}

// Shutdown stops the servers, the sweeper, tracing, and the session store.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.sweeper.Stop()

	if err := a.apiServer.Shutdown(ctx); err != nil {
		log.Printf("Chat API shutdown error: %v", err)
	}
	if err := a.obsServer.Shutdown(ctx); err != nil {
		log.Printf("Observability server shutdown error: %v", err)
	}
	if err := intobs.Shutdown(ctx); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}

	return a.Sessions.Close()
}

// agentDefs returns the configured agent definitions, falling back to the
// built-in workshop agents.
func agentDefs(cfg *config.Config) []agents.Def {
	if len(cfg.Agents) == 0 {
		return agents.Defaults(cfg.Providers.Default)
	}

	defs := make([]agents.Def, len(cfg.Agents))
	for i, a := range cfg.Agents {
		providerName := a.Provider
		if providerName == "" && a.Type != "echo" {
			providerName = cfg.Providers.Default
		}
		defs[i] = agents.Def{
			Name:         a.Name,
			Type:         a.Type,
			Provider:     providerName,
			Model:        a.Model,
			Instructions: a.Instructions,
			Temperature:  a.Temperature,
			MaxTokens:    a.MaxTokens,
		}
	}
	return defs
}

// buildProviders constructs every provider the agent definitions reference.
func buildProviders(cfg *config.Config, defs []agents.Def) (map[string]provider.Provider, error) {
	needed := make(map[string]bool)
	for _, def := range defs {
		if def.Provider != "" {
			needed[def.Provider] = true
		}
	}

	providers := make(map[string]provider.Provider, len(needed))
	for name := range needed {
		p, err := provider.New(name, providerConfig(cfg, name))
		if err != nil {
			return nil, fmt.Errorf("building provider %s: %w", name, err)
		}
		providers[name] = p
	}
	return providers, nil
}

// providerConfig maps the typed config onto a factory config map.
func providerConfig(cfg *config.Config, name string) map[string]any {
	switch name {
	case "openai":
		return map[string]any{
			"api_key":        cfg.Providers.OpenAI.APIKey,
			"model":          cfg.Providers.OpenAI.Model,
			"azure_endpoint": cfg.Providers.OpenAI.AzureEndpoint,
		}
	case "bedrock":
		return map[string]any{
			"region": cfg.Providers.Bedrock.Region,
			"model":  cfg.Providers.Bedrock.Model,
		}
	case "gemini":
		return map[string]any{
			"api_key": cfg.Providers.Gemini.APIKey,
			"model":   cfg.Providers.Gemini.Model,
		}
	default:
		return map[string]any{}
	}
}

// buildBackend constructs the configured session storage backend.
func buildBackend(cfg *config.Config) (session.StorageBackend, error) {
	switch cfg.Session.Store {
	case "memory":
		return session.NewMemoryBackend(), nil
	case "file":
		return session.NewFileBackend(cfg.Session.BaseDir)
	case "redis":
		return session.NewRedisBackend(session.RedisConfig{
			Addr:       cfg.Session.Redis.Addr,
			Password:   cfg.Session.Redis.Password,
			DB:         cfg.Session.Redis.DB,
			Prefix:     cfg.Session.Redis.Prefix,
			SessionTTL: cfg.Session.MaxAge.AsDuration(),
		})
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}
