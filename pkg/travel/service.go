package travel

import (
	"fmt"

	"github.com/jsexpertdev/ostad-ai-agent/internal/config"
	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/toolexecutor"
	"github.com/rs/zerolog"
)

// Service wires the catalog, tools, runner, agent graph and planner
type Service struct {
	Planner *Planner
	Catalog *CatalogStore
	Tools   *toolexecutor.ToolExecutor
	Runner  *agent.Runner

	watcher *CatalogWatcher
}

// NewService builds the planner stack from configuration
func NewService(cfg *config.Config, model agent.Model, m *metrics.Metrics, logger zerolog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}

	catalog := DefaultCatalog()
	if cfg.Catalog.Path != "" {
		loaded, err := LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	store := NewCatalogStore(catalog)

	te := toolexecutor.New()
	if err := RegisterTools(te, store); err != nil {
		return nil, err
	}

	runner, err := agent.NewRunner(agent.Config{
		Model:        model,
		ToolExecutor: te,
		Metrics:      m,
		Logger:       logger,
		ModelName:    cfg.Inference.Model,
		Temperature:  cfg.Inference.Temperature,
		MaxTokens:    cfg.Inference.MaxTokens,
		MaxTurns:     cfg.Runner.MaxTurns,
		MaxHandoffs:  cfg.Runner.MaxHandoffs,
		ToolTimeout:  cfg.Runner.ToolTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	definitions, err := loadDefinitions(cfg.Agents.Path)
	if err != nil {
		return nil, err
	}

	graph, err := BuildAgents(AgentsConfig{
		Definitions: definitions,
		Runner:      runner,
		Guardrails:  cfg.Guardrails,
		Metrics:     m,
		Logger:      logger,
		AllowCycles: cfg.Agents.AllowCycles,
	})
	if err != nil {
		return nil, err
	}

	planner, err := NewPlanner(PlannerConfig{Runner: runner, Graph: graph, Logger: logger})
	if err != nil {
		return nil, err
	}

	svc := &Service{
		Planner: planner,
		Catalog: store,
		Tools:   te,
		Runner:  runner,
	}

	if cfg.Catalog.Path != "" && cfg.Catalog.Watch {
		watcher, err := NewCatalogWatcher(CatalogWatcherConfig{
			Path:    cfg.Catalog.Path,
			Store:   store,
			Metrics: m,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		if err := watcher.Start(); err != nil {
			_ = watcher.Stop()
			return nil, err
		}
		svc.watcher = watcher
	}

	return svc, nil
}

// Close stops the catalog watcher, if any
func (s *Service) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Stop()
}

func loadDefinitions(path string) (*agent.DefinitionFile, error) {
	if path == "" {
		return DefaultDefinitions()
	}
	return agent.LoadDefinitions(path)
}
