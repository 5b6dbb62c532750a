package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jsexpertdev/ostad-ai-agent/internal/config"
	"github.com/jsexpertdev/ostad-ai-agent/internal/logger"
	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/jsexpertdev/ostad-ai-agent/internal/tracing"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/travel"
)

// newModel builds the inference client; tests swap it for a scripted model
var newModel = func(cfg config.InferenceConfig) (agent.Model, error) {
	factory := &agent.ProviderFactory{}
	return factory.NewProvider(cfg)
}

// app holds everything a command needs to plan trips
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	service *travel.Service

	shutdownTracing tracing.ShutdownFunc
}

// loadConfig resolves and validates configuration from the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(cfgFile).WithEnvFile(envFile).Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp loads configuration and wires the planner stack. Logs go to
// logOutput so command output stays clean.
func newApp(logOutput io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logCfg := logger.FromConfig(cfg.Logging, cfg.Inference.APIKey)
	logCfg.Output = logOutput
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, metrics: metrics.NewMetrics()}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Setup(tracing.Options{
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: GetVersion(),
			SampleRatio:    cfg.Tracing.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
		} else {
			a.shutdownTracing = shutdown
		}
	}

	model, err := newModel(cfg.Inference)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	service, err := travel.NewService(cfg, model, a.metrics, log.GetZerolog())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build planner: %w", err)
	}
	a.service = service

	log.Debug().
		Str("provider", model.Provider()).
		Str("model", cfg.Inference.Model).
		Msg("Planner ready")

	return a, nil
}

// Close releases the service, tracing and the log file
func (a *app) Close() {
	if a.service != nil {
		if err := a.service.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close planner service")
		}
	}
	if a.shutdownTracing != nil {
		_ = a.shutdownTracing(context.Background())
	}
	_ = a.log.Close()
}

// stderr is where commands with structured stdout send their logs
var stderr io.Writer = os.Stderr
