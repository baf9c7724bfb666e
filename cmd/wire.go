package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	statusadapter "github.com/bnema/memsim/internal/adapters/render/status"
	tomlrepo "github.com/bnema/memsim/internal/adapters/repo/toml"
	"github.com/bnema/memsim/internal/application"
	"github.com/bnema/memsim/internal/config"
	"github.com/bnema/memsim/internal/logging"
	"github.com/bnema/memsim/internal/metrics"
	"github.com/bnema/memsim/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	service        *application.Service
	metrics        *metrics.Recorder
	logger         *slog.Logger
	statusRenderer func(application.Overview, statusadapter.RenderOptions) (string, error)
	loadScenario   func(string) (application.Scenario, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	v := viper.New()
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return nil, fmt.Errorf("wire simulation repository: %w", err)
	}

	recorder := metrics.NewRecorder()

	return &app{
		service: application.NewService(repo, ports.SystemClock{}, application.ServiceConfig{
			StartingBalance: cfg.Simulation.StartingBalance,
			Logger:          logger,
			Metrics:         recorder,
		}),
		metrics:        recorder,
		logger:         logger,
		statusRenderer: statusadapter.Render,
		loadScenario:   tomlrepo.LoadScenario,
		now:            time.Now,
	}, nil
}
