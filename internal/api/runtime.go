package api

import (
	"fmt"

	"github.com/JaimeStill/cohort/internal/config"
	"github.com/JaimeStill/cohort/internal/executors/flink"
	"github.com/JaimeStill/cohort/internal/executors/queue"
	"github.com/JaimeStill/cohort/internal/infrastructure"
	"github.com/JaimeStill/cohort/internal/jobs"
	"github.com/JaimeStill/cohort/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination   pagination.Config
	MaxBodySize  int64
	CallbackBase string
	Executor     jobs.Executor
}

// NewRuntime creates an API runtime with a module-scoped logger and the
// configured job executor.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) (*Runtime, error) {
	scoped := &infrastructure.Infrastructure{
		Lifecycle: infra.Lifecycle,
		Logger:    infra.Logger.With("module", "api"),
		Database:  infra.Database,
		Storage:   infra.Storage,
		Redis:     infra.Redis,
		Gate:      infra.Gate,
	}

	executor, err := newExecutor(cfg, scoped)
	if err != nil {
		return nil, fmt.Errorf("executor init failed: %w", err)
	}

	return &Runtime{
		Infrastructure: scoped,
		Pagination:     cfg.API.Pagination,
		MaxBodySize:    cfg.API.MaxBodySizeBytes(),
		CallbackBase:   cfg.CallbackBase(),
		Executor:       executor,
	}, nil
}

func newExecutor(cfg *config.Config, infra *infrastructure.Infrastructure) (jobs.Executor, error) {
	switch cfg.Executor.Kind {
	case config.ExecutorQueue:
		if infra.Redis == nil {
			return nil, queue.ErrNoClient
		}
		return queue.New(infra.Redis, cfg.Redis.Prefix, cfg.Redis.StreamMaxLen, infra.Logger)
	case config.ExecutorFlink:
		exec, err := flink.New(&cfg.Executor.Flink, nil, infra.Logger)
		if err != nil {
			return nil, err
		}
		if err := exec.Register(infra.Lifecycle); err != nil {
			return nil, err
		}
		return exec, nil
	default:
		return nil, fmt.Errorf("unknown executor kind: %s", cfg.Executor.Kind)
	}
}
