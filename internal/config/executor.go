package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/cohort/internal/executors/flink"
)

const (
	ExecutorFlink = "flink"
	ExecutorQueue = "queue"

	EnvExecutorKind = "COHORT_EXECUTOR_KIND"
)

var flinkEnv = &flink.Env{
	RestEndpoint: "COHORT_FLINK_REST_ENDPOINT",
	JarID:        "COHORT_FLINK_JAR_ID",
	JarPath:      "COHORT_FLINK_JAR_PATH",
	EntryClass:   "COHORT_FLINK_ENTRY_CLASS",
	Parallelism:  "COHORT_FLINK_PARALLELISM",
	Timeout:      "COHORT_FLINK_TIMEOUT",
}

// ExecutorConfig selects the job executor and holds its settings.
type ExecutorConfig struct {
	Kind  string       `toml:"kind"`
	Flink flink.Config `toml:"flink"`
}

// Finalize applies defaults, environment variable overrides, and validation.
// Flink settings are only finalized when the flink executor is selected.
func (c *ExecutorConfig) Finalize() error {
	if c.Kind == "" {
		c.Kind = ExecutorFlink
	}
	if v := os.Getenv(EnvExecutorKind); v != "" {
		c.Kind = v
	}

	switch c.Kind {
	case ExecutorFlink:
		if err := c.Flink.Finalize(flinkEnv); err != nil {
			return fmt.Errorf("flink: %w", err)
		}
	case ExecutorQueue:
	default:
		return fmt.Errorf("invalid kind: %s", c.Kind)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ExecutorConfig) Merge(overlay *ExecutorConfig) {
	if overlay.Kind != "" {
		c.Kind = overlay.Kind
	}
	c.Flink.Merge(&overlay.Flink)
}
