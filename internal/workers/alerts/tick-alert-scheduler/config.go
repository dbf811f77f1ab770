package tickalertscheduler

import (
	"time"

	"jobmatch-workers/internal/common/config"
)

// Config.Timeout bounds a whole tick, so it should exceed the per-alert
// timeout of the scheduler.
type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	cfg := &Config{Timeout: config.GetDuration(wcfg.Timeout)}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return cfg
}
