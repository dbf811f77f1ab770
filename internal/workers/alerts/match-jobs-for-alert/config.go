package matchjobsforalert

import (
	"time"

	"jobmatch-workers/internal/catalog"
	"jobmatch-workers/internal/common/config"
)

type Config struct {
	Timeout         time.Duration
	DefaultPageSize int
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	cfg := &Config{
		Timeout:         config.GetDuration(wcfg.Timeout),
		DefaultPageSize: catalog.DefaultPageSize,
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}
