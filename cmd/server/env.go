package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// serverEnv holds the deployment knobs that stay out of tuning.yaml.
type serverEnv struct {
	DeployEnv string `env:"DEPLOY_ENV"`

	// Empty means "decide from DEPLOY_ENV".
	AdminHTTP string `env:"PW_ENABLE_ADMIN_HTTP"`
	PprofHTTP bool   `env:"PW_ENABLE_PPROF_HTTP" envDefault:"false"`

	IndexBackend   string        `env:"PW_INDEX_BACKEND" envDefault:"sqlite"`
	IndexURL       string        `env:"PW_INDEX_INGEST_URL"`
	IndexToken     string        `env:"PW_INDEX_TOKEN"`
	IndexFlush     time.Duration `env:"PW_INDEX_FLUSH" envDefault:"500ms"`
	IndexBatchSize int           `env:"PW_INDEX_BATCH_SIZE" envDefault:"128"`
}

func loadServerEnv(opts ...env.Options) (serverEnv, error) {
	var cfg serverEnv
	var err error
	if len(opts) > 0 {
		err = env.ParseWithOptions(&cfg, opts[0])
	} else {
		err = env.Parse(&cfg)
	}
	if err != nil {
		return serverEnv{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (e serverEnv) adminEnabled() bool {
	if v := strings.TrimSpace(e.AdminHTTP); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	switch strings.ToLower(strings.TrimSpace(e.DeployEnv)) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
