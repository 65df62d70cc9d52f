package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"propworks.ai/internal/persistence/indexdb"
	"propworks.ai/internal/sim/tuning"
)

// openRuntimeIndex picks the read-model backend. A nil index disables indexing.
func openRuntimeIndex(cfg serverEnv, worldDir, worldID string, disableDB bool, tun tuning.Tuning, logger *log.Logger) (indexdb.Index, error) {
	if disableDB {
		return nil, nil
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.IndexBackend))
	switch backend {
	case "", "sqlite":
		idx, err := indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			return nil, err
		}
		if err := idx.UpsertTuning(worldID, tun); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
		return idx, nil
	case "none", "off", "disabled":
		return nil, nil
	case "http":
		if strings.TrimSpace(cfg.IndexURL) == "" {
			return nil, fmt.Errorf("PW_INDEX_BACKEND=http but PW_INDEX_INGEST_URL is empty")
		}
		idx, err := indexdb.OpenHTTP(indexdb.HTTPConfig{
			Endpoint:      cfg.IndexURL,
			Token:         cfg.IndexToken,
			WorldID:       worldID,
			BatchSize:     cfg.IndexBatchSize,
			FlushInterval: cfg.IndexFlush,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported PW_INDEX_BACKEND: %s", backend)
	}
}
