package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/prasadk/complyscan/internal/model"
)

// Cache defines the interface for verdict caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// VerdictKey generates a cache key for one (document, framework, rule,
// prompt) combination. The document content hash keeps stale verdicts from
// surviving re-ingestion; the prompt keeps them from surviving rule edits.
func VerdictKey(contentHash, framework, ruleID, prompt string) string {
	sum := sha256.Sum256([]byte(contentHash + "\x00" + framework + "\x00" + ruleID + "\x00" + prompt))
	return "complyscan:v1:" + hex.EncodeToString(sum[:])
}

// New creates the cache backend selected by configuration. A disabled cache
// returns nil; callers treat a nil Cache as a no-op.
func New(cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	switch cfg.Backend {
	case "", "layered":
		return NewLayeredCache(ttl, cfg.Dir, ttl), nil
	case "memory":
		return NewMemoryCache(ttl, 10*time.Minute), nil
	case "disk":
		return NewDiskCache(cfg.Dir, ttl), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.RedisDB, ttl)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (supported: memory, disk, layered, redis)", cfg.Backend)
	}
}
