package cache

import (
	"time"

	"github.com/prasadk/complyscan/internal/model"
)

func configFor(backend, dir string) model.CacheConfig {
	return model.CacheConfig{
		Enabled: true,
		Backend: backend,
		Dir:     dir,
		TTL:     time.Minute,
	}
}
