package specgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ShayCichocki/crewforge/pkg/models"
)

// DefaultCacheTTL is how long a generated roster is reused.
const DefaultCacheTTL = 30 * time.Minute

// SpecCache memoizes model-generated rosters per (tier, maxAgents, task).
// A nil *SpecCache is valid and never hits.
type SpecCache struct {
	c *cache.Cache
}

// NewSpecCache creates a cache whose entries expire after ttl.
func NewSpecCache(ttl time.Duration) *SpecCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SpecCache{c: cache.New(ttl, 2*ttl)}
}

func cacheKey(task string, tier models.ComplexityTier, maxAgents int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", tier, maxAgents, task)))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached roster.
func (sc *SpecCache) Get(task string, tier models.ComplexityTier, maxAgents int) ([]models.AgentSpec, bool) {
	if sc == nil {
		return nil, false
	}
	v, ok := sc.c.Get(cacheKey(task, tier, maxAgents))
	if !ok {
		return nil, false
	}
	specs, ok := v.([]models.AgentSpec)
	if !ok {
		return nil, false
	}
	return cloneSpecs(specs), true
}

// Set stores a copy of specs.
func (sc *SpecCache) Set(task string, tier models.ComplexityTier, maxAgents int, specs []models.AgentSpec) {
	if sc == nil {
		return
	}
	sc.c.Set(cacheKey(task, tier, maxAgents), cloneSpecs(specs), cache.DefaultExpiration)
}

// Len returns the number of unexpired entries.
func (sc *SpecCache) Len() int {
	if sc == nil {
		return 0
	}
	return sc.c.ItemCount()
}

func cloneSpecs(specs []models.AgentSpec) []models.AgentSpec {
	out := make([]models.AgentSpec, len(specs))
	for i, s := range specs {
		s.Capabilities = append([]string(nil), s.Capabilities...)
		out[i] = s
	}
	return out
}
