package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/kalambet/gemsearch/internal/remote"
)

const (
	clientTTL     = 30 * time.Minute
	cleanupPeriod = 10 * time.Minute
)

// Factory hands out provider clients for per-request credentials. Clients are
// cached by a hash of the credential so repeated requests reuse connections.
type Factory struct {
	base  Options
	cache *cache.Cache
	build func(ctx context.Context, opts Options) (remote.Provider, error)
}

// NewFactory returns a factory whose clients share base's model and URL.
func NewFactory(base Options) *Factory {
	return &Factory{
		base:  base,
		cache: cache.New(clientTTL, cleanupPeriod),
		build: func(ctx context.Context, opts Options) (remote.Provider, error) {
			return NewClient(ctx, opts)
		},
	}
}

// ForKey returns a client authenticated with apiKey.
func (f *Factory) ForKey(ctx context.Context, apiKey string) (remote.Provider, error) {
	sum := sha256.Sum256([]byte(apiKey))
	key := hex.EncodeToString(sum[:])

	if p, found := f.cache.Get(key); found {
		return p.(remote.Provider), nil
	}

	opts := f.base
	opts.APIKey = apiKey
	p, err := f.build(ctx, opts)
	if err != nil {
		return nil, err
	}
	f.cache.Set(key, p, cache.DefaultExpiration)
	return p, nil
}
