package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"reality-studio-backend/internal/cache"
)

// Cached memoises completions by request fingerprint. Generation is not
// deterministic, so this is an optimisation only and is off by default.
type Cached struct {
	next  TextGenerator
	cache *cache.TTL
}

func NewCached(next TextGenerator, c *cache.TTL) *Cached {
	return &Cached{next: next, cache: c}
}

func (c *Cached) Complete(ctx context.Context, req Request) (*Response, error) {
	key, err := Fingerprint(req)
	if err != nil {
		return c.next.Complete(ctx, req)
	}
	if hit, ok := c.cache.Get(key); ok {
		resp := hit.(Response)
		return &resp, nil
	}
	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, *resp)
	return resp, nil
}

// Fingerprint is the SHA-256 of the canonical JSON form of req.
func Fingerprint(req Request) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return "gen:" + hex.EncodeToString(sum[:]), nil
}

func marshalIndent(v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	return string(raw), err
}
