package scriptstore

import (
	"context"
	"fmt"
	"time"
)

const (
	probeKey   = "test-key"
	probeValue = "test-value"
)

// ProbeResult is the outcome of a connectivity check.
type ProbeResult struct {
	Value   string        `json:"testValue"`
	Latency time.Duration `json:"-"`
}

// Probe writes, reads back and deletes a throwaway key to prove the store is
// reachable and writable.
func (r *Repository) Probe(ctx context.Context) (ProbeResult, error) {
	start := r.now()
	if err := r.store.Set(ctx, probeKey, []byte(probeValue)); err != nil {
		return ProbeResult{}, fmt.Errorf("probe set: %w", err)
	}
	got, ok, err := r.store.Get(ctx, probeKey)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe get: %w", err)
	}
	if _, err := r.store.Del(ctx, probeKey); err != nil {
		return ProbeResult{}, fmt.Errorf("probe del: %w", err)
	}
	if !ok || string(got) != probeValue {
		return ProbeResult{}, fmt.Errorf("probe read back %q, want %q", got, probeValue)
	}
	return ProbeResult{Value: string(got), Latency: r.now().Sub(start)}, nil
}
