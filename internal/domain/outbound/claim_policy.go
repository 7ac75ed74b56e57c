package outbound

import (
	"errors"
	"time"
)

// ErrInvalidClaimTTL indicates the configured default claim TTL is not positive.
var ErrInvalidClaimTTL = errors.New("default claim ttl must be positive")

// MinClaimTTL is the shortest claim a runner may take.
const MinClaimTTL = 5 * time.Second

// ClaimPolicy resolves how long a runner holds a claimed job before another pass
// may pick it up again.
type ClaimPolicy struct {
	defaultTTL time.Duration
}

// NewClaimPolicy constructs a ClaimPolicy with the provided default TTL.
func NewClaimPolicy(defaultTTL time.Duration) (*ClaimPolicy, error) {
	if defaultTTL <= 0 {
		return nil, ErrInvalidClaimTTL
	}
	return &ClaimPolicy{defaultTTL: defaultTTL}, nil
}

// Default returns the configured default TTL.
func (p *ClaimPolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultTTL
}

// Resolve returns the TTL to use for a claim. The claim must outlive the per-job
// processing timeout, so the result is at least jobTimeout plus a small margin.
func (p *ClaimPolicy) Resolve(requested, jobTimeout time.Duration) time.Duration {
	ttl := requested
	if ttl <= 0 {
		ttl = p.Default()
	}
	if jobTimeout > 0 && ttl < jobTimeout+MinClaimTTL {
		ttl = jobTimeout + MinClaimTTL
	}
	if ttl < MinClaimTTL {
		ttl = MinClaimTTL
	}
	return ttl.Truncate(time.Second)
}
