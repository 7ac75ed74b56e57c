// Package outbound holds the pure delivery policy of the outbound pipeline: retry
// backoff, quiet hours, destination normalization, the verification gate and the
// claim lease policy. Nothing here performs I/O.
package outbound

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/target/mmk-outbound/internal/domain/model"
)

const (
	// VoiceMaxAttempts is the default attempt budget for voice calls.
	VoiceMaxAttempts = 2
	// MessagingMaxAttempts is the default attempt budget for chat, SMS and email.
	MessagingMaxAttempts = 3

	// VoiceRetryDelay is the base delay before a voice retry.
	VoiceRetryDelay = 30 * time.Minute

	// JitterFraction is the maximum relative deviation applied to a base delay.
	JitterFraction = 0.2
	// MinRetryDelay is the floor for any jittered delay.
	MinRetryDelay = 10 * time.Second

	maxMessagingDelay = 24 * time.Hour
)

// messagingSchedule is indexed by failed attempt number (1-based).
var messagingSchedule = []time.Duration{
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

// DefaultMaxAttempts returns the attempt budget for a channel.
func DefaultMaxAttempts(ch model.Channel) int {
	if ch == model.ChannelVoice {
		return VoiceMaxAttempts
	}
	return MessagingMaxAttempts
}

// BaseDelay returns the un-jittered delay after the given failed attempt.
//
// Voice waits VoiceRetryDelay before its single default retry; larger custom budgets
// space further retries linearly. Messaging channels follow messagingSchedule and then
// double up to a day.
func BaseDelay(ch model.Channel, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if ch == model.ChannelVoice {
		return time.Duration(attempt) * VoiceRetryDelay
	}
	if attempt <= len(messagingSchedule) {
		return messagingSchedule[attempt-1]
	}
	d := messagingSchedule[len(messagingSchedule)-1]
	for i := len(messagingSchedule); i < attempt; i++ {
		d *= 2
		if d >= maxMessagingDelay {
			return maxMessagingDelay
		}
	}
	return d
}

// Jitter spreads base uniformly within ±JitterFraction using r in [0,1) and applies
// the MinRetryDelay floor.
func Jitter(base time.Duration, r float64) time.Duration {
	if r < 0 {
		r = 0
	}
	if r >= 1 {
		r = 0.999999
	}
	factor := 1 + (2*r-1)*JitterFraction
	d := time.Duration(float64(base) * factor)
	if d < MinRetryDelay {
		return MinRetryDelay
	}
	return d
}

// BackoffPolicy computes jittered retry delays.
type BackoffPolicy struct {
	mu   sync.Mutex
	rand func() float64
}

// NewBackoffPolicy returns a policy using rnd as its uniform [0,1) source.
// A nil rnd uses math/rand/v2.
func NewBackoffPolicy(rnd func() float64) *BackoffPolicy {
	if rnd == nil {
		rnd = rand.Float64
	}
	return &BackoffPolicy{rand: rnd}
}

// NextDelay returns the jittered delay after the given failed attempt.
func (p *BackoffPolicy) NextDelay(ch model.Channel, attempt int) time.Duration {
	base := BaseDelay(ch, attempt)
	if p == nil {
		return Jitter(base, 0.5)
	}
	p.mu.Lock()
	r := p.rand()
	p.mu.Unlock()
	return Jitter(base, r)
}

// NextAttemptAt returns now plus the jittered delay.
func (p *BackoffPolicy) NextAttemptAt(ch model.Channel, attempt int, now time.Time) time.Time {
	return now.Add(p.NextDelay(ch, attempt))
}
