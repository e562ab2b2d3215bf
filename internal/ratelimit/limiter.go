// Package ratelimit provides the process-wide admission control for external
// inference calls. One shared limiter sits in front of the adapter so the
// document pool can never exceed the provider's request budget no matter how
// many workers are active.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Admission is a token-bucket limiter keyed on requests per minute.
type Admission struct {
	limiter *rate.Limiter
}

// New returns an admission gate allowing rpm requests per minute. A burst of
// one keeps calls evenly spaced. rpm <= 0 disables limiting.
func New(rpm int) *Admission {
	if rpm <= 0 {
		return &Admission{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Admission{limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)}
}

// Wait blocks until a token is available or ctx is done.
func (a *Admission) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}
