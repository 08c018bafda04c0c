package directory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/taskhub/taskhub-api/internal/domain"
	"golang.org/x/time/rate"
)

// ResolverConfig holds the resilience policy settings for directory lookups.
type ResolverConfig struct {
	// RatePerSecond and RateBurst parameterize the limiter in front of the
	// directory.
	RatePerSecond float64
	RateBurst     int

	// RetryAttempts bounds calls per lookup; backoff doubles between tries.
	RetryAttempts int
	RetryBackoff  time.Duration

	// BreakerFailureThreshold is the consecutive-failure count that opens
	// the circuit; BreakerCooldown is how long it stays open.
	BreakerFailureThreshold int
	BreakerCooldown         time.Duration
}

// DefaultResolverConfig returns a ResolverConfig with reasonable defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		RatePerSecond:           50,
		RateBurst:               10,
		RetryAttempts:           3,
		RetryBackoff:            200 * time.Millisecond,
		BreakerFailureThreshold: 5,
		BreakerCooldown:         30 * time.Second,
	}
}

// Resolver wraps a directory Client with three composed policies, applied
// in order: rate limiter, then bounded retry, then circuit breaker around
// the remote call. On exhaustion it yields the unresolved result instead of
// an error: callers treat "unresolved" as a first-class outcome.
type Resolver struct {
	client  Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	config  ResolverConfig
	logger  *slog.Logger
}

// NewResolver creates a Resolver around the given client.
func NewResolver(client Client, cfg ResolverConfig, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "user-directory",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.BreakerFailureThreshold)
		},
	})

	return &Resolver{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		breaker: breaker,
		config:  cfg,
		logger:  logger.With(slog.String("component", "directory_resolver")),
	}
}

// Resolve looks up a single user. A nil result means unresolved: either the
// directory has no record for the id or every policy was exhausted.
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID) *domain.User {
	result := r.execute(ctx, func(ctx context.Context) (any, error) {
		user, err := r.client.GetUser(ctx, id)
		if errors.Is(err, ErrUserNotFound) {
			// A definitive miss, not a dependency failure. It must neither
			// trip the breaker nor burn retries.
			return (*domain.User)(nil), nil
		}
		return user, err
	})
	if result == nil {
		return nil
	}
	user, _ := result.(*domain.User)
	return user
}

// ResolveAll looks up a set of ids in one directory call. Ids missing from
// the result are unresolved individually; a fully failed batch yields an
// empty map, never an error.
func (r *Resolver) ResolveAll(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]*domain.User {
	if len(ids) == 0 {
		return map[uuid.UUID]*domain.User{}
	}

	result := r.execute(ctx, func(ctx context.Context) (any, error) {
		return r.client.GetUsers(ctx, ids)
	})
	if result == nil {
		return map[uuid.UUID]*domain.User{}
	}
	users, ok := result.(map[uuid.UUID]*domain.User)
	if !ok || users == nil {
		return map[uuid.UUID]*domain.User{}
	}
	return users
}

// execute runs fn through limiter, retry and breaker. A nil return means
// every policy was exhausted.
func (r *Resolver) execute(ctx context.Context, fn func(ctx context.Context) (any, error)) any {
	if err := r.limiter.Wait(ctx); err != nil {
		r.logger.Warn("directory lookup rejected by rate limiter", "error", err)
		return nil
	}

	backoff := r.config.RetryBackoff
	var lastErr error

	for attempt := 1; attempt <= r.config.RetryAttempts; attempt++ {
		result, err := r.breaker.Execute(func() (any, error) {
			return fn(ctx)
		})
		if err == nil {
			return result
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Circuit open: short-circuit to the unresolved fallback
			// without waiting out the remaining attempts.
			r.logger.Warn("directory circuit open, returning unresolved", "error", err)
			return nil
		}

		if attempt == r.config.RetryAttempts {
			break
		}

		select {
		case <-ctx.Done():
			r.logger.Warn("directory lookup cancelled", "error", ctx.Err())
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	r.logger.Error("directory lookup exhausted all attempts",
		"attempts", r.config.RetryAttempts,
		"error", lastErr)
	return nil
}
