package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lens/pkg/utils"
)

// Retry policy defaults.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxAttempts  = 5
	DefaultShrinkFactor = 0.8
)

// Policy bounds the attempts made for one text.
type Policy struct {
	Timeout      time.Duration
	MaxAttempts  int
	ShrinkFactor float64
	CacheSize    int
}

func (p Policy) withDefaults() Policy {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.ShrinkFactor <= 0 || p.ShrinkFactor >= 1 {
		p.ShrinkFactor = DefaultShrinkFactor
	}
	return p
}

// Embedding is the result of a successful Embed. Text is the (possibly shortened)
// text the vector was computed from.
type Embedding struct {
	Vector    []float32
	Text      string
	Attempts  int
	Truncated bool
}

// Resilient wraps an Embedder with per-attempt timeouts, plain retries for transient
// failures and word-boundary shrinking for over-long input.
type Resilient struct {
	provider Embedder
	policy   Policy
	cache    *QueryCache
	backoff  func(attempt int) time.Duration
	logger   *zap.Logger
}

// Option configures a Resilient embedder.
type Option func(*Resilient)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resilient) { r.logger = utils.OrNop(l) }
}

// WithBackoff replaces the delay before a transient retry.
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(r *Resilient) { r.backoff = f }
}

// NewResilient wraps provider with the given policy.
func NewResilient(provider Embedder, policy Policy, opts ...Option) *Resilient {
	r := &Resilient{
		provider: provider,
		policy:   policy.withDefaults(),
		backoff:  retryDelay,
		logger:   zap.NewNop(),
	}
	r.cache = NewQueryCache(r.policy.CacheSize)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Embed embeds text. Over-long input is retried with the text cut to
// floor(ShrinkFactor*words) words; transient failures are retried unchanged; any other
// failure is returned at once. After MaxAttempts failed attempts it returns ErrExhausted.
func (r *Resilient) Embed(ctx context.Context, text string) (*Embedding, error) {
	current := text
	truncated := false
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := r.once(ctx, current)
		if err == nil {
			if len(vec) != r.provider.Dimensions() {
				return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), r.provider.Dimensions())
			}
			return &Embedding{Vector: vec, Text: current, Attempts: attempt, Truncated: truncated}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		switch {
		case IsInputTooLong(err):
			shorter, ok := Shrink(current, r.policy.ShrinkFactor)
			if !ok {
				return nil, fmt.Errorf("%w: cannot shorten below one word: %w", ErrExhausted, err)
			}
			r.logger.Debug("Input too long, shrinking",
				zap.Int("attempt", attempt),
				zap.Int("words", len(SplitWords(shorter))))
			current = shorter
			truncated = true
		case IsTransient(err):
			r.logger.Debug("Transient embedding failure, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			if attempt < r.policy.MaxAttempts {
				if err := sleepCtx(ctx, r.backoff(attempt)); err != nil {
					return nil, err
				}
			}
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.policy.MaxAttempts, lastErr)
}

// EmbedQuery embeds a query with the same provider and policy as Embed, caching the vector by text.
func (r *Resilient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := r.cache.Lookup(text); ok {
		return cached, nil
	}
	emb, err := r.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	r.cache.Store(text, emb.Vector)
	return emb.Vector, nil
}

// CacheStats reports the query cache counters.
func (r *Resilient) CacheStats() CacheStats { return r.cache.Stats() }

// Dimensions returns the provider's vector dimension.
func (r *Resilient) Dimensions() int { return r.provider.Dimensions() }

// Model returns the provider's model name.
func (r *Resilient) Model() string { return r.provider.Model() }

// Close releases the provider.
func (r *Resilient) Close() error { return r.provider.Close() }

func (r *Resilient) once(ctx context.Context, text string) ([]float32, error) {
	cctx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()
	vec, err := r.provider.Embed(cctx, text)
	if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: attempt timed out after %s", ErrTransient, r.policy.Timeout)
	}
	return vec, err
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
