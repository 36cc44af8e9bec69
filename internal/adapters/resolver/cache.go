package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/auth"
	"github.com/mikey/mail-threat-analyzer/internal/metrics"
	"go.uber.org/zap"
)

// Answer is a cached TXT lookup outcome; NoRecords marks a negative answer
type Answer struct {
	Records   []string `json:"records"`
	NoRecords bool     `json:"no_records"`
}

// AnswerCache stores TXT answers keyed by query name
type AnswerCache interface {
	Get(ctx context.Context, name string) (*Answer, bool)
	Set(ctx context.Context, name string, answer *Answer, ttl time.Duration)
	Stop()
}

// CachedResolver puts an AnswerCache in front of another resolver. Lookup
// errors other than ErrNoRecords are never cached.
type CachedResolver struct {
	next   auth.TXTResolver
	cache  AnswerCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedResolver wraps next with cache
func NewCachedResolver(next auth.TXTResolver, cache AnswerCache, ttl time.Duration, logger *zap.Logger) *CachedResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedResolver{next: next, cache: cache, ttl: ttl, logger: logger}
}

// LookupTXT serves from cache when possible
func (r *CachedResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	key := strings.ToLower(strings.TrimSuffix(name, "."))

	if answer, ok := r.cache.Get(ctx, key); ok {
		metrics.DNSCache.WithLabelValues("hit").Inc()
		if answer.NoRecords {
			return nil, auth.ErrNoRecords
		}
		return append([]string(nil), answer.Records...), nil
	}
	metrics.DNSCache.WithLabelValues("miss").Inc()

	records, err := r.next.LookupTXT(ctx, name)
	switch {
	case errors.Is(err, auth.ErrNoRecords):
		r.cache.Set(ctx, key, &Answer{NoRecords: true}, r.ttl)
	case err == nil:
		r.cache.Set(ctx, key, &Answer{Records: records}, r.ttl)
	}
	return records, err
}

// Stop stops the underlying cache
func (r *CachedResolver) Stop() {
	r.cache.Stop()
}

// Offline answers every query with ErrNoRecords, so every check reports NONE
type Offline struct{}

// LookupTXT never touches the network
func (Offline) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return nil, auth.ErrNoRecords
}
