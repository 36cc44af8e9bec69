package factory

import (
	"context"
	"fmt"

	"github.com/mikey/mail-threat-analyzer/internal/adapters/resolver"
	"github.com/mikey/mail-threat-analyzer/internal/auth"
	"github.com/mikey/mail-threat-analyzer/internal/config"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/metrics"
	"go.uber.org/zap"
)

// ResolverFactory creates the DNS side of the authentication checker
type ResolverFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewResolverFactory creates a new resolver factory
func NewResolverFactory(cfg *config.Config, logger *zap.Logger) *ResolverFactory {
	return &ResolverFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateResolver creates a TXT resolver, cached when a cache type is set
func (f *ResolverFactory) CreateResolver(ctx context.Context) (auth.TXTResolver, error) {
	dnsCfg := f.cfg.GetDNS()
	if !dnsCfg.Enabled {
		f.logger.Info("DNS lookups disabled, authentication checks will report NONE")
		return resolver.Offline{}, nil
	}

	base, err := resolver.NewDNSResolver(dnsCfg.Servers, dnsCfg.ResolvConf, dnsCfg.Timeout, f.logger)
	if err != nil {
		return nil, err
	}

	var cache resolver.AnswerCache
	switch dnsCfg.CacheType {
	case "", "none":
		return base, nil
	case "memory":
		cache = resolver.NewMemoryCache(f.logger, dnsCfg.CacheCleanupFreq)
	case "redis":
		cache, err = resolver.NewRedisCache(ctx, dnsCfg.RedisURL, f.logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported DNS cache type: %s", dnsCfg.CacheType)
	}

	return resolver.NewCachedResolver(base, cache, dnsCfg.CacheTTL, f.logger), nil
}

// CreateChecker creates the authentication checker over r
func (f *ResolverFactory) CreateChecker(r auth.TXTResolver) (*auth.Checker, error) {
	authCfg := f.cfg.GetAuth()
	checker, err := auth.NewChecker(r, auth.Options{
		SPFTrustedIncludes:     authCfg.SPFTrustedIncludes,
		DMARCUnknownPolicy:     core.AuthStatus(authCfg.DMARCUnknownPolicy),
		DMARCOrgDomainFallback: authCfg.DMARCOrgDomainFallback,
		LookupTimeout:          f.cfg.GetDNS().Timeout,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("auth.dmarc_unknown_policy: %w", err)
	}
	checker.OnResult(func(check string, status core.AuthStatus) {
		metrics.AuthResults.WithLabelValues(check, string(status)).Inc()
	})
	return checker, nil
}
