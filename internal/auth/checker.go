// Package auth resolves the SPF, DKIM and DMARC posture of a sender domain.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/linkcheck"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// ErrNoRecords is returned by a TXTResolver when the name exists without
// TXT data or does not exist at all
var ErrNoRecords = errors.New("no TXT records")

// TXTResolver looks up the TXT records of a name. Each returned string is
// one record with its character-strings already concatenated.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Options tune how published records are judged
type Options struct {
	// SPFTrustedIncludes are include mechanisms that make an SPF record PASS
	SPFTrustedIncludes []string
	// DMARCUnknownPolicy is reported when a DMARC record has no recognized p= tag
	DMARCUnknownPolicy core.AuthStatus
	// DMARCOrgDomainFallback retries the organizational domain when the
	// sender domain publishes no DMARC record
	DMARCOrgDomainFallback bool
	// LookupTimeout bounds every single DNS query
	LookupTimeout time.Duration
}

// Checker implements core.AuthenticationChecker
type Checker struct {
	resolver TXTResolver
	opts     Options
	logger   *zap.Logger
	observe  func(check string, status core.AuthStatus)
}

// NewChecker creates a checker backed by resolver. An unknown
// DMARCUnknownPolicy status is rejected.
func NewChecker(resolver TXTResolver, opts Options, logger *zap.Logger) (*Checker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DMARCUnknownPolicy == "" {
		opts.DMARCUnknownPolicy = core.AuthPass
	}
	if !opts.DMARCUnknownPolicy.Valid() {
		return nil, fmt.Errorf("invalid DMARC unknown policy status %q: want PASS, FAIL, NEUTRAL or NONE", opts.DMARCUnknownPolicy)
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 3 * time.Second
	}
	return &Checker{
		resolver: resolver,
		opts:     opts,
		logger:   logger,
	}, nil
}

// OnResult registers a callback invoked once per finished check
func (c *Checker) OnResult(fn func(check string, status core.AuthStatus)) {
	c.observe = fn
}

// Check runs the three checks concurrently. It never fails: lookup errors
// and timeouts degrade the affected check only.
func (c *Checker) Check(ctx context.Context, from string, dkimSignature string) core.AuthenticationResult {
	domain := linkcheck.SenderDomain(from)
	if domain == "" {
		return core.NoAuthentication
	}

	var (
		wg     sync.WaitGroup
		result core.AuthenticationResult
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		result.SPF = c.report("spf", c.checkSPF(ctx, domain))
	}()
	go func() {
		defer wg.Done()
		result.DKIM = c.report("dkim", c.checkDKIM(ctx, domain, dkimSignature))
	}()
	go func() {
		defer wg.Done()
		result.DMARC = c.report("dmarc", c.checkDMARC(ctx, domain))
	}()
	wg.Wait()

	c.logger.Debug("Authentication checked",
		zap.String("domain", domain),
		zap.String("spf", string(result.SPF)),
		zap.String("dkim", string(result.DKIM)),
		zap.String("dmarc", string(result.DMARC)))

	return result
}

func (c *Checker) report(check string, status core.AuthStatus) core.AuthStatus {
	if c.observe != nil {
		c.observe(check, status)
	}
	return status
}

func (c *Checker) lookup(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.LookupTimeout)
	defer cancel()

	records, err := c.resolver.LookupTXT(ctx, name)
	if err != nil && !errors.Is(err, ErrNoRecords) {
		c.logger.Debug("TXT lookup failed", zap.String("name", name), zap.Error(err))
	}
	return records, err
}

func (c *Checker) checkSPF(ctx context.Context, domain string) core.AuthStatus {
	records, err := c.lookup(ctx, domain)
	if err != nil {
		return core.AuthNone
	}

	record, ok := findRecord(records, "v=spf1")
	if !ok {
		return core.AuthNone
	}

	terms := strings.Fields(strings.ToLower(record))
	for _, include := range c.opts.SPFTrustedIncludes {
		for _, term := range terms {
			if strings.EqualFold(term, include) {
				return core.AuthPass
			}
		}
	}
	for _, term := range terms {
		if term == "-all" {
			return core.AuthFail
		}
	}
	return core.AuthNeutral
}

func (c *Checker) checkDKIM(ctx context.Context, domain string, signature string) core.AuthStatus {
	if strings.TrimSpace(signature) == "" {
		return core.AuthNone
	}

	selector := parseTags(signature)["s"]
	if selector == "" || strings.ContainsAny(selector, " \t/") {
		return core.AuthFail
	}

	records, err := c.lookup(ctx, selector+"._domainkey."+domain)
	if err != nil {
		return core.AuthNone
	}

	for _, record := range records {
		tags := parseTags(record)
		if strings.EqualFold(tags["k"], "rsa") || tags["p"] != "" {
			return core.AuthPass
		}
	}
	return core.AuthFail
}

func (c *Checker) checkDMARC(ctx context.Context, domain string) core.AuthStatus {
	record, err := c.dmarcRecord(ctx, domain)
	if err != nil {
		return core.AuthNone
	}
	if record == "" && c.opts.DMARCOrgDomainFallback {
		if org, perr := publicsuffix.EffectiveTLDPlusOne(domain); perr == nil && org != domain {
			record, err = c.dmarcRecord(ctx, org)
			if err != nil {
				return core.AuthNone
			}
		}
	}
	if record == "" {
		return core.AuthNone
	}

	switch strings.ToLower(parseTags(record)["p"]) {
	case "reject":
		return core.AuthPass
	case "quarantine", "none":
		return core.AuthNeutral
	default:
		return c.opts.DMARCUnknownPolicy
	}
}

// dmarcRecord returns the DMARC record published at _dmarc.domain, "" when
// the name has no such record
func (c *Checker) dmarcRecord(ctx context.Context, domain string) (string, error) {
	records, err := c.lookup(ctx, "_dmarc."+domain)
	if errors.Is(err, ErrNoRecords) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	record, _ := findRecord(records, "v=DMARC1")
	return record, nil
}
