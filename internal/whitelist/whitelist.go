package whitelist

import (
	"strings"

	"github.com/mikey/mail-threat-analyzer/internal/linkcheck"
	"go.uber.org/zap"
)

// Checker reports whether a sender belongs to a trusted domain. Trusted
// senders are exempt from the heuristic sender-domain signal.
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new trusted sender checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}

	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		if domain != "" {
			normalized = append(normalized, domain)
		}
	}

	if len(normalized) > 0 {
		logger.Info("Initialized trusted sender domains", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsTrusted checks if the sender's domain, or a parent of it, is trusted
func (c *Checker) IsTrusted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := linkcheck.SenderDomain(from)
	if domain == "" {
		return false
	}

	for _, trusted := range c.domains {
		if domain == trusted || strings.HasSuffix(domain, "."+trusted) {
			c.logger.Debug("Sender domain is trusted",
				zap.String("domain", domain),
				zap.String("from", from))
			return true
		}
	}

	return false
}
