// Package linkcheck holds the single set of URL and domain suspicion rules
// shared by message parsing and heuristic scoring.
package linkcheck

import (
	"net"
	"regexp"
	"strings"
)

var (
	// shorteners match the host exactly or as a parent domain
	shorteners = []string{"bit.ly", "tinyurl.com", "t.co"}

	lowTrustTLDs = []string{".tk", ".ml", ".ga", ".cf"}

	// brandPatterns flag a brand name hosted under an unexpected TLD
	brandPatterns = []*regexp.Regexp{
		regexp.MustCompile(`paypal.*\.net$`),
		regexp.MustCompile(`amazon.*\.org$`),
		regexp.MustCompile(`microsoft.*\.tk$`),
		regexp.MustCompile(`google.*\.ml$`),
		regexp.MustCompile(`apple.*\.cf$`),
	}

	hostPattern   = regexp.MustCompile(`(?i)^https?://(?:[^@/?#]*@)?(\[[^\]]*\]|[^/:?#]+)`)
	domainPattern = regexp.MustCompile(`@([a-zA-Z0-9.-]+)`)

	// addressLiteralPattern matches an RFC 5322 domain literal such as user@[192.0.2.1]
	addressLiteralPattern = regexp.MustCompile(`@\[([0-9.]+)\]`)
)

// Host returns the lower-cased host of an http(s) URL, or "" if none can be found
func Host(rawURL string) string {
	m := hostPattern.FindStringSubmatch(strings.TrimSpace(rawURL))
	if m == nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(m[1]), ".")
}

// IsSuspiciousURL reports whether a link points at a shortener, a literal
// IPv4 host, a low-trust TLD or a brand-impersonation domain
func IsSuspiciousURL(rawURL string) bool {
	host := Host(rawURL)
	if host == "" {
		return false
	}

	for _, s := range shorteners {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	if isIPv4(host) {
		return true
	}
	for _, tld := range lowTrustTLDs {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return matchesBrand(host)
}

// IsSuspiciousSender reports whether the domain of a From header value
// impersonates a brand or is a bare or bracketed IPv4 address
func IsSuspiciousSender(from string) bool {
	if m := addressLiteralPattern.FindStringSubmatch(from); m != nil && isIPv4(m[1]) {
		return true
	}

	domain := SenderDomain(from)
	if domain == "" {
		domain = strings.ToLower(strings.TrimSpace(from))
	}
	if domain == "" {
		return false
	}
	return isIPv4(domain) || matchesBrand(domain)
}

// SenderDomain extracts the lower-cased domain following the first '@'
func SenderDomain(from string) string {
	m := domainPattern.FindStringSubmatch(from)
	if m == nil {
		return ""
	}
	return strings.Trim(strings.ToLower(m[1]), ".")
}

func matchesBrand(host string) bool {
	for _, p := range brandPatterns {
		if p.MatchString(host) {
			return true
		}
	}
	return false
}

func isIPv4(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil && strings.Count(host, ".") == 3
}
