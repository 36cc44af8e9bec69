package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/mikey/mail-threat-analyzer/internal/auth"
	"go.uber.org/zap"
)

const ednsBufferSize = 4096

// DNSResolver answers TXT queries with miekg/dns so every query honours
// the caller's context deadline. Truncated UDP answers are retried over TCP.
type DNSResolver struct {
	servers   []string
	client    *mdns.Client
	tcpClient *mdns.Client
	logger    *zap.Logger
}

// NewDNSResolver creates a resolver for explicit "host:port" servers. When
// servers is empty the nameservers of resolvConf are used.
func NewDNSResolver(servers []string, resolvConf string, timeout time.Duration, logger *zap.Logger) (*DNSResolver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(servers) == 0 {
		conf, err := mdns.ClientConfigFromFile(resolvConf)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolvConf, err)
		}
		for _, s := range conf.Servers {
			servers = append(servers, net.JoinHostPort(s, conf.Port))
		}
	}
	if len(servers) == 0 {
		return nil, errors.New("no DNS servers configured")
	}

	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}

	logger.Info("Initialized DNS resolver", zap.Strings("servers", normalized))

	return &DNSResolver{
		servers:   normalized,
		client:    &mdns.Client{Timeout: timeout},
		tcpClient: &mdns.Client{Net: "tcp", Timeout: timeout},
		logger:    logger,
	}, nil
}

// LookupTXT queries each server in turn until one answers
func (r *DNSResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(name), mdns.TypeTXT)
	m.RecursionDesired = true
	m.SetEdns0(ednsBufferSize, false)

	var lastErr error
	for _, server := range r.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := r.exchange(ctx, m, server)
		if err != nil {
			r.logger.Debug("DNS exchange failed",
				zap.String("server", server),
				zap.String("name", name),
				zap.Error(err))
			lastErr = err
			continue
		}

		switch resp.Rcode {
		case mdns.RcodeSuccess:
		case mdns.RcodeNameError:
			return nil, auth.ErrNoRecords
		default:
			lastErr = fmt.Errorf("%s answered %s for %s", server, mdns.RcodeToString[resp.Rcode], name)
			continue
		}

		var records []string
		for _, ans := range resp.Answer {
			if t, ok := ans.(*mdns.TXT); ok {
				records = append(records, strings.Join(t.Txt, ""))
			}
		}
		if len(records) == 0 {
			return nil, auth.ErrNoRecords
		}
		return records, nil
	}

	return nil, lastErr
}

// exchange asks server over UDP and repeats the query over TCP when the
// answer comes back truncated
func (r *DNSResolver) exchange(ctx context.Context, m *mdns.Msg, server string) (*mdns.Msg, error) {
	resp, _, err := r.client.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, err
	}
	if !resp.Truncated {
		return resp, nil
	}

	r.logger.Debug("Truncated UDP answer, retrying over TCP", zap.String("server", server))
	resp, _, err = r.tcpClient.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, fmt.Errorf("TCP retry after truncation: %w", err)
	}
	if resp.Truncated {
		return nil, fmt.Errorf("%s returned a truncated answer over TCP", server)
	}
	return resp, nil
}
