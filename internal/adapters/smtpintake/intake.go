package smtpintake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/linkcheck"
	"github.com/mikey/mail-threat-analyzer/internal/utils"
	"go.uber.org/zap"
)

const (
	defaultMaxMessageBytes = 10 * 1024 * 1024
	maxReasonRunes         = 200
	analysisTimeout        = 60 * time.Second
)

// Analyzer runs one upload through the analysis pipeline
type Analyzer interface {
	Analyze(ctx context.Context, upload core.Upload) (*core.AnalysisRecord, error)
}

// Options configures the SMTP intake
type Options struct {
	ListenAddress    string
	Domain           string
	RiskHeader       string
	ConfidenceHeader string
	ReasonHeader     string
	RelayEnabled     bool
	RelayAddress     string
	RelayPort        int
	// MaxMessageBytes bounds DATA; larger messages get 552 and never reach the analyzer
	MaxMessageBytes  int64
}

// Intake accepts mail over SMTP, analyzes it and optionally relays it to
// the next hop with threat headers prepended
type Intake struct {
	analyzer Analyzer
	opts     Options
	logger   *zap.Logger

	mu       sync.Mutex
	server   *smtp.Server
	listener net.Listener
}

// New creates a new SMTP intake
func New(analyzer Analyzer, opts Options, logger *zap.Logger) *Intake {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Domain == "" {
		opts.Domain = "localhost"
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = defaultMaxMessageBytes
	}
	return &Intake{
		analyzer: analyzer,
		opts:     opts,
		logger:   logger,
	}
}

// Start starts listening in the background
func (in *Intake) Start() error {
	server := smtp.NewServer(&backend{intake: in})
	server.Domain = in.opts.Domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = in.opts.MaxMessageBytes
	server.MaxRecipients = 50

	l, err := net.Listen("tcp", in.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", in.opts.ListenAddress, err)
	}
	in.mu.Lock()
	in.server = server
	in.listener = l
	in.mu.Unlock()

	in.logger.Info("SMTP intake starting",
		zap.String("address", l.Addr().String()),
		zap.Bool("relay", in.opts.RelayEnabled),
		zap.Int64("max_message_bytes", in.opts.MaxMessageBytes))

	go func() {
		if err := server.Serve(l); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			in.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop closes the listener and all open sessions. Later calls are no-ops.
func (in *Intake) Stop() error {
	in.mu.Lock()
	server := in.server
	in.server = nil
	in.mu.Unlock()

	if server != nil {
		return server.Close()
	}
	return nil
}

// Addr returns the bound address once started
func (in *Intake) Addr() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.listener == nil {
		return ""
	}
	return in.listener.Addr().String()
}

// process analyzes one message and relays it when configured
func (in *Intake) process(sender string, recipients []string, raw []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	fileName := "smtp-" + uuid.NewString() + ".eml"
	record, err := in.analyzer.Analyze(ctx, core.Upload{
		FileName: fileName,
		FileSize: int64(len(raw)),
		Content:  raw,
	})
	if err != nil {
		in.logger.Error("Failed to analyze message",
			zap.String("sender", sender),
			zap.String("sender_domain", linkcheck.SenderDomain(sender)),
			zap.Error(err))
		if !in.opts.RelayEnabled {
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 3, 0},
				Message:      "Analysis temporarily unavailable",
			}
		}
		// Fail open: the message still reaches the next hop
		return in.relay(sender, recipients, in.errorHeaders(err, raw))
	}

	in.logger.Info("Processed message",
		zap.Int64("id", record.ID),
		zap.String("file_name", fileName),
		zap.String("sender", sender),
		zap.String("risk_level", string(record.Verdict.RiskLevel)),
		zap.Int("confidence", record.Verdict.Confidence))

	if !in.opts.RelayEnabled {
		return nil
	}
	return in.relay(sender, recipients, in.stampHeaders(record.Verdict, raw))
}

// stampHeaders prepends the threat headers to the raw message
func (in *Intake) stampHeaders(v core.RiskVerdict, raw []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %s\r\n", in.opts.RiskHeader, v.RiskLevel)
	fmt.Fprintf(&buf, "%s: %s\r\n", in.opts.ConfidenceHeader, strconv.Itoa(v.Confidence))
	fmt.Fprintf(&buf, "%s: %s\r\n", in.opts.ReasonHeader, headerValue(v.Assessment))
	buf.Write(raw)
	return buf.Bytes()
}

func (in *Intake) errorHeaders(err error, raw []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "X-Threat-Analysis-Error: %s\r\n", headerValue(err.Error()))
	buf.Write(raw)
	return buf.Bytes()
}

// headerValue flattens s onto one bounded line
func headerValue(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if short := utils.TruncateRunes(s, maxReasonRunes); short != s {
		return short + "..."
	}
	return s
}

// relay sends the message to the next hop
func (in *Intake) relay(sender string, recipients []string, data []byte) error {
	addr := net.JoinHostPort(in.opts.RelayAddress, strconv.Itoa(in.opts.RelayPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			in.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return errors.New("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		in.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

type backend struct {
	intake *Intake
}

// NewSession creates a new SMTP session
func (b *backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &session{intake: b.intake}, nil
}

type session struct {
	intake     *Intake
	sender     string
	recipients []string
}

func (s *session) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.intake.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}
	return s.intake.process(s.sender, s.recipients, raw)
}

func (s *session) Logout() error {
	return nil
}
