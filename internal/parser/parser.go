// Package parser turns raw mail file contents into a core.ParsedMessage.
// It never fails: malformed input yields a best-effort partial result.
package parser

import (
	"strings"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

// Parser implements core.MessageParser
type Parser struct {
	logger                *zap.Logger
	unknownAttachmentSize int64
}

// New creates a parser. unknownAttachmentSize is reported for attachments
// whose real size cannot be read from the MIME structure.
func New(logger *zap.Logger, unknownAttachmentSize int64) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		logger:                logger,
		unknownAttachmentSize: unknownAttachmentSize,
	}
}

// Parse splits raw into headers and body and extracts links and attachments
func (p *Parser) Parse(raw string, fileName string) *core.ParsedMessage {
	headerLines, body := splitMessage(raw)
	headers := unfold(headerLines)

	msg := &core.ParsedMessage{
		Headers:       collectHeaders(headers),
		DKIMSignature: firstHeader(headers, "dkim-signature"),
		Body:          body,
		Links:         extractLinks(body),
		Attachments:   p.extractAttachments(raw),
	}

	p.logger.Debug("Parsed message",
		zap.String("file_name", fileName),
		zap.Int("header_lines", len(headerLines)),
		zap.Int("body_size", len(body)),
		zap.Int("links", len(msg.Links)),
		zap.Int("attachments", len(msg.Attachments)))

	return msg
}

type header struct {
	name  string
	value string
}

// splitMessage cuts the message at the first blank line. Without one the
// whole message is header block and the body is empty.
func splitMessage(raw string) ([]string, string) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			return lines[:i], strings.Join(lines[i+1:], "\n")
		}
	}
	return lines, ""
}

// unfold joins continuation lines onto the header they follow. Lines that
// are neither a header nor a continuation are skipped.
func unfold(lines []string) []header {
	var headers []header
	current := -1

	for _, line := range lines {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if current >= 0 {
				headers[current].value += " " + strings.TrimSpace(line)
			}
			continue
		}

		colon := strings.Index(line, ":")
		if colon <= 0 {
			current = -1
			continue
		}

		headers = append(headers, header{
			name:  strings.ToLower(strings.TrimSpace(line[:colon])),
			value: strings.TrimSpace(line[colon+1:]),
		})
		current = len(headers) - 1
	}

	return headers
}

// firstHeader returns the topmost value of a header, "" when absent
func firstHeader(headers []header, name string) string {
	for _, h := range headers {
		if h.name == name {
			return h.value
		}
	}
	return ""
}

// collectHeaders keeps from, to, subject and date; a repeated header
// overrides the earlier one
func collectHeaders(headers []header) core.MessageHeaders {
	var out core.MessageHeaders
	for _, h := range headers {
		switch h.name {
		case "from":
			out.From = h.value
		case "to":
			out.To = h.value
		case "subject":
			out.Subject = h.value
		case "date":
			out.Date = h.value
		}
	}
	return out
}
