package parser

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/jhillyerd/enmime"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

const defaultMimeType = "application/octet-stream"

var (
	dispositionPattern = regexp.MustCompile(`(?i)Content-Disposition:\s*attachment\s*;\s*filename\s*=\s*(?:"([^"]+)"|([^\s;"]+))`)

	mimeTypes = map[string]string{
		"pdf":  "application/pdf",
		"doc":  "application/msword",
		"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"xls":  "application/vnd.ms-excel",
		"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"txt":  "text/plain",
		"jpg":  "image/jpeg",
		"png":  "image/png",
		"zip":  "application/zip",
	}
)

// extractAttachments returns one descriptor per attachment disposition
// marker in the raw message
func (p *Parser) extractAttachments(raw string) []core.Attachment {
	matches := dispositionPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	sizes := p.partSizes(raw)
	attachments := make([]core.Attachment, 0, len(matches))
	for i, m := range matches {
		name := m[1]
		if name == "" {
			name = m[2]
		}

		att := core.Attachment{
			Name:      name,
			SizeBytes: p.unknownAttachmentSize,
			Hash:      Fingerprint(fmt.Sprintf("%s%d", name, i)),
			MimeType:  MimeTypeFor(name),
		}
		if queue := sizes[name]; len(queue) > 0 {
			att.SizeBytes = queue[0]
			att.SizeVerified = true
			sizes[name] = queue[1:]
		}
		attachments = append(attachments, att)
	}
	return attachments
}

// partSizes decodes the MIME tree and returns decoded part sizes by file
// name, in document order. A message enmime cannot read yields no sizes.
func (p *Parser) partSizes(raw string) map[string][]int64 {
	env, err := enmime.ReadEnvelope(strings.NewReader(raw))
	if err != nil {
		p.logger.Debug("MIME structure unreadable, attachment sizes unverified", zap.Error(err))
		return nil
	}

	sizes := make(map[string][]int64)
	for _, group := range [][]*enmime.Part{env.Attachments, env.Inlines, env.OtherParts} {
		for _, part := range group {
			if part.FileName == "" {
				continue
			}
			sizes[part.FileName] = append(sizes[part.FileName], int64(len(part.Content)))
		}
	}
	return sizes
}

// Fingerprint is a cheap 31-multiplier string hash over UTF-16 code units,
// rendered as up to 8 hex digits. It identifies an attachment for display
// and must not be used for integrity checks.
func Fingerprint(input string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(input)) {
		h = (h << 5) - h + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	hex := fmt.Sprintf("%x", abs)
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return hex
}

// MimeTypeFor maps a file extension to its content type
func MimeTypeFor(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	return defaultMimeType
}
