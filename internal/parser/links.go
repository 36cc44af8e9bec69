package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/linkcheck"
	"github.com/mikey/mail-threat-analyzer/internal/utils"
)

const maxDisplayRunes = 50

var (
	urlPattern    = regexp.MustCompile(`(?i)https?://[^\s<>"']+`)
	anchorPattern = regexp.MustCompile(`(?i)<a\b[^>]*?href\s*=\s*["']?([^"'\s>]+)["']?[^>]*>([^<]*)</a>`)
)

// extractLinks returns one entry per URL match in body order; repeated URLs
// are kept
func extractLinks(body string) []core.Link {
	matches := urlPattern.FindAllString(body, -1)
	if len(matches) == 0 {
		return nil
	}

	anchors := anchorTexts(body)
	links := make([]core.Link, 0, len(matches))
	for _, url := range matches {
		links = append(links, core.Link{
			URL:         url,
			DisplayText: displayText(url, anchors),
			Suspicious:  linkcheck.IsSuspiciousURL(url),
		})
	}
	return links
}

// anchorTexts maps each anchor href to the trimmed text of its first anchor
func anchorTexts(body string) map[string]string {
	texts := make(map[string]string)
	for _, m := range anchorPattern.FindAllStringSubmatch(body, -1) {
		href, text := m[1], strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		if _, seen := texts[href]; !seen {
			texts[href] = text
		}
	}
	return texts
}

func displayText(url string, anchors map[string]string) string {
	if text, ok := anchors[url]; ok {
		return text
	}
	if utf8.RuneCountInString(url) > maxDisplayRunes {
		return utils.TruncateRunes(url, maxDisplayRunes) + "..."
	}
	return url
}
