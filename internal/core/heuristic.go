package core

import (
	"fmt"
	"strings"

	"github.com/mikey/mail-threat-analyzer/internal/linkcheck"
)

// Points added by each heuristic signal
const (
	senderDomainPoints   = 30
	suspiciousLinkPoints = 25
	urgencyPoints        = 20
	attachmentPoints     = 15

	highThreshold   = 50
	mediumThreshold = 25

	baseConfidence         = 40
	maxHeuristicConfidence = 80

	minUrgencyKeywords = 2
)

var urgencyKeywords = []string{"urgent", "immediate", "expires", "suspend", "verify", "confirm", "click here"}

var defaultRecommendations = []string{"Continue monitoring", "No immediate action required"}

// TrustedSenders exempts known sender domains from the sender-domain signal
type TrustedSenders interface {
	IsTrusted(from string) bool
}

// HeuristicVerdict scores a message with fixed rules. It performs no I/O and
// returns the same verdict for the same input every time.
func HeuristicVerdict(msg *ParsedMessage, trusted TrustedSenders) RiskVerdict {
	score := 0
	var issues, recommendations []string

	from := msg.Headers.From
	if linkcheck.IsSuspiciousSender(from) && (trusted == nil || !trusted.IsTrusted(from)) {
		score += senderDomainPoints
		issues = append(issues, "Sender domain appears suspicious")
		recommendations = append(recommendations, "Verify sender domain authenticity")
	}

	if n := msg.SuspiciousLinkCount(); n > 0 {
		score += suspiciousLinkPoints
		issues = append(issues, fmt.Sprintf("Found %d suspicious link(s)", n))
		recommendations = append(recommendations, "Scan all links with URL reputation services")
	}

	if countUrgencyKeywords(msg.Body) >= minUrgencyKeywords {
		score += urgencyPoints
		issues = append(issues, "Contains urgent/pressure language")
		recommendations = append(recommendations, "User awareness training on pressure tactics")
	}

	if n := len(msg.Attachments); n > 0 {
		score += attachmentPoints
		issues = append(issues, fmt.Sprintf("Contains %d attachment(s)", n))
		recommendations = append(recommendations, "Scan attachments in isolated environment")
	}

	verdict := RiskVerdict{
		RiskLevel:  levelForScore(score),
		Confidence: min(maxHeuristicConfidence, baseConfidence+score),
		ModelUsed:  "heuristic",
	}
	if len(issues) > 0 {
		verdict.Assessment = "Heuristic analysis identified the following concerns: " + strings.Join(issues, ", ")
		verdict.Recommendations = recommendations
	} else {
		verdict.Assessment = "No significant threats detected in heuristic analysis"
		verdict.Recommendations = append([]string(nil), defaultRecommendations...)
	}
	return verdict
}

// countUrgencyKeywords counts distinct keywords present in body
func countUrgencyKeywords(body string) int {
	lower := strings.ToLower(body)
	count := 0
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}

func levelForScore(score int) RiskLevel {
	switch {
	case score >= highThreshold:
		return RiskHigh
	case score >= mediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}
