package core

import (
	"time"
)

// RiskLevel is the coarse verdict of an analysis
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// AuthStatus is the outcome of a single SPF, DKIM or DMARC check
type AuthStatus string

const (
	AuthPass    AuthStatus = "PASS"
	AuthFail    AuthStatus = "FAIL"
	AuthNeutral AuthStatus = "NEUTRAL"
	AuthNone    AuthStatus = "NONE"
)

// Valid reports whether s is one of the four check outcomes
func (s AuthStatus) Valid() bool {
	switch s {
	case AuthPass, AuthFail, AuthNeutral, AuthNone:
		return true
	}
	return false
}

// MessageHeaders holds the only headers kept after parsing
type MessageHeaders struct {
	From    string `json:"from,omitempty" yaml:"from,omitempty"`
	To      string `json:"to,omitempty" yaml:"to,omitempty"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Date    string `json:"date,omitempty" yaml:"date,omitempty"`
}

// Link is a hyperlink found in the message body
type Link struct {
	URL         string `json:"url" yaml:"url"`
	DisplayText string `json:"text" yaml:"text"`
	Suspicious  bool   `json:"suspicious" yaml:"suspicious"`
}

// Attachment describes an attachment marker found in the raw message.
// Hash is a display fingerprint of the name and position, not a content digest.
type Attachment struct {
	Name         string `json:"name" yaml:"name"`
	SizeBytes    int64  `json:"size" yaml:"size"`
	SizeVerified bool   `json:"sizeVerified" yaml:"sizeVerified"`
	Hash         string `json:"hash" yaml:"hash"`
	MimeType     string `json:"type" yaml:"type"`
}

// ParsedMessage is the structured view of a raw email
type ParsedMessage struct {
	Headers MessageHeaders `json:"headers" yaml:"headers"`
	// DKIMSignature is the raw topmost DKIM-Signature value, kept only to
	// feed the authentication check
	DKIMSignature string       `json:"-" yaml:"-"`
	Body          string       `json:"body" yaml:"body"`
	Links         []Link       `json:"links" yaml:"links"`
	Attachments   []Attachment `json:"attachments" yaml:"attachments"`
}

// SuspiciousLinkCount returns how many links were flagged
func (m *ParsedMessage) SuspiciousLinkCount() int {
	count := 0
	for _, link := range m.Links {
		if link.Suspicious {
			count++
		}
	}
	return count
}

// AuthenticationResult is the DNS-derived sender authentication posture
type AuthenticationResult struct {
	SPF   AuthStatus `json:"spf" yaml:"spf"`
	DKIM  AuthStatus `json:"dkim" yaml:"dkim"`
	DMARC AuthStatus `json:"dmarc" yaml:"dmarc"`
}

// NoAuthentication is the result used when no sender domain can be resolved
var NoAuthentication = AuthenticationResult{SPF: AuthNone, DKIM: AuthNone, DMARC: AuthNone}

// RiskVerdict is the outcome of risk scoring
type RiskVerdict struct {
	RiskLevel       RiskLevel `json:"riskLevel" yaml:"riskLevel"`
	Assessment      string    `json:"assessment" yaml:"assessment"`
	Confidence      int       `json:"confidence" yaml:"confidence"`
	Recommendations []string  `json:"recommendations" yaml:"recommendations"`
	ModelUsed       string    `json:"modelUsed,omitempty" yaml:"modelUsed,omitempty"`
}

// Upload is a raw message handed to the pipeline by an intake
type Upload struct {
	FileName string
	FileSize int64
	Content  []byte
}

// NewAnalysis is an analysis record before the store assigns its identity
type NewAnalysis struct {
	FileName       string
	FileSize       int64
	Headers        MessageHeaders
	Authentication AuthenticationResult
	Verdict        RiskVerdict
	Links          []Link
	Attachments    []Attachment
	Body           string
}

// AnalysisRecord is a persisted, immutable analysis
type AnalysisRecord struct {
	ID             int64                `json:"id" yaml:"id"`
	FileName       string               `json:"fileName" yaml:"fileName"`
	FileSize       int64                `json:"fileSize" yaml:"fileSize"`
	UploadedAt     time.Time            `json:"uploadedAt" yaml:"uploadedAt"`
	Headers        MessageHeaders       `json:"email" yaml:"email"`
	Authentication AuthenticationResult `json:"authentication" yaml:"authentication"`
	Verdict        RiskVerdict          `json:"verdict" yaml:"verdict"`
	Links          []Link               `json:"links" yaml:"links"`
	Attachments    []Attachment         `json:"attachments" yaml:"attachments"`
	Body           string               `json:"body" yaml:"body"`
}

// AnalysisStats aggregates all stored analyses
type AnalysisStats struct {
	TotalAnalyzed int `json:"totalAnalyzed" yaml:"totalAnalyzed"`
	HighRisk      int `json:"highRisk" yaml:"highRisk"`
	MediumRisk    int `json:"mediumRisk" yaml:"mediumRisk"`
	LowRisk       int `json:"lowRisk" yaml:"lowRisk"`
	ThisWeek      int `json:"thisWeek" yaml:"thisWeek"`
}

// Count adds one record to the aggregate
func (s *AnalysisStats) Count(level RiskLevel, uploadedAt, weekAgo time.Time) {
	s.TotalAnalyzed++
	switch level {
	case RiskHigh:
		s.HighRisk++
	case RiskMedium:
		s.MediumRisk++
	case RiskLow:
		s.LowRisk++
	}
	if uploadedAt.After(weekAgo) {
		s.ThisWeek++
	}
}
