package core

import (
	"context"
	"errors"
)

// ErrNotFound is returned by an AnalysisStore when no record has the requested id
var ErrNotFound = errors.New("analysis not found")

// VerdictRequest is the bounded payload sent to a verdict provider
type VerdictRequest struct {
	SystemInstruction string
	Prompt            string
}

// VerdictProvider defines the interface for interacting with LLM services
type VerdictProvider interface {
	// RequestVerdict submits the prompt and returns the raw completion text
	// together with the model that produced it
	RequestVerdict(ctx context.Context, req VerdictRequest) (text string, model string, err error)
}

// MessageParser turns raw message text into a ParsedMessage
type MessageParser interface {
	Parse(raw string, fileName string) *ParsedMessage
}

// AuthenticationChecker resolves the SPF/DKIM/DMARC posture of a sender
type AuthenticationChecker interface {
	// Check never fails; DNS problems degrade to NONE or FAIL
	Check(ctx context.Context, from string, dkimSignature string) AuthenticationResult
}

// AnalysisStore persists analysis records and owns id assignment
type AnalysisStore interface {
	// Create assigns a new monotonic id and creation time
	Create(ctx context.Context, analysis *NewAnalysis) (*AnalysisRecord, error)

	// Get retrieves a record by id, returning ErrNotFound if absent
	Get(ctx context.Context, id int64) (*AnalysisRecord, error)

	// ListRecent returns up to limit records, most recent first
	ListRecent(ctx context.Context, limit int) ([]*AnalysisRecord, error)

	// Stats aggregates all records
	Stats(ctx context.Context) (*AnalysisStats, error)
}
