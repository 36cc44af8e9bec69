package store

import (
	"encoding/json"
	"fmt"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/metrics"
)

// recordColumns is the column order shared by every SQL store
const recordColumns = `id, file_name, file_size, uploaded_at, sender, recipient, subject, sent_date,
	spf, dkim, dmarc, risk_level, confidence, assessment, recommendations, model_used,
	links, attachments, body`

// rowScanner is satisfied by *sql.Row, *sql.Rows and pgx.Row
type rowScanner interface {
	Scan(dest ...any) error
}

// jsonColumns holds the list-valued fields serialized for storage
type jsonColumns struct {
	recommendations string
	links           string
	attachments     string
}

func encodeColumns(a *core.NewAnalysis) (jsonColumns, error) {
	var cols jsonColumns
	recs, err := marshalList(a.Verdict.Recommendations)
	if err != nil {
		return cols, fmt.Errorf("failed to encode recommendations: %w", err)
	}
	links, err := marshalList(a.Links)
	if err != nil {
		return cols, fmt.Errorf("failed to encode links: %w", err)
	}
	atts, err := marshalList(a.Attachments)
	if err != nil {
		return cols, fmt.Errorf("failed to encode attachments: %w", err)
	}
	return jsonColumns{recommendations: recs, links: links, attachments: atts}, nil
}

func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	return string(data), err
}

func scanRecord(row rowScanner) (*core.AnalysisRecord, error) {
	var (
		r                       core.AnalysisRecord
		cols                    jsonColumns
		spf, dkim, dmarc, level string
	)
	err := row.Scan(
		&r.ID, &r.FileName, &r.FileSize, &r.UploadedAt,
		&r.Headers.From, &r.Headers.To, &r.Headers.Subject, &r.Headers.Date,
		&spf, &dkim, &dmarc, &level, &r.Verdict.Confidence, &r.Verdict.Assessment,
		&cols.recommendations, &r.Verdict.ModelUsed,
		&cols.links, &cols.attachments, &r.Body,
	)
	if err != nil {
		return nil, err
	}

	r.Authentication = core.AuthenticationResult{
		SPF:   core.AuthStatus(spf),
		DKIM:  core.AuthStatus(dkim),
		DMARC: core.AuthStatus(dmarc),
	}
	r.Verdict.RiskLevel = core.RiskLevel(level)
	r.UploadedAt = r.UploadedAt.UTC()

	if err := json.Unmarshal([]byte(cols.recommendations), &r.Verdict.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to decode recommendations: %w", err)
	}
	if err := json.Unmarshal([]byte(cols.links), &r.Links); err != nil {
		return nil, fmt.Errorf("failed to decode links: %w", err)
	}
	if err := json.Unmarshal([]byte(cols.attachments), &r.Attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments: %w", err)
	}
	return &r, nil
}

func observe(operation string, err error) {
	metrics.StoreOperations.WithLabelValues(operation, metrics.Success(err)).Inc()
}
