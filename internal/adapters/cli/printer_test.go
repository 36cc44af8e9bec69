package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleRecord() *core.AnalysisRecord {
	return &core.AnalysisRecord{
		ID:         7,
		FileName:   "invoice.eml",
		FileSize:   2048,
		UploadedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Headers: core.MessageHeaders{
			From:    "security@paypa1.com",
			To:      "bob@example.org",
			Subject: "URGENT: verify your account",
		},
		Authentication: core.AuthenticationResult{SPF: core.AuthFail, DKIM: core.AuthNone, DMARC: core.AuthNone},
		Verdict: core.RiskVerdict{
			RiskLevel:       core.RiskHigh,
			Assessment:      "Detected potential threats",
			Confidence:      80,
			Recommendations: []string{"Do not click any links"},
			ModelUsed:       "heuristic",
		},
		Links: []core.Link{
			{URL: "http://bit.ly/x", DisplayText: "http://bit.ly/x", Suspicious: true},
		},
		Attachments: []core.Attachment{
			{Name: "invoice.pdf", MimeType: "application/pdf", Hash: "1a2b3c4d"},
		},
		Body: "Click now",
	}
}

func TestNewPrinterRejectsUnknownFormat(t *testing.T) {
	_, err := NewPrinter(&bytes.Buffer{}, "xml", false)
	assert.Error(t, err)

	p, err := NewPrinter(&bytes.Buffer{}, "", false)
	require.NoError(t, err)
	assert.Equal(t, FormatPretty, p.format)
}

func TestPrintPretty(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatPretty, true)
	require.NoError(t, err)
	require.NoError(t, p.Print(sampleRecord()))

	out := buf.String()
	for _, want := range []string{
		"Analysis #7", "invoice.eml (2.0 kB)", "security@paypa1.com",
		"FAIL", "HIGH", "Confidence 80%", "Do not click any links",
		"http://bit.ly/x", "size unknown", "1a2b3c4d", "Click now",
	} {
		assert.Contains(t, out, want)
	}
}

func TestPrintJSONUsesExportShape(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatJSON, false)
	require.NoError(t, err)
	require.NoError(t, p.Print(sampleRecord()))

	var export core.Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, int64(7), export.Analysis.ID)
	assert.Equal(t, core.RiskHigh, export.Analysis.RiskLevel)
	assert.Equal(t, "Detected potential threats", export.Assessment.Description)
	assert.Len(t, export.ExtractedData.Links, 1)
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatYAML, false)
	require.NoError(t, err)
	require.NoError(t, p.Print(sampleRecord()))

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "HIGH", doc["analysis"]["riskLevel"])
	assert.Equal(t, "FAIL", doc["authentication"]["spf"])
}

type stubAnalyzer struct {
	upload core.Upload
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, upload core.Upload) (*core.AnalysisRecord, error) {
	s.upload = upload
	if s.err != nil {
		return nil, s.err
	}
	r := sampleRecord()
	r.FileName = upload.FileName
	return r, nil
}

func TestRunnerAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "message.eml")
	require.NoError(t, os.WriteFile(path, []byte("Subject: hi\n\nbody"), 0o644))

	var buf bytes.Buffer
	p, err := NewPrinter(&buf, FormatJSON, false)
	require.NoError(t, err)
	analyzer := &stubAnalyzer{}

	record, err := NewRunner(analyzer, p, 1024, nil).AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "message.eml", record.FileName)
	assert.Equal(t, "message.eml", analyzer.upload.FileName)
	assert.Equal(t, int64(17), analyzer.upload.FileSize)
	assert.Contains(t, buf.String(), `"fileName": "message.eml"`)
}

func TestRunnerErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.eml")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 100), 0o644))

	p, err := NewPrinter(&bytes.Buffer{}, FormatPretty, false)
	require.NoError(t, err)

	_, err = NewRunner(&stubAnalyzer{}, p, 10, nil).AnalyzeFile(context.Background(), path)
	assert.ErrorContains(t, err, "larger than")

	_, err = NewRunner(&stubAnalyzer{}, p, 0, nil).AnalyzeFile(context.Background(), filepath.Join(dir, "missing.eml"))
	assert.Error(t, err)

	_, err = NewRunner(&stubAnalyzer{}, p, 0, nil).AnalyzeFile(context.Background(), dir)
	assert.ErrorContains(t, err, "is a directory")

	_, err = NewRunner(&stubAnalyzer{err: errors.New("store down")}, p, 0, nil).AnalyzeFile(context.Background(), path)
	assert.ErrorContains(t, err, "store down")
}
