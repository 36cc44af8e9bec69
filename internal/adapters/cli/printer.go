package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/utils"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
)

// Printer renders analysis records for the terminal
type Printer struct {
	w       io.Writer
	format  string
	verbose bool
}

// NewPrinter creates a printer for one of the output formats
func NewPrinter(w io.Writer, format string, verbose bool) (*Printer, error) {
	switch format {
	case "", FormatPretty:
		format = FormatPretty
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported output format %q (want pretty, json or yaml)", format)
	}
	return &Printer{w: w, format: format, verbose: verbose}, nil
}

// Print writes r in the configured format. Machine formats use the export
// shape so they can be diffed against API downloads.
func (p *Printer) Print(r *core.AnalysisRecord) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(core.NewExport(r))
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(core.NewExport(r)); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(p.w, p.pretty(r))
		return err
	}
}

func (p *Printer) pretty(r *core.AnalysisRecord) string {
	var b strings.Builder

	line := func(label, value string) {
		if value == "" {
			value = MutedStyle.Render("-")
		}
		b.WriteString(LabelStyle.Render(label) + value + "\n")
	}

	b.WriteString(TitleStyle.Render(fmt.Sprintf("Analysis #%d", r.ID)) + "\n")
	line("File", fmt.Sprintf("%s (%s)", r.FileName, humanize.Bytes(uint64(r.FileSize))))

	b.WriteString(SectionStyle.Render("Email") + "\n")
	line("From", r.Headers.From)
	line("To", r.Headers.To)
	line("Subject", r.Headers.Subject)
	line("Date", r.Headers.Date)

	b.WriteString(SectionStyle.Render("Authentication") + "\n")
	line("SPF", FormatAuthStatus(r.Authentication.SPF))
	line("DKIM", FormatAuthStatus(r.Authentication.DKIM))
	line("DMARC", FormatAuthStatus(r.Authentication.DMARC))

	verdict := fmt.Sprintf("Risk %s  Confidence %d%%\n%s",
		FormatRiskLevel(r.Verdict.RiskLevel), r.Verdict.Confidence, r.Verdict.Assessment)
	b.WriteString(VerdictBoxStyle.BorderForeground(riskColor(r.Verdict.RiskLevel)).Render(verdict) + "\n")
	if r.Verdict.ModelUsed != "" {
		b.WriteString(MutedStyle.Render("Verdict by "+r.Verdict.ModelUsed) + "\n")
	}

	if len(r.Verdict.Recommendations) > 0 {
		b.WriteString(SectionStyle.Render("Recommendations") + "\n")
		for _, rec := range r.Verdict.Recommendations {
			b.WriteString("  • " + rec + "\n")
		}
	}

	if len(r.Links) > 0 {
		b.WriteString(SectionStyle.Render(fmt.Sprintf("Links (%d)", len(r.Links))) + "\n")
		for _, l := range r.Links {
			marker := PassStyle.Render("✓")
			if l.Suspicious {
				marker = FailStyle.Render("!")
			}
			b.WriteString(fmt.Sprintf("  %s %s\n", marker, l.URL))
		}
	}

	if len(r.Attachments) > 0 {
		b.WriteString(SectionStyle.Render(fmt.Sprintf("Attachments (%d)", len(r.Attachments))) + "\n")
		for _, a := range r.Attachments {
			size := humanize.Bytes(uint64(a.SizeBytes))
			if !a.SizeVerified {
				size = "size unknown"
			}
			b.WriteString(fmt.Sprintf("  %s  %s  %s  %s\n", a.Name, a.MimeType, size, MutedStyle.Render(a.Hash)))
		}
	}

	if p.verbose && r.Body != "" {
		b.WriteString(SectionStyle.Render("Body preview") + "\n")
		preview := r.Body
		if short := utils.TruncateRunes(preview, 500); short != preview {
			preview = short + "..."
		}
		b.WriteString(preview + "\n")
	}

	return b.String()
}
