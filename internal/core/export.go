package core

import "time"

// Export is the durable interchange shape of an analysis
type Export struct {
	Analysis       ExportAnalysis       `json:"analysis" yaml:"analysis"`
	Email          MessageHeaders       `json:"email" yaml:"email"`
	Authentication AuthenticationResult `json:"authentication" yaml:"authentication"`
	Assessment     ExportAssessment     `json:"assessment" yaml:"assessment"`
	ExtractedData  ExportExtracted      `json:"extractedData" yaml:"extractedData"`
}

// ExportAnalysis carries identity and the headline verdict
type ExportAnalysis struct {
	ID         int64     `json:"id" yaml:"id"`
	FileName   string    `json:"fileName" yaml:"fileName"`
	FileSize   int64     `json:"fileSize" yaml:"fileSize"`
	UploadedAt time.Time `json:"uploadedAt" yaml:"uploadedAt"`
	RiskLevel  RiskLevel `json:"riskLevel" yaml:"riskLevel"`
	Confidence int       `json:"confidence" yaml:"confidence"`
}

type ExportAssessment struct {
	Description     string   `json:"description" yaml:"description"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

type ExportExtracted struct {
	Links       []Link       `json:"links" yaml:"links"`
	Attachments []Attachment `json:"attachments" yaml:"attachments"`
}

// NewExport groups a record for download
func NewExport(r *AnalysisRecord) Export {
	links := r.Links
	if links == nil {
		links = []Link{}
	}
	attachments := r.Attachments
	if attachments == nil {
		attachments = []Attachment{}
	}
	recommendations := r.Verdict.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	return Export{
		Analysis: ExportAnalysis{
			ID:         r.ID,
			FileName:   r.FileName,
			FileSize:   r.FileSize,
			UploadedAt: r.UploadedAt,
			RiskLevel:  r.Verdict.RiskLevel,
			Confidence: r.Verdict.Confidence,
		},
		Email:          r.Headers,
		Authentication: r.Authentication,
		Assessment: ExportAssessment{
			Description:     r.Verdict.Assessment,
			Recommendations: recommendations,
		},
		ExtractedData: ExportExtracted{
			Links:       links,
			Attachments: attachments,
		},
	}
}
