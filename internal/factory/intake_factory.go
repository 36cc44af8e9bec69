package factory

import (
	"errors"

	"github.com/mikey/mail-threat-analyzer/internal/adapters/httpapi"
	"github.com/mikey/mail-threat-analyzer/internal/adapters/smtpintake"
	"github.com/mikey/mail-threat-analyzer/internal/config"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"github.com/mikey/mail-threat-analyzer/internal/ports"
	"go.uber.org/zap"
)

// IntakeFactory creates the enabled intake surfaces
type IntakeFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	pipeline *core.AnalysisPipeline
}

// NewIntakeFactory creates a new intake factory
func NewIntakeFactory(cfg *config.Config, logger *zap.Logger, pipeline *core.AnalysisPipeline) *IntakeFactory {
	return &IntakeFactory{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
	}
}

// CreateIntakes creates every enabled intake; at least one is required
func (f *IntakeFactory) CreateIntakes() ([]ports.Intake, error) {
	var intakes []ports.Intake

	if httpCfg := f.cfg.GetHTTP(); httpCfg.Enabled {
		intakes = append(intakes, httpapi.NewServer(f.pipeline, httpapi.Options{
			Env:               httpCfg.Env,
			ListenAddress:     httpCfg.ListenAddress,
			MaxUploadBytes:    httpCfg.MaxUploadBytes,
			AllowedExtensions: httpCfg.AllowedExtensions,
			AllowedOrigins:    httpCfg.AllowedOrigins,
		}, f.logger.Named("http")))
	}

	if smtpCfg := f.cfg.GetSMTP(); smtpCfg.Enabled {
		intakes = append(intakes, smtpintake.New(f.pipeline, smtpintake.Options{
			ListenAddress:    smtpCfg.ListenAddress,
			Domain:           smtpCfg.Domain,
			RiskHeader:       smtpCfg.RiskHeader,
			ConfidenceHeader: smtpCfg.ConfidenceHeader,
			ReasonHeader:     smtpCfg.ReasonHeader,
			RelayEnabled:     smtpCfg.RelayEnabled,
			RelayAddress:     smtpCfg.RelayAddress,
			RelayPort:        smtpCfg.RelayPort,
			MaxMessageBytes:  smtpCfg.MaxMessageBytes,
		}, f.logger.Named("smtp")))
	}

	if len(intakes) == 0 {
		return nil, errors.New("no intake enabled: set server.http.enabled or server.smtp.enabled")
	}
	return intakes, nil
}
