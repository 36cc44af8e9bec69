package config

import (
	"strings"
	"time"
)

// LLMConfig represents the configuration for the verdict provider
type LLMConfig struct {
	Provider string
	Timeout  time.Duration
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// AnalysisConfig holds the knobs of the parser and the risk scorer
type AnalysisConfig struct {
	PromptBodyChars       int
	UnknownAttachmentSize int64
	TrustedSenderDomains  []string
}

// DNSConfig represents resolver and answer-cache settings
type DNSConfig struct {
	Enabled          bool
	Servers          []string
	ResolvConf       string
	Timeout          time.Duration
	CacheType        string
	CacheTTL         time.Duration
	CacheCleanupFreq time.Duration
	RedisURL         string
}

// AuthConfig represents the sender authentication policy
type AuthConfig struct {
	SPFTrustedIncludes     []string
	DMARCUnknownPolicy     string
	DMARCOrgDomainFallback bool
}

// StoreConfig represents the analysis record store
type StoreConfig struct {
	Type        string
	SQLitePath  string
	MySQLDSN    string
	PostgresURL string
}

// HTTPConfig represents the upload API
type HTTPConfig struct {
	Enabled           bool
	Env               string
	ListenAddress     string
	MaxUploadBytes    int64
	AllowedExtensions []string
	AllowedOrigins    []string
}

// SMTPConfig represents the SMTP intake and its optional relay
type SMTPConfig struct {
	Enabled          bool
	ListenAddress    string
	Domain           string
	RiskHeader       string
	ConfidenceHeader string
	ReasonHeader     string
	RelayEnabled     bool
	RelayAddress     string
	RelayPort        int
	MaxMessageBytes  int64
}

// LoggingConfig represents logger settings
type LoggingConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// GetLLM returns the verdict provider configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: strings.ToLower(c.GetString("llm.provider")),
		Timeout:  c.v.GetDuration("llm.timeout"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetAnalysis returns the parser and scorer configuration
func (c *Config) GetAnalysis() AnalysisConfig {
	return AnalysisConfig{
		PromptBodyChars:       c.GetInt("analysis.prompt_body_chars"),
		UnknownAttachmentSize: c.GetInt64("parser.unknown_attachment_size"),
		TrustedSenderDomains:  c.GetStringSlice("heuristics.trusted_sender_domains"),
	}
}

// GetDNS returns the DNS configuration
func (c *Config) GetDNS() DNSConfig {
	return DNSConfig{
		Enabled:          c.GetBool("dns.enabled"),
		Servers:          c.GetStringSlice("dns.servers"),
		ResolvConf:       c.GetString("dns.resolv_conf"),
		Timeout:          c.v.GetDuration("dns.timeout"),
		CacheType:        strings.ToLower(c.GetString("dns.cache.type")),
		CacheTTL:         c.v.GetDuration("dns.cache.ttl"),
		CacheCleanupFreq: c.v.GetDuration("dns.cache.cleanup_frequency"),
		RedisURL:         c.GetString("dns.cache.redis_url"),
	}
}

// GetAuth returns the sender authentication configuration
func (c *Config) GetAuth() AuthConfig {
	return AuthConfig{
		SPFTrustedIncludes:     c.GetStringSlice("auth.spf_trusted_includes"),
		DMARCUnknownPolicy:     strings.ToUpper(c.GetString("auth.dmarc_unknown_policy")),
		DMARCOrgDomainFallback: c.GetBool("auth.dmarc_org_domain_fallback"),
	}
}

// GetStore returns the store configuration
func (c *Config) GetStore() StoreConfig {
	return StoreConfig{
		Type:        strings.ToLower(c.GetString("store.type")),
		SQLitePath:  c.GetString("store.sqlite_path"),
		MySQLDSN:    c.GetString("store.mysql_dsn"),
		PostgresURL: c.GetString("store.postgres_url"),
	}
}

// GetHTTP returns the HTTP API configuration
func (c *Config) GetHTTP() HTTPConfig {
	return HTTPConfig{
		Enabled:           c.GetBool("server.http.enabled"),
		Env:               c.GetString("server.env"),
		ListenAddress:     c.GetString("server.http.listen_address"),
		MaxUploadBytes:    c.GetInt64("server.http.max_upload_bytes"),
		AllowedExtensions: c.GetStringSlice("server.http.allowed_extensions"),
		AllowedOrigins:    c.GetStringSlice("server.http.allowed_origins"),
	}
}

// GetSMTP returns the SMTP intake configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:          c.GetBool("server.smtp.enabled"),
		ListenAddress:    c.GetString("server.smtp.listen_address"),
		Domain:           c.GetString("server.smtp.domain"),
		RiskHeader:       c.GetString("server.smtp.headers.risk"),
		ConfidenceHeader: c.GetString("server.smtp.headers.confidence"),
		ReasonHeader:     c.GetString("server.smtp.headers.reason"),
		RelayEnabled:     c.GetBool("server.smtp.relay.enabled"),
		RelayAddress:     c.GetString("server.smtp.relay.address"),
		RelayPort:        c.GetInt("server.smtp.relay.port"),
		MaxMessageBytes:  c.GetInt64("server.smtp.max_message_bytes"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:      c.GetString("logging.level"),
		Format:     c.GetString("logging.format"),
		File:       c.GetString("logging.file"),
		MaxSizeMB:  c.GetInt("logging.max_size_mb"),
		MaxBackups: c.GetInt("logging.max_backups"),
		MaxAgeDays: c.GetInt("logging.max_age_days"),
	}
}
