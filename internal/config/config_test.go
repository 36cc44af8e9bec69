package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "none", cfg.GetLLM().Provider)
	assert.Equal(t, 20*time.Second, cfg.GetLLM().Timeout)
	assert.Equal(t, 1000, cfg.GetAnalysis().PromptBodyChars)
	assert.Equal(t, int64(0), cfg.GetAnalysis().UnknownAttachmentSize)

	dns := cfg.GetDNS()
	assert.True(t, dns.Enabled)
	assert.Equal(t, 3*time.Second, dns.Timeout)
	assert.Equal(t, "memory", dns.CacheType)

	auth := cfg.GetAuth()
	assert.Equal(t, "PASS", auth.DMARCUnknownPolicy)
	assert.Contains(t, auth.SPFTrustedIncludes, "include:_spf.google.com")
	assert.False(t, auth.DMARCOrgDomainFallback)

	httpCfg := cfg.GetHTTP()
	assert.Equal(t, int64(10*1024*1024), httpCfg.MaxUploadBytes)
	assert.ElementsMatch(t, []string{".eml", ".msg", ".txt"}, httpCfg.AllowedExtensions)

	assert.Equal(t, "memory", cfg.GetStore().Type)
	assert.False(t, cfg.GetSMTP().Enabled)
	assert.Equal(t, int64(10*1024*1024), cfg.GetSMTP().MaxMessageBytes)
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
llm:
  provider: OpenAI
  timeout: 5s
auth:
  dmarc_unknown_policy: neutral
store:
  type: sqlite
  sqlite_path: /tmp/x.db
dns:
  servers: ["127.0.0.1:5353"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, 5*time.Second, cfg.GetLLM().Timeout)
	assert.Equal(t, "NEUTRAL", cfg.GetAuth().DMARCUnknownPolicy)
	assert.Equal(t, "sqlite", cfg.GetStore().Type)
	assert.Equal(t, "/tmp/x.db", cfg.GetStore().SQLitePath)
	assert.Equal(t, []string{"127.0.0.1:5353"}, cfg.GetDNS().Servers)
	// untouched keys keep their defaults
	assert.Equal(t, "gpt-4o", cfg.GetOpenAI().ModelName)
}

func TestNewFromFileMissing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("THREAT_ANALYZER_LLM_PROVIDER", "Gemini")
	t.Setenv("THREAT_ANALYZER_GEMINI_API_KEY", "key-from-env")

	cfg := NewFromEnv()
	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.Equal(t, "key-from-env", cfg.GetGemini().APIKey)
	assert.Equal(t, "memory", cfg.GetStore().Type)
}
