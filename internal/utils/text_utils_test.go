package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDecode(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "héllo", tp.Decode([]byte("héllo")))
	assert.Equal(t, "bom", tp.Decode([]byte("\xEF\xBB\xBFbom")))

	// 0xE9 is é in Windows-1252 and invalid on its own in UTF-8
	assert.Equal(t, "café", tp.Decode([]byte{'c', 'a', 'f', 0xE9}))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abcdef", 3))
	assert.Equal(t, "abc", TruncateRunes("abc", 10))
	assert.Equal(t, "日本", TruncateRunes("日本語", 2))
	assert.Equal(t, "abcdef", TruncateRunes("abcdef", 0))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(nil)
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
	assert.Equal(t, "ok", tp.SanitizeUTF8("ok"))
}
