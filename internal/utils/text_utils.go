package utils

import (
	"bytes"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// Decode turns uploaded bytes into text. Valid UTF-8 is returned unchanged;
// anything else is read as Windows-1252, the usual charset of legacy mail
// exports, and falls back to dropping invalid sequences.
func (tp *TextProcessor) Decode(raw []byte) string {
	// Strip a UTF-8 byte order mark
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return string(raw)
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err == nil && utf8.Valid(decoded) {
		tp.logger.Debug("Decoded non UTF-8 content as Windows-1252",
			zap.Int("original_size", len(raw)),
			zap.Int("decoded_size", len(decoded)))
		return string(decoded)
	}

	return tp.SanitizeUTF8(string(raw))
}

// TruncateRunes cuts text to at most maxRunes characters without splitting
// a multi-byte sequence
func (tp *TextProcessor) TruncateRunes(text string, maxRunes int) string {
	return TruncateRunes(text, maxRunes)
}

// TruncateRunes is the stateless form of TextProcessor.TruncateRunes
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	count := 0
	for i := range text {
		if count == maxRunes {
			return text[:i]
		}
		count++
	}
	return text
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				// Skip invalid UTF-8 sequences
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}
