package generator

import (
	"strings"
	"unicode/utf8"
)

// CleanJSON extracts the outermost JSON object or array from an LLM reply,
// stripping markdown fences, invalid UTF-8, a BOM and control characters.
// It returns "" when the text holds no JSON-looking span.
func CleanJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}
	cleaned = strings.TrimPrefix(strings.TrimSpace(cleaned), "\uFEFF")

	firstBrace := strings.Index(cleaned, "{")
	lastBrace := strings.LastIndex(cleaned, "}")
	firstBracket := strings.Index(cleaned, "[")
	lastBracket := strings.LastIndex(cleaned, "]")
	isObject := firstBrace != -1 && lastBrace > firstBrace
	isArray := firstBracket != -1 && lastBracket > firstBracket

	switch {
	case isObject && (!isArray || firstBrace < firstBracket):
		cleaned = cleaned[firstBrace : lastBrace+1]
	case isArray:
		cleaned = cleaned[firstBracket : lastBracket+1]
	default:
		return ""
	}

	if !utf8.ValidString(cleaned) {
		cleaned = strings.ToValidUTF8(cleaned, "")
	}

	var sb strings.Builder
	sb.Grow(len(cleaned))
	for _, r := range cleaned {
		if r == '\t' || r == '\n' || r == '\r' {
			sb.WriteRune(r)
			continue
		}
		if r < 32 || r == 127 {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
