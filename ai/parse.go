package ai

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Models wrap their JSON in prose, code fences, or both. ParseGenerated runs
// an ordered chain of extraction strategies and always produces a result;
// the last resort treats the raw text as the post content. It never returns
// an error.
func ParseGenerated(text string) *Generated {
	for _, parse := range parseStrategies {
		if g, ok := parse(text); ok {
			return g
		}
	}
	return fallbackContent(text)
}

type parseStrategy func(string) (*Generated, bool)

var parseStrategies = []parseStrategy{
	parseDirect,
	parseFenced,
	parseBraced,
	parseFields,
}

// parseDirect tries the text as-is.
func parseDirect(text string) (*Generated, bool) {
	return tryUnmarshal(strings.TrimSpace(text))
}

// parseFenced strips a markdown code fence, tolerating prose before the
// opening fence and after the closing one.
func parseFenced(text string) (*Generated, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return nil, false
	}
	rest := text[start+3:]
	// Drop an optional language tag on the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		first := strings.TrimSpace(rest[:nl])
		if first == "json" || first == "" {
			rest = rest[nl+1:]
		}
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil, false
	}
	return tryUnmarshal(strings.TrimSpace(rest[:end]))
}

// parseBraced scans for the first balanced top-level JSON object, skipping
// braces inside string literals.
func parseBraced(text string) (*Generated, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return tryUnmarshal(text[start : i+1])
			}
		}
	}
	return nil, false
}

var (
	contentFieldRe  = regexp.MustCompile(`"content"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	promptFieldRe   = regexp.MustCompile(`"imagePrompt"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	hashtagsFieldRe = regexp.MustCompile(`"hashtags"\s*:\s*\[([^\]]*)\]`)
	hashtagItemRe   = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
)

// parseFields pulls individual fields out of malformed JSON by regex.
func parseFields(text string) (*Generated, bool) {
	m := contentFieldRe.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return nil, false
	}

	g := &Generated{Content: unescapeJSONString(m[1])}

	if pm := promptFieldRe.FindStringSubmatch(text); pm != nil {
		g.ImagePrompt = unescapeJSONString(pm[1])
	}
	if hm := hashtagsFieldRe.FindStringSubmatch(text); hm != nil {
		for _, item := range hashtagItemRe.FindAllStringSubmatch(hm[1], -1) {
			if tag := unescapeJSONString(item[1]); tag != "" {
				g.Hashtags = append(g.Hashtags, tag)
			}
		}
	}
	return g, true
}

// fallbackContent treats the response as plain text, truncated on a rune
// boundary so a multibyte character is never cut in half.
func fallbackContent(text string) *Generated {
	const maxFallback = 500
	content := strings.TrimSpace(text)
	if len(content) > maxFallback {
		cut := maxFallback
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}
	return &Generated{Content: content}
}

func tryUnmarshal(text string) (*Generated, bool) {
	var g Generated
	if err := json.Unmarshal([]byte(text), &g); err != nil {
		return nil, false
	}
	if g.Content == "" {
		return nil, false
	}
	return &g, true
}

func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
