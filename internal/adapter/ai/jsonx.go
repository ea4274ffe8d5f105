package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/procureflow/procureflow/internal/domain"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// RecoverJSON extracts a JSON object from a model response that may wrap it
// in prose or markdown fences. Three attempts, in order: direct parse,
// fenced code block, first balanced brace span. Exhaustion is ErrAIResponse,
// which callers must keep distinct from schema validation failures.
func RecoverJSON(content string) ([]byte, error) {
	trimmed := strings.TrimSpace(content)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}
	if m := fencedBlockRe.FindStringSubmatch(content); m != nil {
		if json.Valid([]byte(m[1])) {
			return []byte(m[1]), nil
		}
	}
	if span := balancedObject(content); span != "" && json.Valid([]byte(span)) {
		return []byte(span), nil
	}
	return nil, fmt.Errorf("%w: no JSON object recoverable from response", domain.ErrAIResponse)
}

// balancedObject returns the first balanced {...} span, tracking strings so
// braces inside quoted values don't break the count.
func balancedObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
