// Package response turns free-form analysis output into validated records.
//
// Parsing runs in fixed stages: locate a JSON block in the text, decode it
// strictly, retry once after a narrow textual repair, require an object, and
// finally apply schema-specific field validation. Fields that can be safely
// defaulted produce Warnings; anything else produces a *ParseError.
package response

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	taggedFenceRe = regexp.MustCompile("(?s)```[ \t]*(?:jsonc|json|JSON)[ \t]*\\r?\\n?(.*?)```")
	anyFenceRe    = regexp.MustCompile("(?s)```[ \t]*([a-zA-Z0-9_-]*)[ \t]*\\r?\\n?(.*?)```")

	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_$][a-zA-Z0-9_$]*)\s*:`)
	quoteReplacer   = strings.NewReplacer(
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"‘", "'", "’", "'",
	)
)

// Parse extracts and decodes the structured object embedded in text.
// context names the caller for error messages and warnings.
func Parse(text, context string) (map[string]any, error) {
	if !utf8.ValidString(text) || strings.TrimSpace(text) == "" {
		return nil, newError(ErrEmptyResponse, context, "", nil)
	}

	block := extractBlock(text)
	if block == "" {
		return nil, newError(ErrNoStructuredData, context, "", nil)
	}

	var v any
	if err := json.Unmarshal([]byte(block), &v); err != nil {
		if err2 := json.Unmarshal([]byte(repair(block)), &v); err2 != nil {
			return nil, newError(ErrMalformedData, context, "", err)
		}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, newError(ErrNotAnObject, context, "", nil)
	}
	return obj, nil
}

// extractBlock returns the candidate JSON text. A fence tagged json wins
// over an untagged fence, which wins over a bare brace scan; within a tier
// the largest candidate is chosen.
func extractBlock(text string) string {
	if best := largest(fenced(text, true)); best != "" {
		return best
	}
	if best := largest(fenced(text, false)); best != "" {
		return best
	}
	return largest(bareBlocks(text))
}

func fenced(text string, tagged bool) []string {
	var out []string
	if tagged {
		for _, m := range taggedFenceRe.FindAllStringSubmatch(text, -1) {
			if body := strings.TrimSpace(m[1]); body != "" {
				out = append(out, body)
			}
		}
		return out
	}
	for _, m := range anyFenceRe.FindAllStringSubmatch(text, -1) {
		tag, body := m[1], strings.TrimSpace(m[2])
		if tag != "" {
			continue
		}
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			out = append(out, body)
		}
	}
	return out
}

// bareBlocks scans text once for top-level balanced {...} or [...] spans.
// Inside a span, string literals are honored so braces in strings are
// ignored. A span that never balances is dropped, but balanced spans nested
// in it are kept.
func bareBlocks(text string) []string {
	type opener struct {
		pos   int
		close byte
	}
	var (
		stack    []opener
		spans    [][2]int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = len(stack) > 0
		case '{':
			stack = append(stack, opener{i, '}'})
		case '[':
			stack = append(stack, opener{i, ']'})
		case '}', ']':
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if top.close != c {
				// Every open span contains the mismatch.
				stack = stack[:0]
				continue
			}
			stack = stack[:len(stack)-1]
			for len(spans) > 0 && spans[len(spans)-1][0] > top.pos {
				spans = spans[:len(spans)-1]
			}
			spans = append(spans, [2]int{top.pos, i})
		}
	}

	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		out = append(out, text[sp[0]:sp[1]+1])
	}
	return out
}

func largest(candidates []string) string {
	best := ""
	for _, c := range candidates {
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

// repair applies the only rewrites attempted before giving up: typographic
// quotes to ASCII, quoting bare object keys, and dropping trailing commas.
func repair(s string) string {
	s = quoteReplacer.Replace(s)
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}
