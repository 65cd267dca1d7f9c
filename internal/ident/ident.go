// Package ident canonicalizes free-form names into stable identifiers.
//
// Every externally supplied identifier (topic names, module ids, category
// names) passes through Normalize before it enters the data model, so two
// spellings of the same concern ("Auth Service", "auth_service") collapse to a
// single key ("auth-service").
package ident

import (
	"regexp"
	"strings"
)

// Unknown is returned by Normalize when nothing usable survives.
const Unknown = "unknown"

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
	validRe    = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
	multiSepRe = regexp.MustCompile(`/{2,}`)
)

// Normalize lowercases input, replaces every run of characters outside
// [a-z0-9] with a single hyphen and trims hyphens from both ends. An empty
// result becomes Unknown. Normalize is idempotent.
func Normalize(input string) string {
	s := nonAlnumRe.ReplaceAllString(strings.ToLower(input), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Unknown
	}
	return s
}

// IsValid reports whether id is already in canonical form: a leading letter
// followed by lowercase alphanumeric segments joined by single hyphens.
func IsValid(id string) bool {
	return validRe.MatchString(id)
}

// NormalizeAll normalizes every entry and drops duplicates, keeping the
// first occurrence.
func NormalizeAll(inputs []string) []string {
	out := make([]string, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		id := Normalize(in)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// NormalizePath converts a repository-relative path to forward slashes,
// collapses repeated separators and strips any leading "./".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, `\`, "/")
	p = multiSepRe.ReplaceAllString(p, "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// NormalizePaths applies NormalizePath to each entry, dropping empties.
func NormalizePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if n := NormalizePath(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}
