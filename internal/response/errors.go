package response

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Error kinds returned (wrapped in *ParseError) by the parse functions.
var (
	ErrEmptyResponse        = errors.New("empty response")
	ErrNoStructuredData     = errors.New("no structured data")
	ErrMalformedData        = errors.New("malformed data")
	ErrNotAnObject          = errors.New("not an object")
	ErrMissingRequiredField = errors.New("missing required field")
)

// ParseError describes a hard parsing failure. errors.Is matches both the
// kind sentinel and the underlying cause.
type ParseError struct {
	Kind    error
	Context string
	Field   string
	Cause   error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("response: ")
	if e.Context != "" {
		b.WriteString(e.Context)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, " %q", e.Field)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind error, context, field string, cause error) *ParseError {
	return &ParseError{Kind: kind, Context: context, Field: field, Cause: cause}
}

// Warning records a soft failure: a field that was absent or unusable and
// was replaced with a default.
type Warning struct {
	Context string
	Field   string
	Default string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: field %q defaulted to %s", w.Context, w.Field, w.Default)
}

// LogWarnings emits each warning at Warn level.
func LogWarnings(logger *slog.Logger, warnings []Warning) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, w := range warnings {
		logger.Warn("field defaulted",
			"context", w.Context,
			"field", w.Field,
			"default", w.Default,
		)
	}
}

// warnings accumulates soft failures for one parse.
type warnings struct {
	context string
	list    []Warning
}

func (w *warnings) add(field, def string) {
	w.list = append(w.list, Warning{Context: w.context, Field: field, Default: def})
}
