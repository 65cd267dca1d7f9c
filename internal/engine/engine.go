// Package engine is the boundary to the external analysis engine: the
// component that receives a prompt plus read-only file capabilities and
// returns free text. Backends (Anthropic, A2A) implement Engine; the rest
// of the module never inspects how they explore the repository.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Failure kinds. Engines wrap them so callers can classify with errors.Is.
var (
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrEngineTimeout     = errors.New("engine timeout")
	ErrEngineFailure     = errors.New("engine failure")
)

// Capabilities lists the file-exploration operations offered to the engine.
type Capabilities struct {
	View   bool `json:"view"`
	Search bool `json:"search"`
	Glob   bool `json:"glob"`
}

// ReadOnly offers every read-only capability.
func ReadOnly() Capabilities {
	return Capabilities{View: true, Search: true, Glob: true}
}

// Offers reports whether kind is one of the offered capabilities.
func (c Capabilities) Offers(kind RequestKind) bool {
	switch kind {
	case KindView:
		return c.View
	case KindSearch:
		return c.Search
	case KindGlob:
		return c.Glob
	default:
		return false
	}
}

// InvokeOptions configures one engine call.
type InvokeOptions struct {
	WorkingDirectory string
	Capabilities     Capabilities
	Gate             Gate
	Model            string
	Timeout          time.Duration
}

// Result is the engine's answer. Success false carries Error.
type Result struct {
	Success  bool
	Response string
	Error    string
}

// Engine runs one analysis prompt to completion.
type Engine interface {
	Invoke(ctx context.Context, prompt string, opts InvokeOptions) (Result, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, prompt string, opts InvokeOptions) (Result, error)

func (f EngineFunc) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (Result, error) {
	return f(ctx, prompt, opts)
}

// Classify maps err to one of the failure kinds. Context deadlines map to
// ErrEngineTimeout; unclassified errors map to ErrEngineFailure.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEngineUnavailable):
		return ErrEngineUnavailable
	case errors.Is(err, ErrEngineTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrEngineTimeout
	default:
		return ErrEngineFailure
	}
}

// InvokeWithin calls eng.Invoke bounded by ctx and opts.Timeout. It returns
// as soon as the deadline passes even if the engine ignores ctx; the
// abandoned call finishes in the background and its result is dropped.
func InvokeWithin(ctx context.Context, eng Engine, prompt string, opts InvokeOptions) (Result, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", ErrEngineFailure, r)}
			}
		}()
		res, err := eng.Invoke(ctx, prompt, opts)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err == nil && ctx.Err() != nil {
			return Result{}, contextErr(ctx)
		}
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, contextErr(ctx)
	}
}

func contextErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrEngineTimeout, ctx.Err())
	}
	return ctx.Err()
}

// withTimeout applies opts.Timeout to ctx when set.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
