package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dusk-indust/cartograph/internal/a2a"
)

// Backend identifies which analysis engine serves a run.
type Backend int

const (
	// BackendNone means no engine is reachable. Every probe is contained
	// and every merge takes the local fallback.
	BackendNone Backend = iota
	BackendA2A
	BackendAnthropic
)

func (b Backend) String() string {
	switch b {
	case BackendAnthropic:
		return "anthropic"
	case BackendA2A:
		return "a2a"
	default:
		return "none"
	}
}

// ParseBackend maps a configured backend name. "" and "auto" mean detect.
func ParseBackend(s string) (b Backend, auto bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return BackendNone, true, nil
	case "none", "offline":
		return BackendNone, false, nil
	case "a2a":
		return BackendA2A, false, nil
	case "anthropic":
		return BackendAnthropic, false, nil
	default:
		return BackendNone, false, fmt.Errorf("engine: unknown backend %q", s)
	}
}

// Selection is the outcome of detection. Engine is nil for BackendNone.
type Selection struct {
	Backend  Backend
	Engine   Engine
	Endpoint string
}

// Detector picks an engine. Anthropic wins when an API key is present;
// otherwise the first A2A endpoint whose agent card can be fetched.
type Detector struct {
	APIKey       string
	Model        string
	Endpoints    []string
	Client       a2a.Client
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// Detect returns the best available backend. Network failures during
// discovery are not errors; they just rule an endpoint out.
func (d *Detector) Detect(ctx context.Context) Selection {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if d.APIKey != "" {
		eng, err := NewAnthropicEngine(d.APIKey, d.Model, logger)
		if err == nil {
			logger.Info("engine selected", "backend", BackendAnthropic)
			return Selection{Backend: BackendAnthropic, Engine: eng}
		}
	}

	if ep, ok := d.discover(ctx, logger); ok {
		logger.Info("engine selected", "backend", BackendA2A, "endpoint", ep)
		return Selection{Backend: BackendA2A, Engine: NewA2AEngine(d.client(), ep, logger), Endpoint: ep}
	}

	logger.Warn("no analysis engine available; probes will be empty and merges local")
	return Selection{Backend: BackendNone}
}

// Force builds the named backend without probing alternatives.
func (d *Detector) Force(ctx context.Context, b Backend) (Selection, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	switch b {
	case BackendAnthropic:
		eng, err := NewAnthropicEngine(d.APIKey, d.Model, logger)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Backend: b, Engine: eng}, nil
	case BackendA2A:
		ep, ok := d.discover(ctx, logger)
		if !ok {
			return Selection{}, fmt.Errorf("%w: no A2A agent answered at %v", ErrEngineUnavailable, d.Endpoints)
		}
		return Selection{Backend: b, Engine: NewA2AEngine(d.client(), ep, logger), Endpoint: ep}, nil
	default:
		return Selection{Backend: BackendNone}, nil
	}
}

// discover returns the JSON-RPC endpoint of the first agent that answers.
func (d *Detector) discover(ctx context.Context, logger *slog.Logger) (endpoint string, ok bool) {
	timeout := d.ProbeTimeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	for _, base := range d.Endpoints {
		if found, ok := d.probeAgent(ctx, base, timeout, logger); ok {
			return found, true
		}
	}
	return "", false
}

func (d *Detector) probeAgent(ctx context.Context, base string, timeout time.Duration, logger *slog.Logger) (endpoint string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("panic probing agent", "endpoint", base, "panic", r)
			endpoint, ok = "", false
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	card, err := d.client().DiscoverAgent(probeCtx, base)
	if err != nil || card == nil {
		logger.Debug("agent not reachable", "endpoint", base, "err", err)
		return "", false
	}
	if ep := card.Endpoint(); ep != "" {
		return ep, true
	}
	return base, true
}

func (d *Detector) client() a2a.Client {
	if d.Client == nil {
		d.Client = a2a.NewHTTPClient()
	}
	return d.Client
}
