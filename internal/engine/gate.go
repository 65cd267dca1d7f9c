package engine

import "strings"

// RequestKind classifies a capability request made by the engine.
type RequestKind int

const (
	KindUnknown RequestKind = iota
	KindView
	KindSearch
	KindGlob
	KindWrite
	KindShell
	KindNetwork
)

func (k RequestKind) String() string {
	switch k {
	case KindView:
		return "view"
	case KindSearch:
		return "search"
	case KindGlob:
		return "glob"
	case KindWrite:
		return "write"
	case KindShell:
		return "shell"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ParseRequestKind maps a tool name, as reported by an engine, to a kind.
// Matching is case-insensitive. Unrecognized names are KindUnknown.
func ParseRequestKind(tool string) RequestKind {
	switch strings.ToLower(strings.TrimSpace(tool)) {
	case ToolViewFile, "view", "read", "read_file":
		return KindView
	case ToolSearchFiles, "search", "grep":
		return KindSearch
	case ToolGlobFiles, "glob", "list_files", "ls":
		return KindGlob
	case "write", "write_file", "edit", "edit_file", "create_file", "delete_file", "multiedit":
		return KindWrite
	case "bash", "shell", "exec", "run_command", "terminal":
		return KindShell
	case "fetch", "web_fetch", "web_search", "http", "curl":
		return KindNetwork
	default:
		return KindUnknown
	}
}

// Request is one capability request awaiting a decision.
type Request struct {
	Kind   RequestKind
	Tool   string
	Target string
}

// Decision is a gate's verdict.
type Decision int

const (
	Deny Decision = iota
	Approve
)

func (d Decision) String() string {
	if d == Approve {
		return "approve"
	}
	return "deny"
}

// Gate decides whether a request may proceed. It must be pure.
type Gate func(Request) Decision

// ReadOnlyGate approves view, search and glob requests and denies
// everything else, including kinds it does not recognize.
func ReadOnlyGate(req Request) Decision {
	switch req.Kind {
	case KindView, KindSearch, KindGlob:
		return Approve
	case KindWrite, KindShell, KindNetwork:
		return Deny
	default:
		return Deny
	}
}

// Allow combines the offered capabilities with the gate. A nil gate
// denies.
func Allow(caps Capabilities, gate Gate, req Request) bool {
	if gate == nil || !caps.Offers(req.Kind) {
		return false
	}
	return gate(req) == Approve
}
