// Package a2a is a minimal Agent2Agent JSON-RPC client used to reach a
// remote analysis agent.
package a2a

import "context"

// Client is the subset of the A2A protocol the analysis engine needs.
type Client interface {
	// SendMessage sends a message to an agent and returns the task.
	SendMessage(ctx context.Context, endpoint string, req SendMessageRequest) (*Task, error)

	// GetTask retrieves a task by ID from a specific agent.
	GetTask(ctx context.Context, endpoint string, req GetTaskRequest) (*Task, error)

	// CancelTask cancels a running task.
	CancelTask(ctx context.Context, endpoint string, req CancelTaskRequest) (*Task, error)

	// DiscoverAgent fetches the Agent Card from a well-known URI.
	DiscoverAgent(ctx context.Context, baseURL string) (*AgentCard, error)
}
