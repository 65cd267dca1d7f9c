package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dusk-indust/cartograph/internal/a2a"
)

// A2AEngine delegates prompts to a remote agent over the A2A protocol.
// The remote agent performs its own exploration; the capability contract
// is stated in the message, since the gate cannot run remotely.
type A2AEngine struct {
	client   a2a.Client
	endpoint string
	poll     time.Duration
	logger   *slog.Logger
}

// NewA2AEngine targets the agent at endpoint.
func NewA2AEngine(client a2a.Client, endpoint string, logger *slog.Logger) *A2AEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &A2AEngine{client: client, endpoint: endpoint, poll: 2 * time.Second, logger: logger}
}

// Invoke sends a blocking message/send and, when the agent returns before
// the task finishes, polls tasks/get until a terminal state.
func (e *A2AEngine) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (Result, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	msg := a2a.Message{
		MessageID: uuid.NewString(),
		Role:      a2a.RoleUser,
		Parts:     []a2a.Part{a2a.TextPart(capabilityPreamble(opts) + prompt)},
	}
	task, err := e.client.SendMessage(ctx, e.endpoint, a2a.SendMessageRequest{
		Message:       msg,
		Configuration: &a2a.SendMessageConfig{Blocking: true, AcceptedOutputModes: []string{"text/plain"}},
	})
	if err != nil {
		return Result{}, e.wrap(ctx, err)
	}

	for !task.Status.State.IsTerminal() {
		if task.Status.State.IsInterrupted() {
			e.cancelRemote(task.ID)
			return Result{Success: false, Error: fmt.Sprintf("agent requires interaction: %s", task.Status.State)}, nil
		}
		select {
		case <-ctx.Done():
			e.cancelRemote(task.ID)
			return Result{}, e.wrap(ctx, ctx.Err())
		case <-time.After(e.poll):
		}
		task, err = e.client.GetTask(ctx, e.endpoint, a2a.GetTaskRequest{ID: task.ID})
		if err != nil {
			return Result{}, e.wrap(ctx, err)
		}
	}

	if task.Status.State != a2a.TaskStateCompleted {
		reason := task.Text()
		if reason == "" {
			reason = string(task.Status.State)
		}
		return Result{Success: false, Error: reason}, nil
	}
	text := task.Text()
	if strings.TrimSpace(text) == "" {
		return Result{Success: false, Error: "agent returned no text artifacts"}, nil
	}
	return Result{Success: true, Response: text}, nil
}

// cancelRemote asks the agent to stop work it will never be asked about
// again. Failures are logged only.
func (e *A2AEngine) cancelRemote(taskID string) {
	if taskID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := e.client.CancelTask(ctx, e.endpoint, a2a.CancelTaskRequest{ID: taskID}); err != nil {
		e.logger.Debug("a2a cancel failed", "task", taskID, "err", err)
	}
}

func (e *A2AEngine) wrap(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrEngineTimeout, e.endpoint, err)
	}
	var rpcErr *a2a.RPCError
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, e.endpoint, err)
}

// capabilityPreamble states the exploration contract for remote agents.
func capabilityPreamble(opts InvokeOptions) string {
	var allowed []string
	for _, k := range []RequestKind{KindView, KindSearch, KindGlob} {
		if Allow(opts.Capabilities, opts.Gate, Request{Kind: k}) {
			allowed = append(allowed, k.String())
		}
	}
	if len(allowed) == 0 {
		allowed = []string{"none"}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Working directory: %s\n", opts.WorkingDirectory)
	fmt.Fprintf(&b, "Permitted operations: %s. Writes, shell execution and network access are denied.\n", strings.Join(allowed, ", "))
	if opts.Model != "" {
		fmt.Fprintf(&b, "Preferred model: %s\n", opts.Model)
	}
	b.WriteString("\n")
	return b.String()
}
