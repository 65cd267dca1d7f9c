package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when neither the call nor the engine names one.
const DefaultModel = "claude-sonnet-4-5"

// maxToolIterations bounds the tool-use conversation for one prompt.
const maxToolIterations = 40

const systemPrompt = "You are exploring a source repository to map its architecture. " +
	"Use only the provided read-only tools. Never attempt to modify files, run commands or access the network. " +
	"When finished, answer with a single JSON object inside a ```json fenced block."

// messagesAPI is the slice of the Anthropic client the engine uses.
type messagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicEngine runs prompts against the Anthropic Messages API with a
// tool-use loop over the read-only file tools.
type AnthropicEngine struct {
	messages messagesAPI
	model    string
	logger   *slog.Logger
}

// NewAnthropicEngine creates an engine from an API key. An empty key
// yields ErrEngineUnavailable.
func NewAnthropicEngine(apiKey, model string, logger *slog.Logger) (*AnthropicEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not set", ErrEngineUnavailable)
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return newAnthropicEngine(&client.Messages, model, logger), nil
}

func newAnthropicEngine(messages messagesAPI, model string, logger *slog.Logger) *AnthropicEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicEngine{messages: messages, model: model, logger: logger}
}

// Invoke runs the conversation until the model ends its turn. Tool calls
// are gated per request; denied calls are reported back to the model as
// tool errors rather than aborting the run.
func (e *AnthropicEngine) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (Result, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	files, err := NewFileTools(opts.WorkingDirectory)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}
	toolbox := NewToolbox(files, opts.Capabilities, opts.Gate, e.logger)
	tools := anthropicTools(toolbox.Specs())

	model := opts.Model
	if model == "" {
		model = e.model
	}

	history := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		response, err := e.messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: 8192,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages:  history,
			Tools:     tools,
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Result{}, fmt.Errorf("%w: %v", ErrEngineTimeout, err)
			}
			return Result{}, fmt.Errorf("%w: messages: %v", ErrEngineFailure, err)
		}

		switch response.StopReason {
		case "tool_use":
			history = append(history, response.ToParam())

			var toolResults []anthropic.ContentBlockParamUnion
			for _, block := range response.Content {
				toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
				if !ok {
					continue
				}
				out, err := toolbox.Call(ctx, toolUse.Name, toolUse.Input)
				if err != nil {
					toolResults = append(toolResults, anthropic.NewToolResultBlock(toolUse.ID, "Error: "+err.Error(), true))
					continue
				}
				toolResults = append(toolResults, anthropic.NewToolResultBlock(toolUse.ID, out, false))
			}
			if len(toolResults) == 0 {
				return Result{Success: false, Error: "tool_use stop without tool calls"}, nil
			}
			history = append(history, anthropic.NewUserMessage(toolResults...))

		case "end_turn", "stop_sequence", "max_tokens":
			text := responseText(response)
			if strings.TrimSpace(text) == "" {
				return Result{Success: false, Error: "empty response"}, nil
			}
			return Result{Success: true, Response: text}, nil

		default:
			return Result{Success: false, Error: fmt.Sprintf("unexpected stop reason: %s", response.StopReason)}, nil
		}
	}

	return Result{Success: false, Error: fmt.Sprintf("exceeded %d tool iterations", maxToolIterations)}, nil
}

func responseText(m *anthropic.Message) string {
	var b strings.Builder
	for _, block := range m.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

func anthropicTools(specs []ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(specs))
	for i, s := range specs {
		tool := anthropic.ToolParam{
			Name:        s.Name,
			Description: anthropic.String(s.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: s.Properties,
				Required:   s.Required,
			},
		}
		tools[i] = anthropic.ToolUnionParam{OfTool: &tool}
	}
	return tools
}
