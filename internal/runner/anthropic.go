package runner

import (
	"context"
	"encoding/json"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/windowing"
)

// AnthropicRunner completes requests with the Messages API.
type AnthropicRunner struct {
	Client        *anthropic.Client
	Model         anthropic.Model
	MaxTokens     int64
	HistoryBudget int
	Counter       windowing.TokenCounter
}

func NewAnthropic(client *anthropic.Client, model anthropic.Model, historyBudget int) *AnthropicRunner {
	if historyBudget <= 0 {
		historyBudget = DefaultHistoryBudget
	}
	return &AnthropicRunner{Client: client, Model: model, MaxTokens: 1024, HistoryBudget: historyBudget}
}

var _ flows.Completer = (*AnthropicRunner)(nil)

func (r *AnthropicRunner) Complete(ctx context.Context, req flows.Request) (json.RawMessage, error) {
	ctx, content := userContent(ctx, "anthropic", req, r.HistoryBudget, r.Counter)

	params := anthropic.MessageNewParams{
		Model:     r.Model,
		MaxTokens: r.MaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(content))},
		Tools: []anthropic.ToolUnionParam{{OfTool: &anthropic.ToolParam{
			Name:        req.Tool.Name,
			Description: anthropic.String(req.Tool.Description),
			InputSchema: req.Tool.InputSchema,
		}}},
		ToolChoice: anthropic.ToolChoiceUnionParam{OfTool: &anthropic.ToolChoiceToolParam{Name: req.Tool.Name}},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := r.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.ToolUseBlock); ok && v.Name == req.Tool.Name {
			return json.RawMessage(v.JSON.Input.Raw()), nil
		}
	}
	return nil, ErrNoToolCall
}
