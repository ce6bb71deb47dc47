package runner

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/windowing"
)

// OpenAIRunner completes requests with an OpenAI-compatible chat completions API.
type OpenAIRunner struct {
	Client        *openai.Client
	Model         string
	MaxTokens     int
	HistoryBudget int
	Counter       windowing.TokenCounter
}

func NewOpenAI(client *openai.Client, model string, historyBudget int) *OpenAIRunner {
	if historyBudget <= 0 {
		historyBudget = DefaultHistoryBudget
	}
	return &OpenAIRunner{Client: client, Model: model, MaxTokens: 1024, HistoryBudget: historyBudget}
}

var _ flows.Completer = (*OpenAIRunner)(nil)

func (r *OpenAIRunner) Complete(ctx context.Context, req flows.Request) (json.RawMessage, error) {
	ctx, content := userContent(ctx, "openai", req, r.HistoryBudget, r.Counter)

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})

	resp, err := r.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.Model,
		Messages:  messages,
		MaxTokens: r.MaxTokens,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters:  req.Tool.Parameters(),
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.Tool.Name},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoToolCall
	}

	msg := resp.Choices[0].Message
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == req.Tool.Name && strings.TrimSpace(tc.Function.Arguments) != "" {
			return json.RawMessage(tc.Function.Arguments), nil
		}
	}
	// Some compatible servers ignore tool_choice and answer with JSON text.
	if obj, ok := jsonObjectFrom(msg.Content); ok {
		return obj, nil
	}
	return nil, ErrNoToolCall
}

var (
	codeBlockRe  = regexp.MustCompile("```(?:json)?\\s*\\n?([\\s\\S]*?)\\n?```")
	jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)
)

// jsonObjectFrom extracts a JSON object from content that is either bare JSON,
// a fenced code block, or prose around a single object.
func jsonObjectFrom(content string) (json.RawMessage, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, false
	}
	candidates := []string{content}
	if m := codeBlockRe.FindStringSubmatch(content); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if m := jsonObjectRe.FindString(content); m != "" {
		candidates = append(candidates, m)
	}
	for _, c := range candidates {
		var obj map[string]any
		if json.Unmarshal([]byte(c), &obj) == nil {
			return json.RawMessage(c), true
		}
	}
	return nil, false
}
