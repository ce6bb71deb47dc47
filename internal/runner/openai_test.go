package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/petasbytes/theraia/internal/runner"
	"github.com/petasbytes/theraia/memory"
	"github.com/petasbytes/theraia/tools"
)

func chatResp(message string) []byte {
	return []byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"tool_calls","message":` + message + `}]}`)
}

type openaiReq struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Tools []struct {
		Type     string `json:"type"`
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	} `json:"tools"`
	ToolChoice struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	} `json:"tool_choice"`
}

func TestOpenAI_ForcesFunctionAndReturnsArguments(t *testing.T) {
	capReq := &capture{}
	msg := `{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"therapy_reply","arguments":"{\"response\":\"I hear you.\"}"}}]}`
	fake := &fakeTransport{respStatus: 200, respBody: chatResp(msg), captured: capReq}
	r := runner.NewOpenAI(newOpenAIClient(fake), "gpt-test", 1000)

	out, err := r.Complete(context.Background(), replyRequest(memory.Message{Role: memory.RoleAssistant, Text: "welcome"}))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var reply tools.TherapyReply
	if err := json.Unmarshal(out, &reply); err != nil || reply.Response != "I hear you." {
		t.Fatalf("unexpected output %s (err=%v)", out, err)
	}

	var rb openaiReq
	if err := json.Unmarshal(capReq.body, &rb); err != nil {
		t.Fatalf("unmarshal body: %v\nbody=%s", err, capReq.body)
	}
	if rb.Model != "gpt-test" {
		t.Errorf("model: %q", rb.Model)
	}
	if rb.ToolChoice.Type != "function" || rb.ToolChoice.Function.Name != tools.TherapyReplyTool {
		t.Fatalf("tool_choice: %+v", rb.ToolChoice)
	}
	if len(rb.Tools) != 1 || rb.Tools[0].Function.Parameters["type"] != "object" {
		t.Fatalf("tools: %+v", rb.Tools)
	}
	if len(rb.Messages) != 2 || rb.Messages[0].Role != "system" || rb.Messages[1].Role != "user" {
		t.Fatalf("messages: %+v", rb.Messages)
	}
}

func TestOpenAI_FallsBackToJSONContent(t *testing.T) {
	msg := `{"role":"assistant","content":"Here you go:\n` + "```json\\n{\\\"response\\\":\\\"fenced\\\"}\\n```" + `"}`
	r := runner.NewOpenAI(newOpenAIClient(&fakeTransport{respStatus: 200, respBody: chatResp(msg)}), "m", 100)

	out, err := r.Complete(context.Background(), replyRequest())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var reply tools.TherapyReply
	if err := json.Unmarshal(out, &reply); err != nil || reply.Response != "fenced" {
		t.Fatalf("unexpected output %s (err=%v)", out, err)
	}
}

func TestOpenAI_NoToolCallIsError(t *testing.T) {
	cases := map[string][]byte{
		"prose":      chatResp(`{"role":"assistant","content":"just words"}`),
		"no choices": []byte(`{"id":"c1","object":"chat.completion","created":1,"model":"m","choices":[]}`),
		"wrong tool": chatResp(`{"role":"assistant","tool_calls":[{"id":"c","type":"function","function":{"name":"other","arguments":"{}"}}]}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			r := runner.NewOpenAI(newOpenAIClient(&fakeTransport{respStatus: 200, respBody: body}), "m", 100)
			_, err := r.Complete(context.Background(), replyRequest())
			if !errors.Is(err, runner.ErrNoToolCall) {
				t.Fatalf("expected ErrNoToolCall, got %v", err)
			}
		})
	}
}
