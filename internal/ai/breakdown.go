package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Breakdown turns a task title into a short list of suggested subtasks.
type Breakdown interface {
	Subtasks(ctx context.Context, title string) ([]string, error)
}

// Service calls the chat-completions API when an API key is configured and
// otherwise answers from a deterministic local template. Remote failures are
// returned to the caller rather than masked with an empty result: the client
// needs to distinguish "nothing to suggest" from "integration broke".
type Service struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewService builds a breakdown service. An empty or "dummy" API key selects
// fallback mode, which never touches the network.
func NewService(apiKey, model string, timeout time.Duration) *Service {
	s := &Service{model: model, timeout: timeout}
	if apiKey != "" && apiKey != "dummy" {
		s.client = openai.NewClient(apiKey)
	}
	return s
}

// NewServiceWithClient injects a preconfigured client; used by tests to point
// at a stub server.
func NewServiceWithClient(client *openai.Client, model string, timeout time.Duration) *Service {
	return &Service{client: client, model: model, timeout: timeout}
}

// FallbackMode reports whether the service answers locally.
func (s *Service) FallbackMode() bool {
	return s.client == nil
}

const promptTemplate = `You are a task management assistant.
Break the following task into 3 to 5 concrete, actionable subtasks.
Respond with a JSON array of strings and nothing else.

Task: %q`

// Subtasks returns 3-5 suggested subtask titles for the given task title.
func (s *Service) Subtasks(ctx context.Context, title string) ([]string, error) {
	if s.client == nil {
		return fallbackSubtasks(title), nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(promptTemplate, title)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return parseSubtasks(resp.Choices[0].Message.Content)
}

// fallbackSubtasks is the deterministic no-credential answer: exactly three
// templated subtasks, each containing the submitted title.
func fallbackSubtasks(title string) []string {
	return []string{
		fmt.Sprintf("Research the details of %q", title),
		fmt.Sprintf("Draft a step-by-step plan for %q", title),
		fmt.Sprintf("Gather everything needed for %q", title),
	}
}

// parseSubtasks parses the model output as a JSON array of strings, first
// stripping a ``` or ```json code fence the model may wrap around it. Any
// other shape is a failure.
func parseSubtasks(content string) ([]string, error) {
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	content = strings.TrimSpace(content)

	var subtasks []string
	if err := json.Unmarshal([]byte(content), &subtasks); err != nil {
		return nil, fmt.Errorf("model did not return a JSON array of strings: %w", err)
	}
	if len(subtasks) == 0 {
		return nil, fmt.Errorf("model returned an empty subtask list")
	}
	return subtasks, nil
}
