// Package openai implements the inference backend gateway on an
// OpenAI-compatible chat completion API. It is a drop-in substitute for
// the Gemini gateway; the structured-output contract is enforced through
// JSON mode, the system instruction and the shared codec.
package openai

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"healthkinator/internal/codec"
	"healthkinator/internal/domain"
	"healthkinator/internal/gateway"
)

const defaultModel = "gpt-4o-mini"

// chatAPI is the subset of the SDK client the gateway uses.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client calls the chat completion API with the session transcript.
type Client struct {
	cli   chatAPI
	model string
}

// NewClient constructs an OpenAI-backed gateway.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: API key must not be empty")
	}
	return newClient(openai.NewClient(apiKey), model), nil
}

func newClient(api chatAPI, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Client{cli: api, model: model}
}

// RequestNext submits the transcript and returns the backend's next turn.
func (c *Client) RequestNext(ctx context.Context, transcript []domain.Turn) (domain.BackendReply, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(transcript)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: gateway.SystemInstruction,
	})
	for _, t := range transcript {
		role := openai.ChatMessageRoleUser
		if t.Role == domain.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Payload})
	}

	resp, err := c.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.BackendReply{}, gateway.Transport("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return domain.BackendReply{}, gateway.Protocol("no choices in response", nil)
	}

	reply, err := codec.DecodeReply(resp.Choices[0].Message.Content)
	if err != nil {
		return domain.BackendReply{}, gateway.Protocol("decode reply", err)
	}
	return reply, nil
}
