// Package gemini implements the inference backend gateway on the official
// genai SDK. Each request submits the full transcript plus the fixed
// behavioral contract and expects exactly one structured reply.
package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"

	genai "google.golang.org/genai"

	"healthkinator/internal/codec"
	"healthkinator/internal/domain"
	"healthkinator/internal/gateway"
)

const defaultModel = "gemini-2.5-flash"

// KeyGetter resolves an API key from an external parameter source when no
// key was configured directly.
type KeyGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client is a stateless gateway to the Gemini API. The underlying genai
// client is constructed once on first use and reused; if credential
// resolution fails the client fails permanently.
type Client struct {
	apiKey    string
	model     string
	getter    KeyGetter
	paramName string

	once sync.Once
	cli  *genai.Client
	err  error
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the generation model.
func WithModel(model string) Option {
	return func(c *Client) {
		if strings.TrimSpace(model) != "" {
			c.model = model
		}
	}
}

// WithKeyParameter falls back to the given parameter source when no API
// key was supplied directly.
func WithKeyParameter(getter KeyGetter, name string) Option {
	return func(c *Client) {
		c.getter = getter
		c.paramName = name
	}
}

// NewClient creates a Gemini gateway. apiKey may be empty if a key
// parameter source is configured.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: strings.TrimSpace(apiKey), model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolveClient builds the genai client on the first call and returns the
// cached result (or the permanent failure) on every subsequent call.
func (c *Client) resolveClient(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		key := c.apiKey
		if key == "" && c.getter != nil {
			key, c.err = c.getter.GetParameter(ctx, c.paramName)
			if c.err != nil {
				return
			}
			key = strings.TrimSpace(key)
		}
		if key == "" {
			c.err = errors.New("gemini: API key is not configured")
			return
		}
		c.cli, c.err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return c.cli, c.err
}

// RequestNext submits the transcript and returns the backend's next turn.
func (c *Client) RequestNext(ctx context.Context, transcript []domain.Turn) (domain.BackendReply, error) {
	cli, err := c.resolveClient(ctx)
	if err != nil {
		return domain.BackendReply{}, gateway.Transport("resolve credentials", err)
	}

	contents := make([]*genai.Content, 0, len(transcript))
	for _, t := range transcript {
		contents = append(contents, &genai.Content{
			Role:  string(t.Role),
			Parts: []*genai.Part{{Text: t.Payload}},
		})
	}

	resp, err := cli.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: gateway.SystemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    replySchema(),
	})
	if err != nil {
		return domain.BackendReply{}, gateway.Transport("generate content", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return domain.BackendReply{}, gateway.Protocol("empty candidate response", nil)
	}

	reply, err := codec.DecodeReply(resp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return domain.BackendReply{}, gateway.Protocol("decode reply", err)
	}
	return reply, nil
}

// replySchema constrains structured output to the BackendReply contract.
func replySchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type": {
				Type:        genai.TypeString,
				Enum:        []string{string(domain.ReplyQuestion), string(domain.ReplyDiagnosis)},
				Description: "Specifies if the response is a question for the user or a final diagnosis.",
			},
			"text": {
				Type:        genai.TypeString,
				Description: "If 'type' is 'question', the next question for the user. If 'type' is 'diagnosis', the detailed report and disclaimer.",
			},
			"condition": {
				Type:        genai.TypeString,
				Description: "The name of the probable medical condition. ONLY included if 'type' is 'diagnosis'.",
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "A confidence score from 0 to 100. ONLY included if 'type' is 'diagnosis'.",
			},
			"suggestions": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Optional short self-care suggestions. ONLY included if 'type' is 'diagnosis'.",
			},
		},
		Required: []string{"type", "text"},
	}
}
