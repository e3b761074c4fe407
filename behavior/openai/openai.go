// Package openai provides a behavior generator backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/crewsim/behavior"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI generator adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Generator wraps the OpenAI Chat Completions API behind the generic
// behavior.Generator interface.
type Generator struct {
	client *openai.Client
	opts   Options
}

// NewGenerator creates a new OpenAI generator using the official client.
func NewGenerator(optFns ...func(o *Options)) *Generator {
	client := openai.NewClient()
	return NewGeneratorFromClient(&client, optFns...)
}

// NewGeneratorFromClient creates a new OpenAI generator from an existing client.
func NewGeneratorFromClient(client *openai.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

// Generate implements behavior.Generator. It renders the request into system
// and user messages, performs a non-streaming completion and parses the reply
// into an Action.
func (g *Generator) Generate(ctx context.Context, req behavior.Request) (behavior.Response, error) {
	system, user := behavior.RenderPrompt(req)

	params := openai.ChatCompletionNewParams{
		Model:               g.opts.Model,
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return behavior.Response{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return behavior.Response{}, fmt.Errorf("no choices returned")
	}

	text := resp.Choices[0].Message.Content
	return behavior.Response{Action: behavior.ParseAction(text), State: req.State}, nil
}

// Info returns metadata describing this OpenAI generator implementation.
func (g *Generator) Info() behavior.Info {
	return behavior.Info{
		Name:     g.opts.Model,
		Provider: "openai",
	}
}
