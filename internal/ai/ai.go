// Package ai relays chat messages to a language model, with a fallback
// provider when the primary fails.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a friendly assistant replying inside a group chat. " +
	"Answer in the language of the question and keep replies under 1500 characters."

const responseTimeout = 60 * time.Second

// Responder produces a reply for a chat message.
type Responder interface {
	Name() string
	Respond(ctx context.Context, message string) (string, error)
}

// OpenAI is a Responder backed by any OpenAI-compatible chat API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI responder. Leave baseURL empty for
// api.openai.com.
func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

// Name implements Responder.
func (o *OpenAI) Name() string { return "openai" }

// Respond implements Responder.
func (o *OpenAI) Respond(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, responseTimeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model %q", o.model)
	}
	return resp.Choices[0].Message.Content, nil
}

// Ollama is a Responder backed by a local Ollama server.
type Ollama struct {
	client *ollama.Client
	model  string
}

// NewOllama creates an Ollama responder for the given host:port.
func NewOllama(host, model string) *Ollama {
	c := ollama.NewClient(&url.URL{Scheme: "http", Host: host, Path: "/"}, &http.Client{})
	return &Ollama{client: c, model: model}
}

// Name implements Responder.
func (o *Ollama) Name() string { return "ollama" }

// Respond implements Responder.
func (o *Ollama) Respond(ctx context.Context, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, responseTimeout)
	defer cancel()

	req := &ollama.GenerateRequest{
		Model:  o.model,
		System: systemPrompt,
		Prompt: message,
	}

	var parts []string
	err := o.client.Generate(ctx, req, func(resp ollama.GenerateResponse) error {
		parts = append(parts, resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return strings.Join(parts, ""), nil
}

// Fallback tries each provider in order, returning the first answer.
type Fallback struct {
	providers []Responder
	log       *slog.Logger
}

// NewFallback creates a Fallback over the given providers.
func NewFallback(log *slog.Logger, providers ...Responder) *Fallback {
	return &Fallback{providers: providers, log: log}
}

// Name implements Responder.
func (f *Fallback) Name() string { return "fallback" }

// Respond implements Responder. A provider error or empty answer moves on
// to the next provider; the last error is returned when all fail.
func (f *Fallback) Respond(ctx context.Context, message string) (string, error) {
	var lastErr error
	for _, p := range f.providers {
		answer, err := p.Respond(ctx, message)
		if err == nil && answer != "" {
			return answer, nil
		}
		if err == nil {
			err = fmt.Errorf("empty answer")
		}
		lastErr = fmt.Errorf("%s: %w", p.Name(), err)
		f.log.Warn("ai provider failed, trying next", "provider", p.Name(), "error", err)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return "", lastErr
}
