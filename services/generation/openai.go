package generation

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/services"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

type OpenAI struct {
	client  *openai.Client
	options Options
	logger  *logrus.Logger
}

func NewOpenAI(client *openai.Client, opts Options, logger *logrus.Logger) *OpenAI {
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OpenAI{client: client, options: opts, logger: logger}
}

func (o *OpenAI) Generate(ctx context.Context, transcript string) (string, error) {
	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.options.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: BuildPrompt(transcript),
		}},
		MaxTokens:   o.options.MaxTokens,
		Temperature: o.options.Temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if stderrors.As(err, &apiErr) && services.IsClientStatus(apiErr.HTTPStatusCode) {
			err = resilience.Permanent(err)
		}
		return "", services.NewAdapterError("openai", "generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", services.NewAdapterError("openai", "generate", fmt.Errorf("empty response"))
	}

	o.logger.WithFields(logrus.Fields{
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
		"duration":          time.Since(start),
	}).Debug("Article generated")

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
