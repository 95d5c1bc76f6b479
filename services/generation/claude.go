package generation

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/services"
	"github.com/sirupsen/logrus"
)

type Claude struct {
	client  anthropic.Client
	options Options
	logger  *logrus.Logger
}

func NewClaude(client anthropic.Client, opts Options, logger *logrus.Logger) *Claude {
	if opts.Model == "" {
		opts.Model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Claude{client: client, options: opts, logger: logger}
}

func (c *Claude) Generate(ctx context.Context, transcript string) (string, error) {
	start := time.Now()

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.options.Model),
		MaxTokens:   int64(c.options.MaxTokens),
		Temperature: anthropic.Float(float64(c.options.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(BuildPrompt(transcript)),
			),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if stderrors.As(err, &apiErr) && services.IsClientStatus(apiErr.StatusCode) {
			err = resilience.Permanent(err)
		}
		return "", services.NewAdapterError("claude", "generate", err)
	}
	if len(message.Content) == 0 {
		return "", services.NewAdapterError("claude", "generate", fmt.Errorf("empty response"))
	}

	var b strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}

	c.logger.WithFields(logrus.Fields{
		"model":         message.Model,
		"input_tokens":  message.Usage.InputTokens,
		"output_tokens": message.Usage.OutputTokens,
		"duration":      time.Since(start),
	}).Debug("Article generated")

	return strings.TrimSpace(b.String()), nil
}
