package generation

import (
	"context"
	"fmt"

	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/services"
)

// Service writes a blog article from a transcript.
type Service interface {
	Generate(ctx context.Context, transcript string) (string, error)
}

const promptTemplate = "Based on the following transcript from a YouTube video, write a comprehensive blog article. " +
	"Write it based on the transcript, but don't make it look like a YouTube video. " +
	"Make it look like a proper blog article:\n\n%s\n\nArticle:"

// BuildPrompt embeds the transcript in the article-writing instruction.
func BuildPrompt(transcript string) string {
	return fmt.Sprintf(promptTemplate, transcript)
}

// Options are shared by every provider.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

func DefaultOptions() Options {
	return Options{MaxTokens: 1000, Temperature: 0.7}
}

type breakerService struct {
	next    Service
	breaker *resilience.Breaker
}

func WithBreaker(svc Service, b *resilience.Breaker) Service {
	return &breakerService{next: svc, breaker: b}
}

func (s *breakerService) Generate(ctx context.Context, transcript string) (string, error) {
	content, err := resilience.Call(s.breaker, func() (string, error) {
		return s.next.Generate(ctx, transcript)
	})
	if err != nil {
		if resilience.IsOpenError(err) {
			return "", services.NewAdapterError(s.breaker.Name(), "generate", err)
		}
		return "", err
	}
	return content, nil
}
