package transcription

import (
	"context"

	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/services"
	"github.com/nijaru/yt-blog/validation"
)

// Service turns a video link into transcript text. An empty transcript is
// a valid return value; callers decide what it means.
type Service interface {
	Transcribe(ctx context.Context, link string) (string, error)
}

type breakerService struct {
	next    Service
	breaker *resilience.Breaker
}

func WithBreaker(svc Service, b *resilience.Breaker) Service {
	return &breakerService{next: svc, breaker: b}
}

func (s *breakerService) Transcribe(ctx context.Context, link string) (string, error) {
	if err := validation.ValidateLink(link); err != nil {
		return "", services.NewAdapterError(s.breaker.Name(), "transcribe", err)
	}

	text, err := resilience.Call(s.breaker, func() (string, error) {
		return s.next.Transcribe(ctx, link)
	})
	if err != nil {
		if resilience.IsOpenError(err) {
			return "", services.NewAdapterError(s.breaker.Name(), "transcribe", err)
		}
		return "", err
	}
	return text, nil
}
