package metadata

import (
	"context"

	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/services"
	"github.com/nijaru/yt-blog/validation"
)

// NoTitle is returned when a video has no discoverable title. It is a
// successful result, not an error.
const NoTitle = "No title found"

// Service looks up the display title of a video link.
type Service interface {
	Title(ctx context.Context, link string) (string, error)
}

type breakerService struct {
	next    Service
	breaker *resilience.Breaker
}

// WithBreaker guards svc with b. Links are validated before any call.
func WithBreaker(svc Service, b *resilience.Breaker) Service {
	return &breakerService{next: svc, breaker: b}
}

func (s *breakerService) Title(ctx context.Context, link string) (string, error) {
	if err := validation.ValidateLink(link); err != nil {
		return "", services.NewAdapterError(s.breaker.Name(), "title", err)
	}

	title, err := resilience.Call(s.breaker, func() (string, error) {
		return s.next.Title(ctx, link)
	})
	if err != nil {
		if resilience.IsOpenError(err) {
			return "", services.NewAdapterError(s.breaker.Name(), "title", err)
		}
		return "", err
	}
	return title, nil
}
