package metadata

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/scripts"
	"github.com/nijaru/yt-blog/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	RunFunc func(ctx context.Context, args ...string) ([]byte, error)
}

func (f *fakeRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	return f.RunFunc(ctx, args...)
}

type titleFunc func(ctx context.Context, link string) (string, error)

func (f titleFunc) Title(ctx context.Context, link string) (string, error) { return f(ctx, link) }

func TestYtDlpTitle(t *testing.T) {
	var gotArgs []string
	runner := &fakeRunner{RunFunc: func(ctx context.Context, args ...string) ([]byte, error) {
		gotArgs = args
		return []byte("Demo Video\n"), nil
	}}

	title, err := NewYtDlp(runner).Title(context.Background(), "https://example.com/video")
	require.NoError(t, err)
	assert.Equal(t, "Demo Video", title)
	assert.Equal(t, "https://example.com/video", gotArgs[len(gotArgs)-1])
	assert.Equal(t, "--", gotArgs[len(gotArgs)-2])
}

func TestYtDlpNoTitle(t *testing.T) {
	for _, out := range []string{"", "  \n", "NA\n"} {
		runner := &fakeRunner{RunFunc: func(ctx context.Context, args ...string) ([]byte, error) {
			return []byte(out), nil
		}}

		title, err := NewYtDlp(runner).Title(context.Background(), "https://example.com/video")
		require.NoError(t, err)
		assert.Equal(t, NoTitle, title)
	}
}

func TestYtDlpFailure(t *testing.T) {
	runner := &fakeRunner{RunFunc: func(ctx context.Context, args ...string) ([]byte, error) {
		return nil, fmt.Errorf("exit status 1")
	}}

	_, err := NewYtDlp(runner).Title(context.Background(), "https://example.com/video")
	var adapterErr *services.AdapterError
	require.True(t, stderrors.As(err, &adapterErr))
	assert.Equal(t, "yt-dlp", adapterErr.Provider)
}

func TestPageTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"og title", `<html><head><meta property="og:title" content="Demo Video"><title>Other</title></head></html>`, "Demo Video"},
		{"title tag", `<html><head><title> Demo Video </title></head></html>`, "Demo Video"},
		{"no title", `<html><body>nothing</body></html>`, NoTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			title, err := NewPage(server.Client()).Title(context.Background(), server.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, title)
		})
	}
}

func TestPageTitleNon2xx(t *testing.T) {
	tests := []struct {
		status    int
		permanent bool
	}{
		{http.StatusNotFound, true},
		{http.StatusGone, true},
		{http.StatusTooManyRequests, false},
		{http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewPage(server.Client()).Title(context.Background(), server.URL)
			require.Error(t, err)
			assert.Equal(t, tt.permanent, resilience.IsPermanent(err))
		})
	}
}

func TestPageDefaultClientRefusesInternalAddress(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		fmt.Fprint(w, `<title>internal admin</title>`)
	}))
	defer server.Close()

	_, err := NewPage(nil).Title(context.Background(), server.URL+"/admin")
	require.Error(t, err)
	assert.False(t, hit, "request must not reach a loopback server")
	assert.True(t, resilience.IsPermanent(err))

	var adapterErr *services.AdapterError
	require.True(t, stderrors.As(err, &adapterErr))
	assert.Equal(t, "page", adapterErr.Provider)
}

func TestPageDefaultClientChecksRedirects(t *testing.T) {
	client := newPublicClient()

	internal := httptest.NewRequest(http.MethodGet, "http://169.254.169.254/latest/meta-data/", nil)
	assert.Error(t, client.CheckRedirect(internal, []*http.Request{internal}))

	public := httptest.NewRequest(http.MethodGet, "https://example.com/watch", nil)
	assert.NoError(t, client.CheckRedirect(public, []*http.Request{public}))

	via := make([]*http.Request, maxRedirects)
	assert.Error(t, client.CheckRedirect(public, via))
}

func TestWithBreakerRejectsInternalLink(t *testing.T) {
	called := false
	svc := WithBreaker(titleFunc(func(ctx context.Context, link string) (string, error) {
		called = true
		return "x", nil
	}), resilience.NewBreaker(resilience.DefaultBreakerConfig("metadata"), nil))

	for _, link := range []string{"http://127.0.0.1:8080/admin", "http://localhost/", "http://[::1]/"} {
		_, err := svc.Title(context.Background(), link)
		assert.Error(t, err, link)
	}
	assert.False(t, called)
}

func TestYtDlpLinkErrorIsPermanent(t *testing.T) {
	runner := &fakeRunner{RunFunc: func(ctx context.Context, args ...string) ([]byte, error) {
		return nil, &scripts.CommandError{
			Op:      "scripts.Run",
			Command: "yt-dlp",
			Stderr:  "ERROR: [youtube] abc123: Private video. Sign in if you've been granted access to this video",
			Err:     stderrors.New("exit status 1"),
		}
	}}

	_, err := NewYtDlp(runner).Title(context.Background(), "https://example.com/video")
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
}

// One user's unusable links must not open the breaker for everyone else.
func TestWithBreakerIgnoresLinkErrors(t *testing.T) {
	cfg := resilience.BreakerConfig{
		Name: "metadata", MaxRequests: 1, Interval: time.Minute,
		Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 1,
	}
	runner := &fakeRunner{RunFunc: func(ctx context.Context, args ...string) ([]byte, error) {
		if args[len(args)-1] == "https://example.com/broken" {
			return nil, &scripts.CommandError{
				Command: "yt-dlp",
				Stderr:  "ERROR: Unsupported URL: https://example.com/broken",
				Err:     stderrors.New("exit status 1"),
			}
		}
		return []byte("Demo Video\n"), nil
	}}
	breaker := resilience.NewBreaker(cfg, nil)
	svc := WithBreaker(NewYtDlp(runner), breaker)

	for i := 0; i < 5; i++ {
		_, err := svc.Title(context.Background(), "https://example.com/broken")
		require.Error(t, err)
		assert.False(t, resilience.IsOpenError(err))
	}
	assert.False(t, breaker.IsOpen())

	title, err := svc.Title(context.Background(), "https://example.com/video")
	require.NoError(t, err)
	assert.Equal(t, "Demo Video", title)
}

func TestWithBreakerRejectsUnsafeLink(t *testing.T) {
	called := false
	svc := WithBreaker(titleFunc(func(ctx context.Context, link string) (string, error) {
		called = true
		return "x", nil
	}), resilience.NewBreaker(resilience.DefaultBreakerConfig("metadata"), nil))

	_, err := svc.Title(context.Background(), "--exec=touch /tmp/pwned")
	require.Error(t, err)
	assert.False(t, called)

	var adapterErr *services.AdapterError
	assert.True(t, stderrors.As(err, &adapterErr))
}

func TestWithBreakerOpen(t *testing.T) {
	cfg := resilience.BreakerConfig{
		Name: "metadata", MaxRequests: 1, Interval: time.Minute,
		Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 1,
	}
	svc := WithBreaker(titleFunc(func(ctx context.Context, link string) (string, error) {
		return "", fmt.Errorf("down")
	}), resilience.NewBreaker(cfg, nil))

	_, err := svc.Title(context.Background(), "https://example.com/video")
	require.Error(t, err)

	_, err = svc.Title(context.Background(), "https://example.com/video")
	var adapterErr *services.AdapterError
	require.True(t, stderrors.As(err, &adapterErr))
	assert.True(t, resilience.IsOpenError(err))
}
