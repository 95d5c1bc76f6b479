package metadata

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/services"
	"github.com/nijaru/yt-blog/validation"
)

const (
	maxPageBytes = 2 << 20
	maxRedirects = 5
)

// Page fetches the link and reads og:title, falling back to <title>.
type Page struct {
	client    *http.Client
	userAgent string
}

// NewPage uses client as given. A nil client gets one that refuses to
// connect to internal addresses, re-checked on every redirect and at dial
// time after DNS resolution.
func NewPage(client *http.Client) *Page {
	if client == nil {
		client = newPublicClient()
	}
	return &Page{client: client, userAgent: "yt-blog/1.0"}
}

func newPublicClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   validation.DenyPrivateDial,
	}
	return &http.Client{
		Timeout: 15 * time.Second,
		// No Proxy: a proxy would dial on our behalf and bypass Control.
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return validation.ValidateLink(req.URL.String())
		},
	}
}

func (p *Page) Title(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", services.NewAdapterError("page", "title", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := p.client.Do(req)
	if err != nil {
		var dnsErr *net.DNSError
		if stderrors.As(err, &dnsErr) && dnsErr.IsNotFound {
			err = resilience.Permanent(err)
		}
		return "", services.NewAdapterError("page", "title", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if services.IsClientStatus(resp.StatusCode) {
			err = resilience.Permanent(err)
		}
		return "", services.NewAdapterError("page", "title", err)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", services.NewAdapterError("page", "title", err)
	}

	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if title := strings.TrimSpace(og); title != "" {
			return title, nil
		}
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}
	return NoTitle, nil
}
