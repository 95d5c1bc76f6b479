package metadata

import (
	"context"
	"strings"

	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/scripts"
	"github.com/nijaru/yt-blog/services"
)

// YtDlp reads the title from yt-dlp's metadata extraction without
// downloading any media.
type YtDlp struct {
	runner scripts.Runner
}

func NewYtDlp(runner scripts.Runner) *YtDlp {
	return &YtDlp{runner: runner}
}

func (y *YtDlp) Title(ctx context.Context, link string) (string, error) {
	out, err := y.runner.Run(ctx,
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		"--print", "title",
		"--", link,
	)
	if err != nil {
		if scripts.IsInputError(err) {
			err = resilience.Permanent(err)
		}
		return "", services.NewAdapterError("yt-dlp", "title", err)
	}

	// Playlists and redirects can print several lines; the first one is ours.
	title, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	title = strings.TrimSpace(title)
	if title == "" || title == "NA" {
		return NoTitle, nil
	}
	return title, nil
}
