package transcription

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/scripts"
	"github.com/nijaru/yt-blog/services"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const audioFile = "audio.mp3"

// Whisper downloads the audio track with yt-dlp and transcribes it through
// the OpenAI audio API.
type Whisper struct {
	runner  scripts.Runner
	client  *openai.Client
	model   string
	tempDir string
	logger  *logrus.Logger
}

type WhisperConfig struct {
	Model   string
	TempDir string
}

func NewWhisper(runner scripts.Runner, client *openai.Client, cfg WhisperConfig, logger *logrus.Logger) *Whisper {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Whisper{
		runner:  runner,
		client:  client,
		model:   cfg.Model,
		tempDir: cfg.TempDir,
		logger:  logger,
	}
}

func (w *Whisper) Transcribe(ctx context.Context, link string) (string, error) {
	dir, err := os.MkdirTemp(w.tempDir, "yt-blog-"+uuid.NewString()+"-")
	if err != nil {
		return "", services.NewAdapterError("whisper", "transcribe", errors.Wrap(err, "creating temp dir"))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			w.logger.WithError(err).WithField("dir", dir).Warn("Failed to remove temp dir")
		}
	}()

	audioPath, err := w.downloadAudio(ctx, dir, link)
	if err != nil {
		return "", err
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && services.IsClientStatus(apiErr.HTTPStatusCode) {
			err = resilience.Permanent(err)
		}
		return "", services.NewAdapterError("whisper", "transcribe", err)
	}

	return resp.Text, nil
}

func (w *Whisper) downloadAudio(ctx context.Context, dir, link string) (string, error) {
	_, err := w.runner.Run(ctx,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "64K",
		"--no-playlist",
		"--no-warnings",
		"--output", filepath.Join(dir, "audio.%(ext)s"),
		"--", link,
	)
	if err != nil {
		if scripts.IsInputError(err) {
			err = resilience.Permanent(err)
		}
		return "", services.NewAdapterError("yt-dlp", "download audio", err)
	}

	audioPath := filepath.Join(dir, audioFile)
	if _, err := os.Stat(audioPath); err != nil {
		return "", services.NewAdapterError("yt-dlp", "download audio", errors.Wrap(err, "audio file missing after download"))
	}

	return audioPath, nil
}
