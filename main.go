package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/nijaru/yt-blog/article"
	"github.com/nijaru/yt-blog/auth"
	"github.com/nijaru/yt-blog/config"
	"github.com/nijaru/yt-blog/db"
	"github.com/nijaru/yt-blog/handlers"
	"github.com/nijaru/yt-blog/logger"
	"github.com/nijaru/yt-blog/metrics"
	"github.com/nijaru/yt-blog/repository/sqlstore"
	"github.com/nijaru/yt-blog/resilience"
	"github.com/nijaru/yt-blog/scripts"
	"github.com/nijaru/yt-blog/services/generation"
	"github.com/nijaru/yt-blog/services/metadata"
	"github.com/nijaru/yt-blog/services/transcription"
	"github.com/nijaru/yt-blog/storage"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.WithError(err).Fatal("Server stopped")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	conn, dialect, err := db.Open(cfg.Database)
	if err != nil {
		return errors.Wrap(err, "open database")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.WithError(err).Error("Failed to close database")
		}
	}()

	users := sqlstore.NewUserRepository(conn, dialect)
	articles := sqlstore.NewArticleRepository(conn, dialect)

	runner, err := scripts.NewCommandRunner(scripts.Config{
		Path:    cfg.YtDlp.Path,
		Timeout: cfg.YtDlp.Timeout,
	}, logger)
	if err != nil {
		return errors.Wrap(err, "initialize yt-dlp runner")
	}

	openaiClient := newOpenAIClient(cfg.OpenAI)

	meta := metadata.WithBreaker(
		newMetadata(cfg, runner),
		resilience.NewBreaker(resilience.DefaultBreakerConfig("metadata"), logger),
	)

	transcriber := transcription.WithBreaker(
		transcription.NewWhisper(runner, openaiClient, transcription.WhisperConfig{
			Model:   cfg.OpenAI.TranscriptionModel,
			TempDir: cfg.YtDlp.TempDir,
		}, logger),
		resilience.NewBreaker(resilience.DefaultBreakerConfig("transcription"), logger),
	)

	generator := generation.WithBreaker(
		newGenerator(cfg, openaiClient, logger),
		resilience.NewBreaker(resilience.DefaultBreakerConfig(cfg.Providers.Generation), logger),
	)

	m := metrics.New()
	opts := []article.Option{article.WithMetrics(m)}

	if cfg.Archive.Enabled {
		archive, err := storage.NewArchive(context.Background(), storage.ArchiveConfig{
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Region:    cfg.Archive.Region,
			Endpoint:  cfg.Archive.Endpoint,
			Bucket:    cfg.Archive.Bucket,
		})
		if err != nil {
			return errors.Wrap(err, "initialize archive")
		}
		opts = append(opts, article.WithArchive(archive))
		logger.WithField("bucket", cfg.Archive.Bucket).Info("Article archiving enabled")
	}

	articleService := article.NewService(meta, transcriber, generator, articles, logger, opts...)

	server, err := handlers.NewServer(cfg,
		handlers.WithLogger(logger),
		handlers.WithMetrics(m),
		handlers.WithServices(articleService, auth.NewService(users, logger)),
		handlers.WithSessions(auth.NewSessions(cfg.Session, users, logger)),
	)
	if err != nil {
		return errors.Wrap(err, "initialize server")
	}

	logger.WithFields(logrus.Fields{
		"version":    cfg.Version,
		"db_driver":  cfg.Database.Driver,
		"metadata":   cfg.Providers.Metadata,
		"generation": cfg.Providers.Generation,
	}).Info("Configuration loaded")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serverErr:
		return errors.Wrap(err, "listen")
	case sig := <-stop:
		logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.ShutdownTimeout > 0 {
		return cfg.ShutdownTimeout
	}
	return 10 * time.Second
}

func newOpenAIClient(cfg config.OpenAIConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func newMetadata(cfg *config.Config, runner scripts.Runner) metadata.Service {
	if cfg.Providers.Metadata == config.MetadataPage {
		return metadata.NewPage(nil)
	}
	return metadata.NewYtDlp(runner)
}

func newGenerator(cfg *config.Config, openaiClient *openai.Client, logger *logrus.Logger) generation.Service {
	if cfg.Providers.Generation == config.GenerationAnthropic {
		clientOpts := []option.RequestOption{
			option.WithAPIKey(cfg.Anthropic.APIKey),
			option.WithMaxRetries(0),
		}
		if cfg.Anthropic.BaseURL != "" {
			clientOpts = append(clientOpts, option.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		return generation.NewClaude(anthropic.NewClient(clientOpts...), generation.Options{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		}, logger)
	}

	return generation.NewOpenAI(openaiClient, generation.Options{
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
	}, logger)
}
