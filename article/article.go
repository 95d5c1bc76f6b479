package article

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/nijaru/yt-blog/errors"
	"github.com/nijaru/yt-blog/metrics"
	"github.com/nijaru/yt-blog/models"
	"github.com/nijaru/yt-blog/repository"
	"github.com/nijaru/yt-blog/services/generation"
	"github.com/nijaru/yt-blog/services/metadata"
	"github.com/nijaru/yt-blog/services/transcription"
	"github.com/sirupsen/logrus"
)

const (
	msgInvalidData          = "Invalid data sent"
	msgTitleFailed          = "Failed to get YouTube title"
	msgTranscriptionFailed  = "Failed to get transcription"
	msgTranscriptEmpty      = "Failed to get transcript"
	msgGenerationFailed     = "Failed to generate blog article"
	msgPersistenceFailed    = "Failed to save blog article"
	msgAuthenticationNeeded = "Authentication required"
)

const defaultArchiveTimeout = 10 * time.Second

// Archiver keeps an out-of-band copy of generated articles.
type Archiver interface {
	Archive(ctx context.Context, article *models.Article, transcript string) error
}

type Result struct {
	Content string
	Article *models.Article
}

type Service struct {
	metadata    metadata.Service
	transcriber transcription.Service
	generator   generation.Service
	articles    repository.ArticleRepository
	archive     Archiver
	archiveWait time.Duration
	metrics     *metrics.Metrics
	logger      *logrus.Logger
}

type Option func(*Service)

// WithArchive enables best-effort archiving after each saved article.
func WithArchive(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

// WithArchiveTimeout bounds each archive upload.
func WithArchiveTimeout(d time.Duration) Option {
	return func(s *Service) { s.archiveWait = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(
	meta metadata.Service,
	transcriber transcription.Service,
	generator generation.Service,
	articles repository.ArticleRepository,
	logger *logrus.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		metadata:    meta,
		transcriber: transcriber,
		generator:   generator,
		articles:    articles,
		archiveWait: defaultArchiveTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateArticle runs the pipeline for one request body of the form
// {"link": "..."}. Steps run in order and stop at the first failure; nothing
// is persisted unless every remote call succeeded.
func (s *Service) GenerateArticle(ctx context.Context, principal *models.User, body []byte) (result *Result, err error) {
	const op = "ArticleService.GenerateArticle"

	start := time.Now()
	log := s.logger.WithField("op", op)
	defer func() {
		s.record(err, time.Since(start))
	}()

	if principal == nil {
		return nil, errors.Unauthenticated(op, nil, msgAuthenticationNeeded)
	}
	log = log.WithField("user_id", principal.ID)

	link, err := parseLink(body)
	if err != nil {
		log.WithError(err).Warn("Rejected generation request")
		return nil, err
	}
	log = log.WithField("link", link)

	title, err := s.metadata.Title(ctx, link)
	if err != nil {
		log.WithError(err).Error("Title lookup failed")
		return nil, errors.TitleFetchFailed(op, err, msgTitleFailed)
	}

	transcript, err := s.transcriber.Transcribe(ctx, link)
	if err != nil {
		log.WithError(err).Error("Transcription failed")
		return nil, errors.TranscriptionFailed(op, err, msgTranscriptionFailed)
	}
	if transcript == "" {
		log.Error("Transcription returned no text")
		return nil, errors.TranscriptionFailed(op, nil, msgTranscriptEmpty)
	}

	content, err := s.generator.Generate(ctx, transcript)
	if err != nil {
		log.WithError(err).Error("Article generation failed")
		return nil, errors.GenerationFailed(op, err, msgGenerationFailed)
	}
	if content == "" {
		log.Error("Article generation returned no text")
		return nil, errors.GenerationFailed(op, nil, msgGenerationFailed)
	}

	article := &models.Article{
		OwnerID:     principal.ID,
		SourceTitle: title,
		SourceLink:  link,
		Content:     content,
	}
	if _, err := s.articles.Create(ctx, article); err != nil {
		log.WithError(err).Error("Saving article failed")
		return nil, errors.PersistenceFailed(op, err, msgPersistenceFailed)
	}

	log.WithFields(logrus.Fields{
		"article_id": article.ID,
		"title":      title,
		"duration":   time.Since(start),
	}).Info("Article generated")

	s.archiveArticle(ctx, log, article, transcript)

	return &Result{Content: content, Article: article}, nil
}

// ListArticles returns the principal's own articles.
func (s *Service) ListArticles(ctx context.Context, principal *models.User) ([]*models.Article, error) {
	const op = "ArticleService.ListArticles"

	if principal == nil {
		return nil, errors.Unauthenticated(op, nil, msgAuthenticationNeeded)
	}

	articles, err := s.articles.ListByOwner(ctx, principal.ID)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to load articles")
	}
	return articles, nil
}

// GetArticle returns one article if the principal owns it.
func (s *Service) GetArticle(ctx context.Context, principal *models.User, id int64) (*models.Article, error) {
	const op = "ArticleService.GetArticle"

	if principal == nil {
		return nil, errors.Unauthenticated(op, nil, msgAuthenticationNeeded)
	}

	article, err := s.articles.Get(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound(op, err, "Article not found")
		}
		return nil, errors.Internal(op, err, "Failed to load article")
	}
	if !article.OwnedBy(principal) {
		return nil, errors.Forbidden(op, nil, "Article belongs to another user")
	}
	return article, nil
}

// parseLink accepts only a JSON object whose "link" is a non-empty string.
func parseLink(body []byte) (string, error) {
	const op = "article.parseLink"

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.InvalidInput(op, err, msgInvalidData)
	}

	raw, ok := payload["link"]
	if !ok {
		return "", errors.InvalidInput(op, nil, msgInvalidData)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", errors.InvalidInput(op, nil, msgInvalidData)
	}

	var req models.GenerateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", errors.InvalidInput(op, err, msgInvalidData)
	}
	if req.Link == "" {
		return "", errors.InvalidInput(op, nil, msgInvalidData)
	}
	return req.Link, nil
}

// archiveArticle runs detached from the request's cancellation; the article
// is already saved, so a client hanging up must not lose the copy.
func (s *Service) archiveArticle(ctx context.Context, log *logrus.Entry, article *models.Article, transcript string) {
	if s.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.archiveWait)
	defer cancel()

	if err := s.archive.Archive(ctx, article, transcript); err != nil {
		log.WithError(err).WithField("article_id", article.ID).Warn("Archiving article failed")
		if s.metrics != nil {
			s.metrics.RecordArchiveFailure()
		}
	}
}

func (s *Service) record(err error, d time.Duration) {
	if s.metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = string(errors.KindOf(err))
	}
	s.metrics.RecordGeneration(result, d)
}
