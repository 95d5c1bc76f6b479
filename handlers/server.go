package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/nijaru/yt-blog/article"
	"github.com/nijaru/yt-blog/auth"
	"github.com/nijaru/yt-blog/config"
	"github.com/nijaru/yt-blog/metrics"
	"github.com/nijaru/yt-blog/middleware"
	"github.com/nijaru/yt-blog/models"
	"github.com/nijaru/yt-blog/utils"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// maxGenerateBody caps the JSON body of POST /generate-blog.
const maxGenerateBody = 64 << 10

type ArticleService interface {
	GenerateArticle(ctx context.Context, principal *models.User, body []byte) (*article.Result, error)
	ListArticles(ctx context.Context, principal *models.User) ([]*models.Article, error)
	GetArticle(ctx context.Context, principal *models.User, id int64) (*models.Article, error)
}

type AccountService interface {
	Signup(ctx context.Context, form auth.SignupForm) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type Server struct {
	config    *config.Config
	articles  ArticleService
	accounts  AccountService
	sessions  *auth.Sessions
	gate      *auth.Middleware
	limiter   *middleware.RateLimiter
	metrics   *metrics.Metrics
	pages     *pages
	logger    *logrus.Logger
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

// NewServer builds the HTTP server. WithServices and WithSessions are
// required; the rest are optional.
func NewServer(cfg *config.Config, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:    cfg,
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.articles == nil || s.accounts == nil {
		return nil, pkgerrors.New("handlers: article and account services are required")
	}
	if s.sessions == nil {
		return nil, pkgerrors.New("handlers: sessions are required")
	}

	tmpl, err := loadPages()
	if err != nil {
		return nil, err
	}
	s.pages = tmpl

	if s.gate == nil {
		s.gate = auth.NewMiddleware(s.sessions, s.logger)
	}
	if s.limiter == nil && cfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerMinute,
			cfg.RateLimit.BurstSize,
			cfg.RateLimit.TrustedProxies,
		)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s, nil
}

func WithServices(articles ArticleService, accounts AccountService) ServerOption {
	return func(s *Server) {
		s.articles = articles
		s.accounts = accounts
	}
}

func WithSessions(sessions *auth.Sessions) ServerOption {
	return func(s *Server) {
		s.sessions = sessions
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRateLimiter overrides the limiter built from the rate limit config.
func WithRateLimiter(rl *middleware.RateLimiter) ServerOption {
	return func(s *Server) {
		s.limiter = rl
	}
}

func (s *Server) Start() error {
	s.logger.WithField("port", s.config.ServerPort).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// Handler returns the routes wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	mux := s.routes()

	var metricsMW func(http.Handler) http.Handler
	if s.metrics != nil {
		metricsMW = middleware.Metrics(s.metrics)
	}

	// Metrics reads r.Pattern, so it must wrap the mux directly.
	return middleware.Chain(mux,
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.Recovery(s.logger),
		middleware.SecurityHeaders(),
		metricsMW,
	)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", s.gate.RequireLogin(http.HandlerFunc(s.handleIndex)))

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /signup", s.handleSignupPage)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.Handle("GET /logout", s.gate.RequireLogin(http.HandlerFunc(s.handleLogout)))

	// Registered without a method so every non-POST gets the JSON 405.
	mux.Handle("/generate-blog", s.generateBlogHandler())

	mux.Handle("GET /blog-list", s.gate.RequireLogin(http.HandlerFunc(s.handleBlogList)))
	details := s.gate.RequireLogin(http.HandlerFunc(s.handleBlogDetails))
	mux.Handle("GET /blog-details/{id}", details)
	mux.Handle("GET /blog-details/{id}/{$}", details)

	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   s.config.Version,
		"uptime":    time.Since(s.startTime).String(),
	}

	if s.config.Debug {
		status["debug"] = true
		status["goroutines"] = runtime.NumGoroutine()
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		status["memory"] = map[string]interface{}{
			"allocated": m.Alloc,
			"total":     m.TotalAlloc,
			"system":    m.Sys,
			"gc_cycles": m.NumGC,
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, status)
}
