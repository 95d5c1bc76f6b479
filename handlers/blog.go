package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/nijaru/yt-blog/auth"
	"github.com/nijaru/yt-blog/errors"
	"github.com/nijaru/yt-blog/middleware"
	"github.com/nijaru/yt-blog/models"
	"github.com/nijaru/yt-blog/utils"
	"github.com/sirupsen/logrus"
)

// generateBlogHandler checks the method before authentication so anonymous
// clients also get 405 for anything but POST. Anonymous POSTs are sent to
// the login page like every other protected route.
func (s *Server) generateBlogHandler() http.Handler {
	var next http.Handler = http.HandlerFunc(s.handleGenerateBlog)
	if s.limiter != nil {
		next = s.limiter.Middleware(next)
	}
	next = s.gate.RequireLogin(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			utils.RespondWithError(w, middleware.GetLogger(r.Context()),
				errors.MethodNotAllowed("handlers.GenerateBlog", "Invalid request method"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleGenerateBlog handles POST /generate-blog
func (s *Server) handleGenerateBlog(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.GenerateBlog"
	logger := middleware.GetLogger(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGenerateBody))
	if err != nil {
		utils.RespondWithError(w, logger, errors.InvalidInput(op, err, "Invalid data sent"))
		return
	}

	ctx := r.Context()
	if s.config.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.GenerateTimeout)
		defer cancel()
	}

	principal := auth.PrincipalFromContext(r.Context())
	result, err := s.articles.GenerateArticle(ctx, principal, body)
	if err != nil {
		utils.RespondWithError(w, logger, err)
		return
	}

	logger.WithField("article_id", result.Article.ID).Info("Sending generated article")
	utils.RespondWithJSON(w, http.StatusOK, models.GenerateResponse{Content: result.Content})
}

// handleBlogList handles GET /blog-list
func (s *Server) handleBlogList(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	articles, err := s.articles.ListArticles(r.Context(), principal)
	if err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("Failed to list articles")
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, pageBlogList, pageData{
		Title:    "Saved Blog Posts",
		User:     principal,
		Articles: articles,
	})
}

// handleBlogDetails handles GET /blog-details/{id}. Unknown, malformed and
// foreign ids all send the user back to the index page.
func (s *Server) handleBlogDetails(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())
	principal := auth.PrincipalFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		logger.WithField("id", r.PathValue("id")).Warn("Malformed article id")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	post, err := s.articles.GetArticle(r.Context(), principal, id)
	if err != nil {
		if errors.IsNotFound(err) || errors.IsForbidden(err) {
			logger.WithFields(logrus.Fields{
				"article_id": id,
				"kind":       errors.KindOf(err),
			}).Warn("Article not viewable")
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		logger.WithError(err).Error("Failed to load article")
		s.renderError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, pageBlogDetails, pageData{
		Title:   post.SourceTitle,
		User:    principal,
		Article: post,
	})
}
