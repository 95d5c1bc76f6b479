package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/nijaru/yt-blog/db"
	"github.com/nijaru/yt-blog/errors"
	"github.com/nijaru/yt-blog/models"
)

type ArticleRepository struct {
	conn    *sql.DB
	dialect db.Dialect
}

func NewArticleRepository(conn *sql.DB, dialect db.Dialect) *ArticleRepository {
	return &ArticleRepository{conn: conn, dialect: dialect}
}

// Create inserts the article and fills in its ID and CreatedAt.
func (r *ArticleRepository) Create(ctx context.Context, article *models.Article) (int64, error) {
	const op = "ArticleRepository.Create"

	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := r.conn.QueryRowContext(ctx, r.dialect.Rebind(createArticleQuery),
		article.OwnerID,
		article.SourceTitle,
		article.SourceLink,
		article.Content,
		article.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, errors.Internal(op, err, "Failed to save article")
	}

	article.ID = id
	return id, nil
}

func (r *ArticleRepository) Get(ctx context.Context, id int64) (*models.Article, error) {
	const op = "ArticleRepository.Get"

	row := r.conn.QueryRowContext(ctx, r.dialect.Rebind(getArticleQuery), id)
	article, err := scanArticle(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(op, nil, "Article not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query article")
	}

	return article, nil
}

// ListByOwner returns the owner's articles, newest first.
func (r *ArticleRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Article, error) {
	const op = "ArticleRepository.ListByOwner"

	rows, err := r.conn.QueryContext(ctx, r.dialect.Rebind(listArticlesByOwnerQuery), ownerID)
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query articles")
	}
	defer rows.Close()

	articles := make([]*models.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, errors.Internal(op, err, "Failed to scan article")
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Internal(op, err, "Failed to iterate articles")
	}

	return articles, nil
}

func scanArticle(s scanner) (*models.Article, error) {
	article := &models.Article{}
	err := s.Scan(
		&article.ID,
		&article.OwnerID,
		&article.SourceTitle,
		&article.SourceLink,
		&article.Content,
		&article.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return article, nil
}
