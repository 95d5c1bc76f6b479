package repository

import (
	"context"

	"github.com/nijaru/yt-blog/models"
)

// ArticleRepository persists generated articles. It performs no
// authorization; callers filter by owner.
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) (int64, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Article, error)
	Get(ctx context.Context, id int64) (*models.Article, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
}
