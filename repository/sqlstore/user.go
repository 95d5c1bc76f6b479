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

type UserRepository struct {
	conn    *sql.DB
	dialect db.Dialect
}

func NewUserRepository(conn *sql.DB, dialect db.Dialect) *UserRepository {
	return &UserRepository{conn: conn, dialect: dialect}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (int64, error) {
	const op = "UserRepository.Create"

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	var id int64
	err := r.conn.QueryRowContext(ctx, r.dialect.Rebind(createUserQuery),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errors.Conflict(op, err, "Username already taken")
		}
		return 0, errors.Internal(op, err, "Failed to save user")
	}

	user.ID = id
	return id, nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	const op = "UserRepository.Get"
	return r.getOne(ctx, op, getUserQuery, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "UserRepository.GetByUsername"
	return r.getOne(ctx, op, getUserByUsernameQuery, username)
}

func (r *UserRepository) getOne(ctx context.Context, op, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.conn.QueryRowContext(ctx, r.dialect.Rebind(query), arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound(op, nil, "User not found")
	}
	if err != nil {
		return nil, errors.Internal(op, err, "Failed to query user")
	}

	return user, nil
}
