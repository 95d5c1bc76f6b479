package sqlstore

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

const (
	createArticleQuery = `
        INSERT INTO articles (owner_id, source_title, source_link, content, created_at)
        VALUES (?, ?, ?, ?, ?)
        RETURNING id
    `

	getArticleQuery = `
        SELECT id, owner_id, source_title, source_link, content, created_at
        FROM articles WHERE id = ?
    `

	listArticlesByOwnerQuery = `
        SELECT id, owner_id, source_title, source_link, content, created_at
        FROM articles WHERE owner_id = ?
        ORDER BY created_at DESC, id DESC
    `

	createUserQuery = `
        INSERT INTO users (username, email, password_hash, created_at)
        VALUES (?, ?, ?, ?)
        RETURNING id
    `

	getUserQuery = `
        SELECT id, username, email, password_hash, created_at
        FROM users WHERE id = ?
    `

	getUserByUsernameQuery = `
        SELECT id, username, email, password_hash, created_at
        FROM users WHERE username = ?
    `
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}

type scanner interface {
	Scan(dest ...any) error
}
