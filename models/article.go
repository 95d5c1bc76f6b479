package models

import (
	"time"
)

// Article is a generated blog article. It is created once by the article
// service and never updated.
type Article struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	SourceTitle string    `json:"source_title"`
	SourceLink  string    `json:"source_link"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Article) OwnedBy(u *User) bool {
	return u != nil && a.OwnerID == u.ID
}

// GenerateRequest is the body accepted by POST /generate-blog.
type GenerateRequest struct {
	Link string `json:"link"`
}

// GenerateResponse is the success body of POST /generate-blog.
type GenerateResponse struct {
	Content string `json:"content"`
}
