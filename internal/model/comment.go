package model

import "time"

// Comment belongs to one article and one author. The author reference is
// not enforced on delete: a deleted user's comments keep their username.
type Comment struct {
	ID             int64     `json:"id"`
	ArticleID      int64     `json:"-"`
	AuthorUsername string    `json:"-"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Author         Profile   `json:"author"`
}
