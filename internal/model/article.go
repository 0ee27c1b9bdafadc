package model

import "time"

// Article is a blog post.
//
// Favorited and FavoritesCount are never stored: the store computes both
// from the favorite edges every time an article is read, Favorited relative
// to the viewing user.
type Article struct {
	ID             int64     `json:"-"`
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Body           string    `json:"body"`
	TagList        []string  `json:"tagList"`
	AuthorUsername string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Author is filled by the service layer for the viewing user.
	Author Profile `json:"author"`

	Favorited      bool `json:"favorited"`
	FavoritesCount int  `json:"favoritesCount"`
}
