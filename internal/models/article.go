package models

import (
	"time"
)

// Article is the commentable content resolved by slug
type Article struct {
	ID            string     `json:"id" db:"id"`
	Slug          string     `json:"slug" db:"slug"`
	Title         string     `json:"title" db:"title"`
	Status        string     `json:"status" db:"status"`
	AliasTemplate string     `json:"alias_template" db:"alias_template"`
	PublishedAt   *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// ArticleStatusPublished is the only article status that accepts comments
const ArticleStatusPublished = "published"
