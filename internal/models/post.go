package models

import "time"

// Post is owned by its author and removed with them.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index:idx_post_author_created,priority:1"`
	Author    *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Title     string    `json:"title" gorm:"size:200;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Tags      []Tag     `json:"tags" gorm:"many2many:post_tags;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at" gorm:"index;index:idx_post_author_created,priority:2"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag is a normalized lowercase label shared by posts.
type Tag struct {
	ID   uint   `json:"-" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:100;uniqueIndex;not null"`
}

func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.Name), nil
}

func (t *Tag) UnmarshalText(b []byte) error {
	t.Name = string(b)
	return nil
}

// PostSummary is a post decorated with counters for one viewer.
type PostSummary struct {
	Post
	Author        UserCompact `json:"author"`
	LikesCount    int64       `json:"likes_count"`
	CommentsCount int64       `json:"comments_count"`
	ViewCount     int64       `json:"view_count"`
	IsLiked       bool        `json:"is_liked"`
}

type CreatePostRequest struct {
	Title   string   `json:"title" validate:"required,min=1,max=200"`
	Content string   `json:"content" validate:"required,min=1,max=10000"`
	Tags    []string `json:"tags" validate:"max=10,dive,min=1,max=100"`
}

type UpdatePostRequest struct {
	Title   *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content *string   `json:"content,omitempty" validate:"omitempty,min=1,max=10000"`
	Tags    *[]string `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=100"`
}
