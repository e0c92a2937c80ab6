package models

import "time"

// Comment belongs to a post and an author; removing either removes it.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    uint      `json:"post_id" gorm:"not null;index"`
	Post      *Post     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	AuthorID  uint      `json:"author_id" gorm:"not null;index"`
	Author    *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	CommentMinLength = 3
	CommentMaxLength = 1000
)

type CreateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}
