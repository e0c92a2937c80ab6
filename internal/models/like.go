package models

import "time"

// Like is the membership of a user in a post's like set.
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_like_user_post,priority:1"`
	User      *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	PostID    uint      `json:"post_id" gorm:"not null;index;uniqueIndex:idx_like_user_post,priority:2"`
	Post      *Post     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeState is what a like/unlike/toggle reports back.
type LikeState struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}
