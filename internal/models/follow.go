package models

import "time"

// Follow is a directed edge: Follower receives Following's posts in their feed.
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"not null;uniqueIndex:idx_follower_following,priority:1;check:chk_no_self_follow,follower_id <> following_id"`
	Follower    *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	FollowingID uint      `json:"following_id" gorm:"not null;index;uniqueIndex:idx_follower_following,priority:2"`
	Following   *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"created_at"`
}
