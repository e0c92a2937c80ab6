package models

import (
	"fmt"
	"time"
)

// Verb is the closed vocabulary of notification events.
type Verb string

const (
	VerbFollowed  Verb = "followed"
	VerbLiked     Verb = "liked"
	VerbCommented Verb = "commented"
)

func (v Verb) Valid() bool {
	switch v {
	case VerbFollowed, VerbLiked, VerbCommented:
		return true
	}
	return false
}

// TargetKind tags which table Target.ID points into.
type TargetKind string

const (
	TargetPost    TargetKind = "post"
	TargetComment TargetKind = "comment"
	TargetUser    TargetKind = "user"
)

func (k TargetKind) Valid() bool {
	switch k {
	case TargetPost, TargetComment, TargetUser:
		return true
	}
	return false
}

// Target is a tagged reference to a post, comment or user. It carries no
// foreign key; a target deleted later resolves to nothing at render time.
type Target struct {
	Kind TargetKind `json:"kind" gorm:"size:20;not null"`
	ID   uint       `json:"id" gorm:"not null"`
}

func PostTarget(id uint) Target    { return Target{Kind: TargetPost, ID: id} }
func CommentTarget(id uint) Target { return Target{Kind: TargetComment, ID: id} }
func UserTarget(id uint) Target    { return Target{Kind: TargetUser, ID: id} }

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// Notification is an append-only event addressed to Recipient. Only IsRead
// ever changes after insert.
type Notification struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RecipientID uint      `json:"recipient_id" gorm:"not null;index:idx_notification_recipient_created,priority:1"`
	Recipient   *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	ActorID     uint      `json:"actor_id" gorm:"not null;index"`
	Actor       *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	Verb        Verb      `json:"verb" gorm:"size:20;not null"`
	Target      Target    `json:"target" gorm:"embedded;embeddedPrefix:target_"`
	IsRead      bool      `json:"is_read" gorm:"not null;default:false;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index:idx_notification_recipient_created,priority:2"`
}
