package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email       string    `json:"email" gorm:"size:254;uniqueIndex;not null"`
	Password    string    `json:"-"` // bcrypt hash
	Bio         string    `json:"bio" gorm:"size:500"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	FirebaseUID *string   `json:"-" gorm:"uniqueIndex"`
	CreatedAt   time.Time `json:"date_joined"`
	UpdatedAt   time.Time `json:"-"`
}

// UserCompact is the author/actor shape embedded in other payloads.
type UserCompact struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// Profile is a user together with follow graph cardinalities as seen by a viewer.
type Profile struct {
	User
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	IsFollowing    bool  `json:"is_following"`
}

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=150,username"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Bio             string `json:"bio" validate:"max=500"`
}

type LoginRequest struct {
	// Login accepts either the username or the email address.
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type UpdateProfileRequest struct {
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Bio   *string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
