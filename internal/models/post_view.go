package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostView records one viewer (user or anonymous ip) of a post. Stored in MongoDB.
type PostView struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PostID    uint               `json:"post_id" bson:"post_id"`
	UserID    uint               `json:"user_id,omitempty" bson:"user_id"` // 0 for anonymous viewers
	IPAddress string             `json:"ip_address" bson:"ip_address"`
	ViewedAt  time.Time          `json:"viewed_at" bson:"viewed_at"`
}
