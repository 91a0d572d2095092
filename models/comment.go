package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Comment is used for both top-level comments and replies; a reply is a Comment
// listed in its parent's Replies and never has replies of its own.
type Comment struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Publisher primitive.ObjectID   `bson:"publisher" json:"publisher"`
	Text      string               `bson:"text" json:"text"`
	Replies   []primitive.ObjectID `bson:"replies" json:"replies"`
}

// HasReply reports whether id is listed in c.Replies.
func (c *Comment) HasReply(id primitive.ObjectID) bool {
	for _, r := range c.Replies {
		if r == id {
			return true
		}
	}
	return false
}

// IsPublishedBy compares against the caller id taken from the access token.
func (c *Comment) IsPublishedBy(userID string) bool {
	return c.Publisher.Hex() == userID
}

type PopulatedComment struct {
	ID        primitive.ObjectID `json:"_id"`
	Publisher *User              `json:"publisher"`
	Text      string             `json:"text"`
	Replies   []PopulatedComment `json:"replies"`
}
