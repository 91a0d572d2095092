package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Post struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Car       primitive.ObjectID   `bson:"car" json:"car"`
	Publisher primitive.ObjectID   `bson:"publisher" json:"publisher"`
	Comments  []primitive.ObjectID `bson:"comments" json:"comments"`
}

func (p *Post) HasComment(id primitive.ObjectID) bool {
	for _, c := range p.Comments {
		if c == id {
			return true
		}
	}
	return false
}

func (p *Post) IsPublishedBy(userID string) bool {
	return p.Publisher.Hex() == userID
}

// PopulatedPost is the eagerly joined response shape of GET /post/:postId/populated.
type PopulatedPost struct {
	ID        primitive.ObjectID `json:"_id"`
	Car       *Car               `json:"car"`
	Publisher *User              `json:"publisher"`
	Comments  []PopulatedComment `json:"comments"`
}
