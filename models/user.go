package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password" json:"-"`
	PhoneNumber string             `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	ImgURL      string             `bson:"imgUrl,omitempty" json:"imgUrl,omitempty"`
	GoogleID    string             `bson:"googleId,omitempty" json:"-"`

	// Currently valid refresh tokens; rotated on every refresh.
	RefreshTokens []string `bson:"refreshTokens" json:"-"`
	LikedPosts    []string `bson:"likedPosts" json:"likedPosts"`
}

// ProfileUpdate is the full required field set for PUT /auth/:id.
type ProfileUpdate struct {
	Name         string
	Email        string
	PasswordHash string
	PhoneNumber  string
	ImgURL       string
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
