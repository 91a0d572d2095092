package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Car struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Make      string             `bson:"make" json:"make"`
	Model     string             `bson:"model" json:"model"`
	Year      int                `bson:"year" json:"year"`
	Price     float64            `bson:"price" json:"price"`
	Hand      int                `bson:"hand" json:"hand"`
	Color     string             `bson:"color" json:"color"`
	Mileage   int                `bson:"mileage" json:"mileage"`
	City      string             `bson:"city" json:"city"`
	Owner     primitive.ObjectID `bson:"owner" json:"owner"`
	ImageURLs []string           `bson:"imageUrls,omitempty" json:"imageUrls,omitempty"`
}

// Validate checks the required scalar fields.
func (c *Car) Validate() error {
	switch {
	case c.Make == "":
		return NewInvalidInputError("make is required")
	case c.Model == "":
		return NewInvalidInputError("model is required")
	case c.Year <= 0:
		return NewInvalidInputError("year is required")
	case c.Price <= 0:
		return NewInvalidInputError("price is required")
	case c.Hand <= 0:
		return NewInvalidInputError("hand is required")
	case c.Color == "":
		return NewInvalidInputError("color is required")
	case c.Mileage < 0:
		return NewInvalidInputError("mileage cannot be negative")
	case c.City == "":
		return NewInvalidInputError("city is required")
	}
	return nil
}

func (c *Car) IsOwnedBy(userID string) bool {
	return c.Owner.Hex() == userID
}
