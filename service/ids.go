// Package service implements the marketplace's business rules on top of the repositories.
package service

import (
	"fmt"
	"strings"

	"carmarket/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func parseID(kind, hex string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, models.NewInvalidInputError(fmt.Sprintf("%s id is required", kind))
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, models.NewInvalidInputError(fmt.Sprintf("invalid %s id: %s", kind, hex))
	}
	return id, nil
}

// parseOptionalID accepts an empty string as "let the store assign one".
func parseOptionalID(kind, hex string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, nil
	}
	return parseID(kind, hex)
}

func requireText(text string) error {
	if strings.TrimSpace(text) == "" {
		return models.NewInvalidInputError("text is required")
	}
	return nil
}
