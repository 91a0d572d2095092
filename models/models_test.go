package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAppError_Status(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NewInvalidInputError("x"), http.StatusBadRequest},
		{NewInvalidRelationshipError("x"), http.StatusBadRequest},
		{NewUnauthorizedError("x"), http.StatusUnauthorized},
		{NewTokenExpiredError(), http.StatusUnauthorized},
		{NewNotFoundError("Post", "1"), http.StatusNotFound},
		{NewConflictError("x"), http.StatusConflict},
		{NewRateLimitedError(), http.StatusTooManyRequests},
		{NewInternalError(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Status(), tc.err.Kind)
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("loading post: %w", NewNotFoundError("Post", "abc"))
	appErr := AsAppError(wrapped)
	assert.Equal(t, KindNotFound, appErr.Kind)
	assert.True(t, IsKind(wrapped, KindNotFound))

	plain := AsAppError(errors.New("socket closed"))
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Equal(t, "socket closed", plain.Message)
}

func TestCar_Validate(t *testing.T) {
	car := Car{Make: "toyota", Model: "camry", Year: 2010, Price: 40000, Hand: 2, Color: "black", Mileage: 100000, City: "Holon"}
	assert.NoError(t, car.Validate())

	missing := car
	missing.City = ""
	assert.True(t, IsKind(missing.Validate(), KindInvalidInput))

	negative := car
	negative.Mileage = -1
	assert.Error(t, negative.Validate())
}

func TestMembershipHelpers(t *testing.T) {
	user := primitive.NewObjectID()
	reply := primitive.NewObjectID()
	c := Comment{Publisher: user, Replies: []primitive.ObjectID{reply}}
	assert.True(t, c.HasReply(reply))
	assert.False(t, c.HasReply(primitive.NewObjectID()))
	assert.True(t, c.IsPublishedBy(user.Hex()))
	assert.False(t, c.IsPublishedBy(primitive.NewObjectID().Hex()))

	p := Post{Publisher: user, Comments: []primitive.ObjectID{reply}}
	assert.True(t, p.HasComment(reply))
	assert.True(t, p.IsPublishedBy(user.Hex()))
}
