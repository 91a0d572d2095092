package service

import (
	"testing"

	"carmarket/models"
	"carmarket/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCarCreate(t *testing.T) {
	f := newFixture(t)
	owner := f.userID(t, "t@test.com")

	car := newCar("toyota", "corolla", "white", 2015, 2)
	car.Owner = primitive.NewObjectID()
	created, err := f.cars.Create(f.ctx, car, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, created.Owner.Hex(), "owner always comes from the caller")

	invalid := newCar("", "corolla", "white", 2015, 2)
	_, err = f.cars.Create(f.ctx, invalid, owner)
	requireKind(t, err, models.KindInvalidInput)

	dup := newCar("toyota", "corolla", "white", 2015, 2)
	dup.ID = created.ID
	_, err = f.cars.Create(f.ctx, dup, owner)
	requireKind(t, err, models.KindConflict)
}

func TestCarUpdate(t *testing.T) {
	f := newFixture(t)
	owner := f.userID(t, "t@test.com")
	other := f.userID(t, "o@test.com")
	car := f.car(t, owner)

	change := newCar("toyota", "yaris", "blue", 2018, 1)

	_, err := f.cars.Update(f.ctx, car.ID.Hex(), change, other)
	requireKind(t, err, models.KindUnauthorized)

	_, err = f.cars.Update(f.ctx, primitive.NewObjectID().Hex(), change, owner)
	requireKind(t, err, models.KindNotFound)

	updated, err := f.cars.Update(f.ctx, car.ID.Hex(), change, owner)
	require.NoError(t, err)
	assert.Equal(t, "yaris", updated.Model)
	assert.Equal(t, car.ID, updated.ID)
	assert.Equal(t, owner, updated.Owner.Hex())
}

func TestCarDelete_CascadesToPosts(t *testing.T) {
	f := newFixture(t)
	owner := f.userID(t, "t@test.com")
	other := f.userID(t, "o@test.com")
	car := f.car(t, owner)

	post, err := f.posts.CreatePost(f.ctx, CreatePostInput{Car: car.ID.Hex()}, owner)
	require.NoError(t, err)
	updated, err := f.posts.AddComment(f.ctx, post.ID.Hex(), "hey", other)
	require.NoError(t, err)
	unrelated := f.post(t, owner)

	_, err = f.cars.Delete(f.ctx, car.ID.Hex(), other)
	requireKind(t, err, models.KindUnauthorized)

	deleted, err := f.cars.Delete(f.ctx, car.ID.Hex(), owner)
	require.NoError(t, err)
	assert.Equal(t, car.ID, deleted.ID)

	_, err = f.cars.Get(f.ctx, car.ID.Hex())
	requireKind(t, err, models.KindNotFound)
	_, err = f.posts.GetPost(f.ctx, post.ID.Hex())
	requireKind(t, err, models.KindNotFound)
	_, err = f.store.Comments().GetByID(f.ctx, updated.Comments[0])
	requireKind(t, err, models.KindNotFound)

	_, err = f.posts.GetPost(f.ctx, unrelated.ID.Hex())
	assert.NoError(t, err)
}

func TestCarList_Filter(t *testing.T) {
	f := newFixture(t)
	owner := f.userID(t, "t@test.com")
	for _, c := range []*models.Car{
		newCar("toyota", "corolla", "white", 2015, 2),
		newCar("mazda", "3", "red", 2012, 1),
	} {
		_, err := f.cars.Create(f.ctx, c, owner)
		require.NoError(t, err)
	}

	all, err := f.cars.List(f.ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := f.cars.List(f.ctx, search.Filter{{Field: "color", Op: search.OpEq, Value: "red"}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "mazda", filtered[0].Make)
}

func TestColorsAndCities_Cached(t *testing.T) {
	f := newFixture(t)
	owner := f.userID(t, "t@test.com")

	white := newCar("toyota", "corolla", "white", 2015, 2)
	_, err := f.cars.Create(f.ctx, white, owner)
	require.NoError(t, err)

	colors, err := f.cars.Colors(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"white"}, colors)

	// Bypass the service so the cache is not invalidated.
	sneaky := newCar("kia", "rio", "black", 2019, 1)
	sneaky.Owner = white.Owner
	require.NoError(t, f.store.Cars().Create(f.ctx, sneaky))
	colors, err = f.cars.Colors(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"white"}, colors)

	red := newCar("mazda", "3", "red", 2012, 1)
	red.City = "Haifa"
	_, err = f.cars.Create(f.ctx, red, owner)
	require.NoError(t, err)

	colors, err = f.cars.Colors(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"black", "red", "white"}, colors)

	cities, err := f.cars.Cities(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Haifa", "Tel Aviv"}, cities)
}
