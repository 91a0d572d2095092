package repository

import (
	"context"
	"fmt"
	"sort"

	"carmarket/database"
	"carmarket/models"
	"carmarket/search"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoCarRepository struct {
	coll *mongo.Collection
}

func NewCarRepository(db *mongo.Database) *MongoCarRepository {
	return &MongoCarRepository{coll: db.Collection(database.CarsCollection)}
}

func (r *MongoCarRepository) Create(ctx context.Context, car *models.Car) error {
	if car.ID.IsZero() {
		car.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, car)
	return translateError(err, "Car", car.ID.Hex())
}

func (r *MongoCarRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Car, error) {
	var car models.Car
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&car); err != nil {
		return nil, translateError(err, "Car", id.Hex())
	}
	return &car, nil
}

func (r *MongoCarRepository) Find(ctx context.Context, filter search.Filter) ([]models.Car, error) {
	cursor, err := r.coll.Find(ctx, filter.BSON())
	if err != nil {
		return nil, translateError(err, "Car", "")
	}
	defer cursor.Close(ctx)

	cars := make([]models.Car, 0)
	if err := cursor.All(ctx, &cars); err != nil {
		return nil, fmt.Errorf("decode cars: %w", err)
	}
	return cars, nil
}

func (r *MongoCarRepository) FindIDs(ctx context.Context, filter search.Filter) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.coll.Find(ctx, filter.BSON(), opts)
	if err != nil {
		return nil, translateError(err, "Car", "")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode car ids: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (r *MongoCarRepository) Update(ctx context.Context, car *models.Car) (*models.Car, error) {
	set := bson.M{
		"make":      car.Make,
		"model":     car.Model,
		"year":      car.Year,
		"price":     car.Price,
		"hand":      car.Hand,
		"color":     car.Color,
		"mileage":   car.Mileage,
		"city":      car.City,
		"imageUrls": car.ImageURLs,
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Car
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": car.ID}, bson.M{"$set": set}, opts).Decode(&updated)
	if err != nil {
		return nil, translateError(err, "Car", car.ID.Hex())
	}
	return &updated, nil
}

func (r *MongoCarRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translateError(err, "Car", id.Hex())
	}
	if res.DeletedCount == 0 {
		return models.NewNotFoundError("Car", id.Hex())
	}
	return nil
}

func (r *MongoCarRepository) Distinct(ctx context.Context, field string) ([]string, error) {
	raw, err := r.coll.Distinct(ctx, field, bson.M{})
	if err != nil {
		return nil, translateError(err, "Car", field)
	}

	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			values = append(values, s)
		}
	}
	sort.Strings(values)
	return values, nil
}
