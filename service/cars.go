package service

import (
	"context"
	"time"

	"carmarket/logger"
	"carmarket/models"
	"carmarket/repository"
	"carmarket/search"

	"github.com/patrickmn/go-cache"
)

const (
	colorsCacheKey = "car:colors"
	citiesCacheKey = "car:cities"
)

type CarService struct {
	cars     repository.CarRepository
	posts    *PostService
	distinct *cache.Cache
}

func NewCarService(cars repository.CarRepository, posts *PostService) *CarService {
	return &CarService{
		cars:     cars,
		posts:    posts,
		distinct: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Create stores car owned by ownerID. A client supplied _id is kept.
func (s *CarService) Create(ctx context.Context, car *models.Car, ownerID string) (*models.Car, error) {
	owner, err := parseID("user", ownerID)
	if err != nil {
		return nil, err
	}
	car.Owner = owner
	if err := car.Validate(); err != nil {
		return nil, err
	}
	if err := s.cars.Create(ctx, car); err != nil {
		return nil, err
	}
	s.invalidate()
	return car, nil
}

func (s *CarService) Get(ctx context.Context, id string) (*models.Car, error) {
	carID, err := parseID("car", id)
	if err != nil {
		return nil, err
	}
	return s.cars.GetByID(ctx, carID)
}

func (s *CarService) List(ctx context.Context, filter search.Filter) ([]models.Car, error) {
	return s.cars.Find(ctx, filter)
}

// Update replaces the listing fields. The owner never changes.
func (s *CarService) Update(ctx context.Context, id string, car *models.Car, callerID string) (*models.Car, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsOwnedBy(callerID) {
		return nil, models.NewUnauthorizedError("Only the owner can update this car")
	}

	car.ID = existing.ID
	car.Owner = existing.Owner
	if err := car.Validate(); err != nil {
		return nil, err
	}
	updated, err := s.cars.Update(ctx, car)
	if err != nil {
		return nil, err
	}
	s.invalidate()
	return updated, nil
}

// Delete removes the car and every post listing it.
func (s *CarService) Delete(ctx context.Context, id, callerID string) (*models.Car, error) {
	car, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !car.IsOwnedBy(callerID) {
		return nil, models.NewUnauthorizedError("Only the owner can delete this car")
	}

	posts, err := s.posts.DeletePostsOfCar(ctx, car.ID)
	if err != nil {
		return nil, err
	}
	if err := s.cars.Delete(ctx, car.ID); err != nil {
		return nil, err
	}
	s.invalidate()

	logger.Logger(ctx).WithField("car_id", car.ID.Hex()).WithField("posts", posts).Info("car deleted")
	return car, nil
}

func (s *CarService) Colors(ctx context.Context) ([]string, error) {
	return s.cachedDistinct(ctx, colorsCacheKey, "color")
}

func (s *CarService) Cities(ctx context.Context) ([]string, error) {
	return s.cachedDistinct(ctx, citiesCacheKey, "city")
}

func (s *CarService) cachedDistinct(ctx context.Context, key, field string) ([]string, error) {
	if v, ok := s.distinct.Get(key); ok {
		return v.([]string), nil
	}
	values, err := s.cars.Distinct(ctx, field)
	if err != nil {
		return nil, err
	}
	s.distinct.SetDefault(key, values)
	return values, nil
}

func (s *CarService) invalidate() {
	s.distinct.Delete(colorsCacheKey)
	s.distinct.Delete(citiesCacheKey)
}
