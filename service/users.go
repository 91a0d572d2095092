package service

import (
	"context"

	"carmarket/models"
	"carmarket/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserService struct {
	users repository.UserRepository
	posts repository.PostRepository
}

func NewUserService(users repository.UserRepository, posts repository.PostRepository) *UserService {
	return &UserService{users: users, posts: posts}
}

// LikedPosts resolves the user's liked post ids, in liked order. Posts that
// no longer exist are left out.
func (s *UserService) LikedPosts(ctx context.Context, userID string) ([]models.Post, error) {
	id, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(user.LikedPosts))
	for _, hex := range user.LikedPosts {
		if oid, err := primitive.ObjectIDFromHex(hex); err == nil {
			ids = append(ids, oid)
		}
	}
	found, err := s.posts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	out := make([]models.Post, 0, len(found))
	for _, oid := range ids {
		if p, ok := byID[oid]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *UserService) LikePost(ctx context.Context, userID, callerID, postID string) (*models.User, error) {
	if userID != callerID {
		return nil, models.NewUnauthorizedError("You can only change your own liked posts")
	}
	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("post", postID)
	if err != nil {
		return nil, err
	}
	if _, err := s.posts.GetByID(ctx, pid); err != nil {
		return nil, err
	}
	if err := s.users.AddLikedPost(ctx, uid, pid.Hex()); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, uid)
}

func (s *UserService) UnlikePost(ctx context.Context, userID, callerID, postID string) (*models.User, error) {
	if userID != callerID {
		return nil, models.NewUnauthorizedError("You can only change your own liked posts")
	}
	uid, err := parseID("user", userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.RemoveLikedPost(ctx, uid, postID); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, uid)
}
