package service

import (
	"context"

	"carmarket/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// populator joins referenced documents for one response, caching users so each
// publisher is fetched once. Missing references render as null.
type populator struct {
	s     *PostService
	users map[primitive.ObjectID]*models.User
}

// GetPopulated returns the post with its car, publisher and full comment tree joined in.
func (s *PostService) GetPopulated(ctx context.Context, id string) (*models.PopulatedPost, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	p := &populator{s: s, users: make(map[primitive.ObjectID]*models.User)}

	car, err := s.cars.GetByID(ctx, post.Car)
	if err != nil && !models.IsKind(err, models.KindNotFound) {
		return nil, err
	}
	publisher, err := p.user(ctx, post.Publisher)
	if err != nil {
		return nil, err
	}
	comments, err := p.comments(ctx, post.Comments, true)
	if err != nil {
		return nil, err
	}

	return &models.PopulatedPost{
		ID:        post.ID,
		Car:       car,
		Publisher: publisher,
		Comments:  comments,
	}, nil
}

func (p *populator) user(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := p.users[id]; ok {
		return u, nil
	}
	u, err := p.s.users.GetByID(ctx, id)
	if err != nil {
		if !models.IsKind(err, models.KindNotFound) {
			return nil, err
		}
		u = nil
	}
	p.users[id] = u
	return u, nil
}

// comments keeps the order of ids and skips ids with no document.
func (p *populator) comments(ctx context.Context, ids []primitive.ObjectID, withReplies bool) ([]models.PopulatedComment, error) {
	found, err := p.s.comments.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Comment, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	out := make([]models.PopulatedComment, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			continue
		}
		publisher, err := p.user(ctx, c.Publisher)
		if err != nil {
			return nil, err
		}
		pc := models.PopulatedComment{ID: c.ID, Publisher: publisher, Text: c.Text, Replies: []models.PopulatedComment{}}
		if withReplies {
			if pc.Replies, err = p.comments(ctx, c.Replies, false); err != nil {
				return nil, err
			}
		}
		out = append(out, pc)
	}
	return out, nil
}
