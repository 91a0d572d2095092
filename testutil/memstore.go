// Package testutil provides in-memory repositories and fixtures for service and handler tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"carmarket/models"
	"carmarket/repository"
	"carmarket/search"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind one lock, like a single database.
type Store struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]*models.User
	cars     map[primitive.ObjectID]*models.Car
	posts    map[primitive.ObjectID]*models.Post
	comments map[primitive.ObjectID]*models.Comment
}

func NewStore() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]*models.User),
		cars:     make(map[primitive.ObjectID]*models.Car),
		posts:    make(map[primitive.ObjectID]*models.Post),
		comments: make(map[primitive.ObjectID]*models.Comment),
	}
}

func (s *Store) Users() *UserRepoStub       { return &UserRepoStub{s} }
func (s *Store) Cars() *CarRepoStub         { return &CarRepoStub{s} }
func (s *Store) Posts() *PostRepoStub       { return &PostRepoStub{s} }
func (s *Store) Comments() *CommentRepoStub { return &CommentRepoStub{s} }

// CommentCount reports how many comment and reply documents exist.
func (s *Store) CommentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.comments)
}

var (
	_ repository.UserRepository    = (*UserRepoStub)(nil)
	_ repository.CarRepository     = (*CarRepoStub)(nil)
	_ repository.PostRepository    = (*PostRepoStub)(nil)
	_ repository.CommentRepository = (*CommentRepoStub)(nil)
)

func copyIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	return append([]primitive.ObjectID{}, ids...)
}

func copyStrings(s []string) []string {
	return append([]string{}, s...)
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// UserRepoStub is an in-memory UserRepository.
type UserRepoStub struct{ s *Store }

func cloneUser(u *models.User) *models.User {
	c := *u
	c.RefreshTokens = copyStrings(u.RefreshTokens)
	c.LikedPosts = copyStrings(u.LikedPosts)
	return &c
}

func (r *UserRepoStub) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.RefreshTokens == nil {
		user.RefreshTokens = []string{}
	}
	if user.LikedPosts == nil {
		user.LikedPosts = []string{}
	}
	if _, ok := r.s.users[user.ID]; ok {
		return models.NewConflictError("User already exists")
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return models.NewConflictError("User already exists")
		}
	}
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepoStub) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id.Hex())
	}
	return cloneUser(u), nil
}

func (r *UserRepoStub) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, models.NewNotFoundError("User", email)
}

func (r *UserRepoStub) UpdateProfile(_ context.Context, id primitive.ObjectID, update models.ProfileUpdate) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id.Hex())
	}
	for otherID, other := range r.s.users {
		if otherID != id && other.Email == update.Email {
			return nil, models.NewConflictError("User already exists")
		}
	}
	u.Name = update.Name
	u.Email = update.Email
	u.Password = update.PasswordHash
	u.PhoneNumber = update.PhoneNumber
	u.ImgURL = update.ImgURL
	return cloneUser(u), nil
}

func (r *UserRepoStub) withUser(id primitive.ObjectID, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return models.NewNotFoundError("User", id.Hex())
	}
	fn(u)
	return nil
}

func (r *UserRepoStub) AddRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	return r.withUser(id, func(u *models.User) {
		u.RefreshTokens = append(u.RefreshTokens, token)
	})
}

func (r *UserRepoStub) ReplaceRefreshToken(_ context.Context, id primitive.ObjectID, oldToken, newToken string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return false, nil
	}
	for i, t := range u.RefreshTokens {
		if t == oldToken {
			u.RefreshTokens[i] = newToken
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepoStub) RemoveRefreshToken(_ context.Context, id primitive.ObjectID, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return false, nil
	}
	kept := u.RefreshTokens[:0:0]
	found := false
	for _, t := range u.RefreshTokens {
		if t == token {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	u.RefreshTokens = kept
	return found, nil
}

func (r *UserRepoStub) ClearRefreshTokens(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u, ok := r.s.users[id]; ok {
		u.RefreshTokens = []string{}
	}
	return nil
}

func (r *UserRepoStub) AddLikedPost(_ context.Context, id primitive.ObjectID, postID string) error {
	return r.withUser(id, func(u *models.User) {
		for _, p := range u.LikedPosts {
			if p == postID {
				return
			}
		}
		u.LikedPosts = append(u.LikedPosts, postID)
	})
}

func (r *UserRepoStub) RemoveLikedPost(_ context.Context, id primitive.ObjectID, postID string) error {
	return r.withUser(id, func(u *models.User) {
		kept := u.LikedPosts[:0:0]
		for _, p := range u.LikedPosts {
			if p != postID {
				kept = append(kept, p)
			}
		}
		u.LikedPosts = kept
	})
}

// CarRepoStub is an in-memory CarRepository that evaluates search filters itself.
type CarRepoStub struct{ s *Store }

func cloneCar(c *models.Car) *models.Car {
	out := *c
	if c.ImageURLs != nil {
		out.ImageURLs = copyStrings(c.ImageURLs)
	}
	return &out
}

func (r *CarRepoStub) Create(_ context.Context, car *models.Car) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if car.ID.IsZero() {
		car.ID = primitive.NewObjectID()
	}
	if _, ok := r.s.cars[car.ID]; ok {
		return models.NewConflictError("Car already exists")
	}
	r.s.cars[car.ID] = cloneCar(car)
	return nil
}

func (r *CarRepoStub) GetByID(_ context.Context, id primitive.ObjectID) (*models.Car, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.cars[id]
	if !ok {
		return nil, models.NewNotFoundError("Car", id.Hex())
	}
	return cloneCar(c), nil
}

func (r *CarRepoStub) Find(_ context.Context, filter search.Filter) ([]models.Car, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Car, 0)
	for _, c := range r.s.cars {
		if Matches(c, filter) {
			out = append(out, *cloneCar(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (r *CarRepoStub) FindIDs(ctx context.Context, filter search.Filter) ([]primitive.ObjectID, error) {
	cars, err := r.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(cars))
	for _, c := range cars {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (r *CarRepoStub) Update(_ context.Context, car *models.Car) (*models.Car, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.cars[car.ID]
	if !ok {
		return nil, models.NewNotFoundError("Car", car.ID.Hex())
	}
	updated := cloneCar(car)
	updated.Owner = existing.Owner
	r.s.cars[car.ID] = updated
	return cloneCar(updated), nil
}

func (r *CarRepoStub) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.cars[id]; !ok {
		return models.NewNotFoundError("Car", id.Hex())
	}
	delete(r.s.cars, id)
	return nil
}

func (r *CarRepoStub) Distinct(_ context.Context, field string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := map[string]bool{}
	for _, c := range r.s.cars {
		v, ok := carField(c, field).(string)
		if ok && v != "" {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

func carField(c *models.Car, field string) interface{} {
	switch field {
	case "make":
		return c.Make
	case "model":
		return c.Model
	case "color":
		return c.Color
	case "city":
		return c.City
	case "year":
		return float64(c.Year)
	case "price":
		return c.Price
	case "hand":
		return float64(c.Hand)
	case "mileage":
		return float64(c.Mileage)
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func equal(stored, want interface{}) bool {
	if s, ok := stored.(string); ok {
		w, ok := want.(string)
		return ok && s == w
	}
	sf, ok1 := toFloat(stored)
	wf, ok2 := toFloat(want)
	return ok1 && ok2 && sf == wf
}

func compare(stored, bound interface{}) (int, bool) {
	if s, ok := stored.(string); ok {
		b, ok := bound.(string)
		if !ok {
			return 0, false
		}
		switch {
		case s < b:
			return -1, true
		case s > b:
			return 1, true
		}
		return 0, true
	}
	sf, ok1 := toFloat(stored)
	bf, ok2 := toFloat(bound)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch {
	case sf < bf:
		return -1, true
	case sf > bf:
		return 1, true
	}
	return 0, true
}

// Matches evaluates filter against a car the way the database query would.
func Matches(c *models.Car, filter search.Filter) bool {
	for _, p := range filter {
		stored := carField(c, p.Field)
		switch p.Op {
		case search.OpEq:
			if !equal(stored, p.Value) {
				return false
			}
		case search.OpIn:
			hit := false
			for _, v := range p.Values {
				if equal(stored, v) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		case search.OpRange:
			if p.Min != nil {
				if cmp, ok := compare(stored, p.Min); !ok || cmp < 0 {
					return false
				}
			}
			if p.Max != nil {
				if cmp, ok := compare(stored, p.Max); !ok || cmp > 0 {
					return false
				}
			}
		default:
			panic(fmt.Sprintf("unknown op %d", p.Op))
		}
	}
	return true
}

// PostRepoStub is an in-memory PostRepository.
type PostRepoStub struct{ s *Store }

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Comments = copyIDs(p.Comments)
	return &c
}

func (r *PostRepoStub) Create(_ context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.Comments == nil {
		post.Comments = []primitive.ObjectID{}
	}
	if _, ok := r.s.posts[post.ID]; ok {
		return models.NewConflictError("Post already exists")
	}
	r.s.posts[post.ID] = clonePost(post)
	return nil
}

func (r *PostRepoStub) GetByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id.Hex())
	}
	return clonePost(p), nil
}

func (r *PostRepoStub) filter(keep func(p *models.Post) bool) []models.Post {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Post, 0)
	for _, p := range r.s.posts {
		if keep(p) {
			out = append(out, *clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

func (r *PostRepoStub) FindAll(_ context.Context) ([]models.Post, error) {
	return r.filter(func(*models.Post) bool { return true }), nil
}

func (r *PostRepoStub) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Post, error) {
	set := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return r.filter(func(p *models.Post) bool { return set[p.ID] }), nil
}

func (r *PostRepoStub) FindByCars(_ context.Context, carIDs []primitive.ObjectID) ([]models.Post, error) {
	set := make(map[primitive.ObjectID]bool, len(carIDs))
	for _, id := range carIDs {
		set[id] = true
	}
	return r.filter(func(p *models.Post) bool { return set[p.Car] }), nil
}

func (r *PostRepoStub) update(id primitive.ObjectID, fn func(p *models.Post)) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id.Hex())
	}
	fn(p)
	return clonePost(p), nil
}

func (r *PostRepoStub) SetCar(_ context.Context, id, carID primitive.ObjectID) (*models.Post, error) {
	return r.update(id, func(p *models.Post) { p.Car = carID })
}

func (r *PostRepoStub) PushComment(_ context.Context, id, commentID primitive.ObjectID) (*models.Post, error) {
	return r.update(id, func(p *models.Post) { p.Comments = append(p.Comments, commentID) })
}

func (r *PostRepoStub) PullComment(_ context.Context, id, commentID primitive.ObjectID) (*models.Post, error) {
	return r.update(id, func(p *models.Post) { p.Comments = removeID(p.Comments, commentID) })
}

func (r *PostRepoStub) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[id]; !ok {
		return models.NewNotFoundError("Post", id.Hex())
	}
	delete(r.s.posts, id)
	return nil
}

// CommentRepoStub is an in-memory CommentRepository.
type CommentRepoStub struct{ s *Store }

func cloneComment(c *models.Comment) *models.Comment {
	out := *c
	out.Replies = copyIDs(c.Replies)
	return &out
}

func (r *CommentRepoStub) Create(_ context.Context, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	if comment.Replies == nil {
		comment.Replies = []primitive.ObjectID{}
	}
	if _, ok := r.s.comments[comment.ID]; ok {
		return models.NewConflictError("Comment already exists")
	}
	r.s.comments[comment.ID] = cloneComment(comment)
	return nil
}

func (r *CommentRepoStub) GetByID(_ context.Context, id primitive.ObjectID) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, models.NewNotFoundError("Comment", id.Hex())
	}
	return cloneComment(c), nil
}

func (r *CommentRepoStub) GetMany(_ context.Context, ids []primitive.ObjectID) ([]models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.s.comments[id]; ok {
			out = append(out, *cloneComment(c))
		}
	}
	return out, nil
}

func (r *CommentRepoStub) update(id primitive.ObjectID, fn func(c *models.Comment)) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, models.NewNotFoundError("Comment", id.Hex())
	}
	fn(c)
	return cloneComment(c), nil
}

func (r *CommentRepoStub) UpdateText(_ context.Context, id primitive.ObjectID, text string) (*models.Comment, error) {
	return r.update(id, func(c *models.Comment) { c.Text = text })
}

func (r *CommentRepoStub) PushReply(_ context.Context, id, replyID primitive.ObjectID) (*models.Comment, error) {
	return r.update(id, func(c *models.Comment) { c.Replies = append(c.Replies, replyID) })
}

func (r *CommentRepoStub) PullReply(_ context.Context, id, replyID primitive.ObjectID) (*models.Comment, error) {
	return r.update(id, func(c *models.Comment) { c.Replies = removeID(c.Replies, replyID) })
}

func (r *CommentRepoStub) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.comments[id]; !ok {
		return models.NewNotFoundError("Comment", id.Hex())
	}
	delete(r.s.comments, id)
	return nil
}

func (r *CommentRepoStub) DeleteMany(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := r.s.comments[id]; ok {
			delete(r.s.comments, id)
			n++
		}
	}
	return n, nil
}
