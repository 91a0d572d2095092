package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"carmarket/auth"
	"carmarket/models"
	"carmarket/testutil"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessSecret  = "service-access-secret-0123456789abcdef"
	testRefreshSecret = "service-refresh-secret-0123456789abcdef"
)

type event struct {
	userID    string
	eventType string
	payload   interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event
}

func (n *recordingNotifier) NotifyUser(userID, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event{userID, eventType, payload})
}

func (n *recordingNotifier) all() []event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]event(nil), n.events...)
}

type stubGoogle struct {
	identity *auth.GoogleIdentity
	err      error
}

func (g *stubGoogle) Verify(context.Context, string) (*auth.GoogleIdentity, error) {
	return g.identity, g.err
}

type fixture struct {
	ctx      context.Context
	store    *testutil.Store
	tokens   *auth.TokenManager
	google   *stubGoogle
	notifier *recordingNotifier
	auth     *AuthService
	posts    *PostService
	cars     *CarService
	users    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := testutil.NewStore()
	tokens := auth.NewTokenManager(testAccessSecret, testRefreshSecret, time.Hour, 24*time.Hour)
	google := &stubGoogle{}
	notifier := &recordingNotifier{}

	authSvc := NewAuthService(store.Users(), tokens, google)
	authSvc.hashCost = bcrypt.MinCost
	posts := NewPostService(store.Posts(), store.Comments(), store.Cars(), store.Users(), notifier)

	return &fixture{
		ctx:      context.Background(),
		store:    store,
		tokens:   tokens,
		google:   google,
		notifier: notifier,
		auth:     authSvc,
		posts:    posts,
		cars:     NewCarService(store.Cars(), posts),
		users:    NewUserService(store.Users(), store.Posts()),
	}
}

func (f *fixture) register(t *testing.T, name, email string) *AuthResult {
	t.Helper()
	res, err := f.auth.Register(f.ctx, ProfileInput{Name: name, Email: email, Password: "x"})
	require.NoError(t, err)
	return res
}

func (f *fixture) userID(t *testing.T, email string) string {
	t.Helper()
	return f.register(t, "user", email).User.ID.Hex()
}

func newCar(brand, model, color string, year, hand int) *models.Car {
	return &models.Car{
		Make:    brand,
		Model:   model,
		Year:    year,
		Price:   10000,
		Hand:    hand,
		Color:   color,
		Mileage: 50000,
		City:    "Tel Aviv",
	}
}

func (f *fixture) car(t *testing.T, ownerID string) *models.Car {
	t.Helper()
	car, err := f.cars.Create(f.ctx, newCar("toyota", "corolla", "white", 2015, 2), ownerID)
	require.NoError(t, err)
	return car
}

func (f *fixture) post(t *testing.T, publisherID string) *models.Post {
	t.Helper()
	car := f.car(t, publisherID)
	post, err := f.posts.CreatePost(f.ctx, CreatePostInput{Car: car.ID.Hex()}, publisherID)
	require.NoError(t, err)
	return post
}

func requireKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, models.IsKind(err, kind), "want %s, got %v", kind, err)
}
