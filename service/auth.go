package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carmarket/auth"
	"carmarket/logger"
	"carmarket/models"
	"carmarket/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// ProfileInput carries registration and profile-update fields.
type ProfileInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	ImgURL      string `json:"imgUrl"`
}

func (in ProfileInput) validate() error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return models.NewInvalidInputError("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

type AuthResult struct {
	User   *models.User  `json:"user"`
	Tokens models.Tokens `json:"tokens"`
}

type AuthService struct {
	users    repository.UserRepository
	tokens   *auth.TokenManager
	google   auth.GoogleVerifier
	hashCost int
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, google auth.GoogleVerifier) *AuthService {
	return &AuthService{users: users, tokens: tokens, google: google, hashCost: bcrypt.DefaultCost}
}

func (s *AuthService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}
	return string(hashed), nil
}

// Register creates a user and opens its first session.
func (s *AuthService) Register(ctx context.Context, in ProfileInput) (*AuthResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:        in.Name,
		Email:       strings.TrimSpace(in.Email),
		Password:    hashed,
		PhoneNumber: in.PhoneNumber,
		ImgURL:      in.ImgURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if models.IsKind(err, models.KindConflict) {
			return nil, models.NewConflictError("Email already in use")
		}
		return nil, err
	}

	logger.Logger(ctx).WithField("user_id", user.ID.Hex()).Info("user registered")
	return s.openSession(ctx, user)
}

// Login checks credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, models.NewInvalidInputError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if models.IsKind(err, models.KindNotFound) {
			return nil, models.NewUnauthorizedError("Invalid email or password")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}

	return s.openSession(ctx, user)
}

// GoogleSignIn verifies a Google ID token, creating the user on first sign-in.
// created reports whether a new account was made.
func (s *AuthService) GoogleSignIn(ctx context.Context, credential string) (result *AuthResult, created bool, err error) {
	if credential == "" {
		return nil, false, models.NewInvalidInputError("credential is required")
	}

	identity, err := s.google.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, auth.ErrGoogleNotConfigured) {
			return nil, false, models.NewInternalError(err)
		}
		logger.Logger(ctx).WithError(err).Warn("google credential rejected")
		return nil, false, models.NewUnauthorizedError("Invalid Google credential")
	}

	user, err := s.users.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
	case models.IsKind(err, models.KindNotFound):
		// Google accounts get an unguessable password so email login stays closed.
		hashed, herr := s.hash(uuid.NewString())
		if herr != nil {
			return nil, false, herr
		}
		user = &models.User{
			Name:     identity.Name,
			Email:    identity.Email,
			Password: hashed,
			ImgURL:   identity.Picture,
			GoogleID: identity.Subject,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, false, err
		}
		created = true
		logger.Logger(ctx).WithField("user_id", user.ID.Hex()).Info("user created from google sign-in")
	default:
		return nil, false, err
	}

	result, err = s.openSession(ctx, user)
	return result, created, err
}

func (s *AuthService) openSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	tokens, err := s.tokens.IssuePair(user.ID.Hex())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.users.AddRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, err
	}
	user.RefreshTokens = append(user.RefreshTokens, tokens.RefreshToken)
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// sessionOwner resolves the user a refresh token was issued to. A token with a
// good signature that has expired still names its user so the caller can revoke.
func (s *AuthService) sessionOwner(refreshToken string) (primitive.ObjectID, bool, error) {
	if refreshToken == "" {
		return primitive.NilObjectID, false, models.NewUnauthorizedError("Refresh token required")
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	expired := errors.Is(err, auth.ErrExpiredToken)
	if err != nil && !expired {
		return primitive.NilObjectID, false, models.NewUnauthorizedError("Invalid refresh token")
	}

	userID, perr := primitive.ObjectIDFromHex(claims.UserID)
	if perr != nil {
		return primitive.NilObjectID, false, models.NewUnauthorizedError("Invalid refresh token")
	}
	return userID, expired, nil
}

// Refresh rotates refreshToken. Presenting a token that is expired or no longer
// in the user's set revokes every session of that user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.Tokens, error) {
	userID, expired, err := s.sessionOwner(refreshToken)
	if err != nil {
		return models.Tokens{}, err
	}
	log := logger.Logger(ctx).WithField("user_id", userID.Hex())

	if expired {
		if err := s.users.ClearRefreshTokens(ctx, userID); err != nil {
			return models.Tokens{}, err
		}
		log.Warn("expired refresh token presented, sessions revoked")
		return models.Tokens{}, models.NewUnauthorizedError("Refresh token expired")
	}

	next, err := s.tokens.IssueRefresh(userID.Hex())
	if err != nil {
		return models.Tokens{}, models.NewInternalError(err)
	}
	swapped, err := s.users.ReplaceRefreshToken(ctx, userID, refreshToken, next)
	if err != nil {
		return models.Tokens{}, err
	}
	if !swapped {
		if err := s.users.ClearRefreshTokens(ctx, userID); err != nil {
			return models.Tokens{}, err
		}
		log.Warn("refresh token reuse detected, sessions revoked")
		return models.Tokens{}, models.NewUnauthorizedError("Invalid refresh token")
	}

	access, err := s.tokens.IssueAccess(userID.Hex())
	if err != nil {
		return models.Tokens{}, models.NewInternalError(err)
	}
	return models.Tokens{AccessToken: access, RefreshToken: next}, nil
}

// Logout ends the session of refreshToken.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	userID, expired, err := s.sessionOwner(refreshToken)
	if err != nil {
		return err
	}

	removed, err := s.users.RemoveRefreshToken(ctx, userID, refreshToken)
	if err != nil {
		return err
	}
	if expired {
		return models.NewUnauthorizedError("Refresh token expired")
	}
	if !removed {
		if err := s.users.ClearRefreshTokens(ctx, userID); err != nil {
			return err
		}
		logger.Logger(ctx).WithField("user_id", userID.Hex()).Warn("logout with unknown refresh token, sessions revoked")
		return models.NewUnauthorizedError("Invalid refresh token")
	}
	return nil
}

// UpdateProfile replaces the caller's own profile. All required fields must be sent.
func (s *AuthService) UpdateProfile(ctx context.Context, id, callerID string, in ProfileInput) (*models.User, error) {
	if id != callerID {
		return nil, models.NewUnauthorizedError("You can only update your own profile")
	}
	userID, err := parseID("user", id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	other, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && other.ID != userID:
		return nil, models.NewConflictError("Email already in use")
	case err != nil && !models.IsKind(err, models.KindNotFound):
		return nil, err
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	return s.users.UpdateProfile(ctx, userID, models.ProfileUpdate{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hashed,
		PhoneNumber:  in.PhoneNumber,
		ImgURL:       in.ImgURL,
	})
}
