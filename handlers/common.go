package handlers

import (
	"context"
	"time"

	"carmarket/middleware"
	"carmarket/models"
	"carmarket/service"
	"carmarket/uploads"

	"github.com/gin-gonic/gin"
)

const requestTimeout = 10 * time.Second

// Handler serves the HTTP API on top of the service layer.
type Handler struct {
	auth    *service.AuthService
	cars    *service.CarService
	posts   *service.PostService
	users   *service.UserService
	storage uploads.Storage
}

func New(
	authSvc *service.AuthService,
	cars *service.CarService,
	posts *service.PostService,
	users *service.UserService,
	storage uploads.Storage,
) *Handler {
	return &Handler{auth: authSvc, cars: cars, posts: posts, users: users, storage: storage}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindJSON decodes the request body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, models.NewInvalidInputError("Invalid request body: "+err.Error()))
		return false
	}
	return true
}

type messageResponse struct {
	Message string `json:"message"`
}
