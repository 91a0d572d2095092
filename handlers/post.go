package handlers

import (
	"net/http"

	"carmarket/middleware"
	"carmarket/search"
	"carmarket/service"

	"github.com/gin-gonic/gin"
)

type UpdatePostRequest struct {
	Car string `json:"car" binding:"required"`
}

// ListPosts filters by the attributes of each post's car.
func (h *Handler) ListPosts(c *gin.Context) {
	filter, err := search.Parse(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	posts, err := h.posts.List(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) GetPost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.GetPost(ctx, c.Param("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) GetPopulatedPost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.GetPopulated(ctx, c.Param("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req service.CreatePostInput
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.CreatePost(ctx, req, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) UpdatePost(c *gin.Context) {
	var req UpdatePostRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.UpdatePost(ctx, c.Param("postId"), req.Car, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) DeletePost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.DeletePost(ctx, c.Param("postId"), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}
