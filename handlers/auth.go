package handlers

import (
	"net/http"

	"carmarket/middleware"
	"carmarket/service"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type GoogleSignInRequest struct {
	Credential string `json:"credential"`
}

func (h *Handler) Register(c *gin.Context) {
	var req service.ProfileInput
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.auth.Register(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GoogleSignIn answers 201 when the Google account signs in for the first time.
func (h *Handler) GoogleSignIn(c *gin.Context) {
	var req GoogleSignInRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, created, err := h.auth.GoogleSignIn(ctx, req.Credential)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// Refresh expects the refresh token as the bearer token.
func (h *Handler) Refresh(c *gin.Context) {
	token, err := middleware.BearerToken(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	tokens, err := h.auth.Refresh(ctx, token)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *Handler) Logout(c *gin.Context) {
	token, err := middleware.BearerToken(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.auth.Logout(ctx, token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req service.ProfileInput
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.auth.UpdateProfile(ctx, c.Param("id"), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
