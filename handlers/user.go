package handlers

import (
	"net/http"

	"carmarket/middleware"
	"carmarket/models"

	"github.com/gin-gonic/gin"
)

const maxUploadSize = 10 << 20

type LikePostRequest struct {
	PostID string `json:"_id" binding:"required"`
}

type likedPostsResponse struct {
	LikedPosts []models.Post `json:"likedPosts"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (h *Handler) GetLikedPosts(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	posts, err := h.users.LikedPosts(ctx, c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, likedPostsResponse{LikedPosts: posts})
}

func (h *Handler) LikePost(c *gin.Context) {
	var req LikePostRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.LikePost(ctx, c.Param("userId"), middleware.CurrentUserID(c), req.PostID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) UnlikePost(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.UnlikePost(ctx, c.Param("userId"), middleware.CurrentUserID(c), c.Param("postId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UploadFile stores the multipart "file" field and answers with its public URL.
func (h *Handler) UploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		respondError(c, models.NewInvalidInputError("No file provided"))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, models.NewInvalidInputError("Failed to read uploaded file"))
		return
	}
	defer file.Close()

	ctx, cancel := requestContext(c)
	defer cancel()

	url, err := h.storage.Save(ctx, header.Filename, file)
	if err != nil {
		respondError(c, models.NewInternalError(err))
		return
	}
	c.JSON(http.StatusCreated, uploadResponse{URL: url})
}
