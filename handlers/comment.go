package handlers

import (
	"context"
	"net/http"

	"carmarket/middleware"
	"carmarket/service"

	"github.com/gin-gonic/gin"
)

type TextRequest struct {
	Text string `json:"text"`
}

// thread resolves the :postId, :commentId and :replyId path params present on
// the route, answering the error itself when resolution fails.
func (h *Handler) thread(ctx context.Context, c *gin.Context) (*service.Thread, bool) {
	thread, err := h.posts.ResolveThread(ctx, service.ThreadRef{
		PostID:    c.Param("postId"),
		CommentID: c.Param("commentId"),
		ReplyID:   c.Param("replyId"),
	})
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return thread, true
}

func (h *Handler) AddComment(c *gin.Context) {
	var req TextRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	post, err := h.posts.AddComment(ctx, c.Param("postId"), req.Text, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) GetComment(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	thread, ok := h.thread(ctx, c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, thread.Comment)
}

func (h *Handler) EditComment(c *gin.Context) {
	var req TextRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	thread, ok := h.thread(ctx, c)
	if !ok {
		return
	}
	comment, err := h.posts.EditComment(ctx, thread, req.Text, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment removes the comment together with its replies.
func (h *Handler) DeleteComment(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	thread, ok := h.thread(ctx, c)
	if !ok {
		return
	}
	comment, err := h.posts.DeleteComment(ctx, thread, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (h *Handler) AddReply(c *gin.Context) {
	var req TextRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	thread, ok := h.thread(ctx, c)
	if !ok {
		return
	}
	comment, err := h.posts.AddReply(ctx, thread, req.Text, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

func (h *Handler) GetReply(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	thread, ok := h.thread(ctx, c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, thread.Reply)
}

func (h *Handler) EditReply(c *gin.Context) {
	var req TextRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	thread, ok := h.thread(ctx, c)
	if !ok {
		return
	}
	reply, err := h.posts.EditReply(ctx, thread, req.Text, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) DeleteReply(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	thread, ok := h.thread(ctx, c)
	if !ok {
		return
	}
	reply, err := h.posts.DeleteReply(ctx, thread, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
