package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"forum-api/internal/service"
)

// PostHandler expone el feed de publicaciones.
type PostHandler struct {
	logger   *zap.Logger
	postServ *service.PostService
}

func NewPostHandler(logger *zap.Logger, postServ *service.PostService) *PostHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostHandler{logger: logger, postServ: postServ}
}

// List maneja GET /api/posts (mas nuevas primero).
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.postServ.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, "list posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// Create maneja POST /api/posts. Sin author explicito usa el username de la sesion, si existe.
func (h *PostHandler) Create(c *gin.Context) {
	var req struct {
		Title         string `json:"title"`
		Body          string `json:"body"`
		Author        string `json:"author"`
		CommunitySlug string `json:"communitySlug"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		h.logger.Warn("invalid create post request", zap.Error(err))
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	author := req.Author
	if author == "" {
		if claims, ok := GetAuthClaims(c); ok {
			author = claims.Username
		}
	}

	post, err := h.postServ.Create(c.Request.Context(), service.CreatePostInput{
		Title:         req.Title,
		Body:          req.Body,
		Author:        author,
		CommunitySlug: req.CommunitySlug,
	})
	if err != nil {
		respondServiceError(c, h.logger, "create post", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// Upvote maneja PATCH /api/posts/:id/upvote.
func (h *PostHandler) Upvote(c *gin.Context) {
	post, err := h.postServ.Upvote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, "upvote post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// Downvote maneja PATCH /api/posts/:id/downvote.
func (h *PostHandler) Downvote(c *gin.Context) {
	post, err := h.postServ.Downvote(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, "downvote post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// AddComment maneja POST /api/posts/:id/comments.
func (h *PostHandler) AddComment(c *gin.Context) {
	var req struct {
		Author string `json:"author"`
		Text   string `json:"text"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		h.logger.Warn("invalid comment request", zap.Error(err))
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	post, comment, err := h.postServ.AddComment(c.Request.Context(), c.Param("id"), req.Author, req.Text)
	if err != nil {
		respondServiceError(c, h.logger, "add comment", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post, "comment": comment})
}

// Seed maneja POST /api/seed-posts; solo se registra si ENABLE_SEED_ENDPOINT=true.
func (h *PostHandler) Seed(c *gin.Context) {
	posts, err := h.postServ.Seed(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, "seed posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Added %d sample posts", len(posts)),
		"posts":   posts,
	})
}
