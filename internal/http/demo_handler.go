package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"forum-api/internal/service"
)

// DemoHandler expone comunidades, debates y mentores de demostracion.
type DemoHandler struct {
	logger *zap.Logger
	demo   *service.DemoService
}

func NewDemoHandler(logger *zap.Logger, demo *service.DemoService) *DemoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemoHandler{logger: logger, demo: demo}
}

func (h *DemoHandler) Communities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"communities": h.demo.Communities()})
}

func (h *DemoHandler) Debates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"debates": h.demo.Debates()})
}

func (h *DemoHandler) CreateDebate(c *gin.Context) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	debate, err := h.demo.CreateDebate(req.Topic)
	if err != nil {
		respondServiceError(c, h.logger, "create debate", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"debate": debate})
}

// VoteDebate maneja PATCH /api/debates/:id/vote?side=pro|con.
func (h *DemoHandler) VoteDebate(c *gin.Context) {
	debate, err := h.demo.VoteDebate(c.Param("id"), c.Query("side"))
	if err != nil {
		respondServiceError(c, h.logger, "vote debate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"debate": debate})
}

func (h *DemoHandler) CommentDebate(c *gin.Context) {
	var req struct {
		Author string `json:"author"`
		Text   string `json:"text"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	debate, comment, err := h.demo.CommentDebate(c.Param("id"), req.Author, req.Text)
	if err != nil {
		respondServiceError(c, h.logger, "comment debate", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"debate": debate, "comment": comment})
}

func (h *DemoHandler) Mentors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mentors": h.demo.Mentors()})
}

func (h *DemoHandler) RequestMentor(c *gin.Context) {
	mentor, err := h.demo.RequestMentor(c.Param("id"))
	if err != nil {
		respondServiceError(c, h.logger, "request mentor", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Request sent to " + mentor.Name})
}

// reviewRating acepta numeros o strings numericos ("4", 4.5). Un string no numerico
// cuenta como ausente y el servicio aplica el rating por defecto.
type reviewRating float64

func (r *reviewRating) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*r = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			v = 0
		}
		*r = reviewRating(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = reviewRating(v)
	return nil
}

// ReviewMentor maneja POST /api/mentors/:id/reviews. A diferencia del rating libre
// del cliente, valores fuera de 1..5 se rechazan con 400.
func (h *DemoHandler) ReviewMentor(c *gin.Context) {
	var req struct {
		Author string       `json:"author"`
		Rating reviewRating `json:"rating"`
		Text   string       `json:"text"`
	}
	if err := bindOptionalJSON(c, &req); err != nil {
		respondError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	mentor, err := h.demo.ReviewMentor(c.Param("id"), req.Author, float64(req.Rating), req.Text)
	if err != nil {
		respondServiceError(c, h.logger, "review mentor", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mentor": mentor})
}
