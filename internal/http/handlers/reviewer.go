package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewer-backend/internal/domain"
	"github.com/yungbote/reviewer-backend/internal/http/response"
	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
	"github.com/yungbote/reviewer-backend/internal/platform/logger"
)

type ReviewerService interface {
	Query(ctx context.Context, question, examType string) (domain.Answer, error)
	RandomMock(ctx context.Context, examType string) (domain.Chunk, error)
}

type ReviewerHandler struct {
	log *logger.Logger
	svc ReviewerService
}

func NewReviewerHandler(log *logger.Logger, svc ReviewerService) *ReviewerHandler {
	return &ReviewerHandler{log: log.With("handler", "ReviewerHandler"), svc: svc}
}

type askRequest struct {
	Question string `json:"question"`
	ExamType string `json:"exam_type"`
}

// POST /api/reviewer/ask
func (h *ReviewerHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidInput, fmt.Errorf("question is required"))
		return
	}

	ans, err := h.svc.Query(c.Request.Context(), req.Question, req.ExamType)
	if err != nil {
		h.log.Warn("ask failed", "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, ans)
}

// GET /api/reviewer/mock?type=<exam>
func (h *ReviewerHandler) Mock(c *gin.Context) {
	exam := c.Query("type")
	if exam == "" {
		exam = c.Query("exam_type")
	}
	mock, err := h.svc.RandomMock(c.Request.Context(), exam)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, mock)
}
