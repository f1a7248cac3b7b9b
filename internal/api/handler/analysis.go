package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gitinsight/gitinsight/internal/api/middleware"
	"github.com/gitinsight/gitinsight/internal/model/dto"
	"github.com/gitinsight/gitinsight/internal/pkg/response"
	"github.com/gitinsight/gitinsight/internal/service"
)

type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// Create submits a repository for analysis.
// POST /api/v1/analyses
func (h *AnalysisHandler) Create(c *gin.Context) {
	var req dto.AnalyzeRepoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.analysisService.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRepoURL):
			response.ParamError(c, "repository url must be a valid https:// or git@ address with owner/repo")
		case errors.Is(err, service.ErrEnqueueFailed):
			response.ServiceBusyError(c, "")
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Accepted(c, resp)
}

// GetStatus polls a single analysis.
// GET /api/v1/analyses/:id
func (h *AnalysisHandler) GetStatus(c *gin.Context) {
	analysisID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid analysis id")
		return
	}

	detail, err := h.analysisService.GetStatus(analysisID, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			response.NotFoundError(c, "")
		} else {
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, detail)
}

// History lists the caller's analyses, most recent first.
// GET /api/v1/history
func (h *AnalysisHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == nil {
		response.AuthError(c, "")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	items, err := h.analysisService.History(*userID, limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}
