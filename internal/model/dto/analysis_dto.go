package dto

import (
	"time"

	"github.com/gitinsight/gitinsight/internal/model"
)

// AnalyzeRepoRequest is the analysis submission payload. AccessToken is
// optional and only used to clone private repositories; it is never
// persisted.
type AnalyzeRepoRequest struct {
	URL          string `json:"url" binding:"required"`
	Lang         string `json:"lang"`
	Size         string `json:"size"`
	Technicality string `json:"technicality"`
	AccessToken  string `json:"access_token"`
}

type AnalyzeRepoResponse struct {
	AnalysisID int64                `json:"analysis_id"`
	Status     model.AnalysisStatus `json:"status"`
}

type AnalysisStatusResponse struct {
	AnalysisID     int64                `json:"analysis_id"`
	Status         model.AnalysisStatus `json:"status"`
	RepositoryURL  string               `json:"repository_url"`
	ParametersUsed model.AnalysisParams `json:"parameters_used"`
	SummaryContent *string              `json:"summary_content,omitempty"`
	ErrorMessage   *string              `json:"error_message,omitempty"`
	CreatedAt      time.Time            `json:"timestamp"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type AnalysisHistoryItem struct {
	AnalysisID     int64                `json:"analysis_id"`
	RepositoryURL  string               `json:"repository_url"`
	Status         model.AnalysisStatus `json:"status"`
	ParametersUsed model.AnalysisParams `json:"parameters_used"`
	CreatedAt      time.Time            `json:"timestamp"`
}

func StatusResponseFrom(a *model.AnalysisHistory) *AnalysisStatusResponse {
	return &AnalysisStatusResponse{
		AnalysisID:     a.ID,
		Status:         a.Status,
		RepositoryURL:  a.RepositoryURL,
		ParametersUsed: a.Parameters,
		SummaryContent: a.SummaryContent,
		ErrorMessage:   a.ErrorMessage,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func HistoryItemFrom(a *model.AnalysisHistory) *AnalysisHistoryItem {
	return &AnalysisHistoryItem{
		AnalysisID:     a.ID,
		RepositoryURL:  a.RepositoryURL,
		Status:         a.Status,
		ParametersUsed: a.Parameters,
		CreatedAt:      a.CreatedAt,
	}
}
