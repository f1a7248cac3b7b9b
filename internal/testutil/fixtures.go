package testutil

import (
	"testing"

	"gorm.io/gorm"

	"github.com/gitinsight/gitinsight/internal/model"
)

// TestAnalysis creates an analysis record.
func TestAnalysis(t *testing.T, db *gorm.DB, opts ...func(*model.AnalysisHistory)) *model.AnalysisHistory {
	t.Helper()

	analysis := &model.AnalysisHistory{
		RepositoryURL: "https://github.com/acme/demo",
		Parameters: model.AnalysisParams{
			Lang:         "en",
			Size:         "medium",
			Technicality: "technical",
		},
		Status: model.StatusQueued,
	}

	for _, opt := range opts {
		opt(analysis)
	}

	if err := db.Create(analysis).Error; err != nil {
		t.Fatalf("Failed to create test analysis: %v", err)
	}

	return analysis
}

// WithOwner sets the owner identity.
func WithOwner(userGithubID string) func(*model.AnalysisHistory) {
	return func(a *model.AnalysisHistory) {
		a.UserGithubID = &userGithubID
	}
}

// WithStatus sets the status.
func WithStatus(status model.AnalysisStatus) func(*model.AnalysisHistory) {
	return func(a *model.AnalysisHistory) {
		a.Status = status
	}
}

// WithURL sets the repository URL.
func WithURL(url string) func(*model.AnalysisHistory) {
	return func(a *model.AnalysisHistory) {
		a.RepositoryURL = url
	}
}

// WithSummary sets the summary content.
func WithSummary(summary string) func(*model.AnalysisHistory) {
	return func(a *model.AnalysisHistory) {
		a.SummaryContent = &summary
	}
}
