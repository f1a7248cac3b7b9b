package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/gitinsight/gitinsight/internal/model"
	"github.com/gitinsight/gitinsight/internal/model/dto"
	"github.com/gitinsight/gitinsight/internal/pkg/queue"
	"github.com/gitinsight/gitinsight/internal/repository"
	"github.com/gitinsight/gitinsight/internal/worker"
)

var (
	ErrInvalidRepoURL   = errors.New("invalid repository url")
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrEnqueueFailed    = errors.New("failed to queue analysis task")
)

// AnalysisService is the producer stage: it validates analysis requests,
// creates the job record and enqueues the repo-processing task. It never
// blocks on downstream processing.
type AnalysisService struct {
	analysisRepo    *repository.AnalysisRepository
	repoQueue       *queue.Queue
	resultQueueName string
}

func NewAnalysisService(analysisRepo *repository.AnalysisRepository, repoQueue *queue.Queue, resultQueueName string) *AnalysisService {
	return &AnalysisService{
		analysisRepo:    analysisRepo,
		repoQueue:       repoQueue,
		resultQueueName: resultQueueName,
	}
}

// Create makes the record-then-enqueue pair behave atomically from the
// caller's point of view: if the enqueue fails after the record was
// created, the record is rolled back so no job is ever left in queued
// state with no worker notified.
func (s *AnalysisService) Create(ctx context.Context, userGithubID *string, req *dto.AnalyzeRepoRequest) (*dto.AnalyzeRepoResponse, error) {
	if _, _, err := worker.ParseRepoURL(req.URL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
	}

	params := model.AnalysisParams{
		Lang:         req.Lang,
		Size:         req.Size,
		Technicality: req.Technicality,
	}.Normalize()

	record := &model.AnalysisHistory{
		UserGithubID:  userGithubID,
		RepositoryURL: req.URL,
		Parameters:    params,
		Status:        model.StatusQueued,
	}
	if err := s.analysisRepo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to create analysis record: %w", err)
	}

	task := &queue.RepoTaskMessage{
		AnalysisID:    record.ID,
		RepositoryURL: req.URL,
		AccessToken:   req.AccessToken,
		Parameters:    params,
		ResultQueue:   s.resultQueueName,
	}
	if err := s.repoQueue.PushRepoTask(ctx, task); err != nil {
		if delErr := s.analysisRepo.Delete(record.ID); delErr != nil {
			log.Printf("Failed to roll back analysis %d after enqueue failure: %v", record.ID, delErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}

	log.Printf("Enqueued repo processing task for analysis %d", record.ID)
	return &dto.AnalyzeRepoResponse{
		AnalysisID: record.ID,
		Status:     record.Status,
	}, nil
}

// GetStatus is the polling surface. Lookups are owner-scoped when an
// owner identity is present; guests may poll any id they know.
func (s *AnalysisService) GetStatus(id int64, userGithubID *string) (*dto.AnalysisStatusResponse, error) {
	record, err := s.analysisRepo.GetByID(id, userGithubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return dto.StatusResponseFrom(record), nil
}

// History returns the owner's analyses, most recent first.
func (s *AnalysisService) History(userGithubID string, limit int) ([]*dto.AnalysisHistoryItem, error) {
	records, err := s.analysisRepo.ListByOwner(userGithubID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]*dto.AnalysisHistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, dto.HistoryItemFrom(r))
	}
	return items, nil
}
