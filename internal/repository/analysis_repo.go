package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/gitinsight/gitinsight/internal/model"
)

type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(analysis *model.AnalysisHistory) error {
	return r.db.Create(analysis).Error
}

// GetByID loads a record, owner-scoped when userGithubID is non-nil.
// Guests may look up any id they know.
func (r *AnalysisRepository) GetByID(id int64, userGithubID *string) (*model.AnalysisHistory, error) {
	query := r.db.Where("id = ?", id)
	if userGithubID != nil {
		query = query.Where("user_github_id = ?", *userGithubID)
	}

	var analysis model.AnalysisHistory
	if err := query.First(&analysis).Error; err != nil {
		return nil, err
	}
	return &analysis, nil
}

// ListByOwner returns the owner's records, most recent first.
func (r *AnalysisRepository) ListByOwner(userGithubID string, limit int) ([]*model.AnalysisHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var analyses []*model.AnalysisHistory
	err := r.db.Where("user_github_id = ?", userGithubID).
		Order("created_at DESC").
		Limit(limit).
		Find(&analyses).Error
	return analyses, err
}

// Delete removes a record. Only used by the producer to roll back a record
// whose enqueue failed right after creation.
func (r *AnalysisRepository) Delete(id int64) error {
	return r.db.Delete(&model.AnalysisHistory{}, id).Error
}

// UpdateStatus applies a status transition as a single conditional update.
// Records already in a terminal state are never modified: the WHERE clause
// excludes them, which makes redelivered and stale messages no-ops.
// Summary content is written only on completed (and left untouched
// otherwise); the error message is written on failed and cleared on every
// other transition.
//
// Returns the record after the call, or nil when it does not exist.
func (r *AnalysisRepository) UpdateStatus(id int64, status model.AnalysisStatus, summaryContent, errorMessage *string) (*model.AnalysisHistory, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if status == model.StatusCompleted {
		updates["summary_content"] = summaryContent
	}
	if status == model.StatusFailed {
		updates["error_message"] = errorMessage
	} else {
		updates["error_message"] = nil
	}

	res := r.db.Model(&model.AnalysisHistory{}).
		Where("id = ? AND status NOT IN ?", id, model.TerminalStatuses).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}

	var analysis model.AnalysisHistory
	if err := r.db.Where("id = ?", id).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

// FailStale marks records stuck in a non-terminal state for longer than
// maxAge as failed. Run by the out-of-band reaper, not by the pipeline.
func (r *AnalysisRepository) FailStale(maxAge time.Duration, errorMessage string) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res := r.db.Model(&model.AnalysisHistory{}).
		Where("status NOT IN ? AND updated_at < ?", model.TerminalStatuses, cutoff).
		Updates(map[string]interface{}{
			"status":        model.StatusFailed,
			"error_message": errorMessage,
			"updated_at":    time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
