package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AnalysisStatus is the job lifecycle enumeration:
// queued -> processing_repo -> processing_ai -> completed | failed.
type AnalysisStatus string

const (
	StatusQueued         AnalysisStatus = "queued"
	StatusProcessingRepo AnalysisStatus = "processing_repo"
	StatusProcessingAI   AnalysisStatus = "processing_ai"
	StatusCompleted      AnalysisStatus = "completed"
	StatusFailed         AnalysisStatus = "failed"
)

// TerminalStatuses are final: no transition out of them is valid.
var TerminalStatuses = []AnalysisStatus{StatusCompleted, StatusFailed}

func (s AnalysisStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessingRepo, StatusProcessingAI, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

func (s AnalysisStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Analysis parameter enumerations. Unrecognized values never fail a
// request, they fall back to the defaults below.
const (
	DefaultLang         = "en"
	DefaultSize         = "medium"
	DefaultTechnicality = "technical"
)

var (
	knownLangs          = map[string]bool{"en": true, "es": true, "fr": true, "de": true, "ru": true, "zh": true}
	knownSizes          = map[string]bool{"small": true, "medium": true, "large": true}
	knownTechnicalities = map[string]bool{"non-technical": true, "technical": true, "expert": true}
)

// AnalysisParams is stored as a JSON column and travels inside task
// messages. Immutable after record creation.
type AnalysisParams struct {
	Lang         string `json:"lang"`
	Size         string `json:"size"`
	Technicality string `json:"technicality"`
}

// Normalize maps unrecognized enum values to their defaults.
func (p AnalysisParams) Normalize() AnalysisParams {
	if !knownLangs[p.Lang] {
		p.Lang = DefaultLang
	}
	if !knownSizes[p.Size] {
		p.Size = DefaultSize
	}
	if !knownTechnicalities[p.Technicality] {
		p.Technicality = DefaultTechnicality
	}
	return p
}

func (p AnalysisParams) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *AnalysisParams) Scan(value interface{}) error {
	if value == nil {
		*p = AnalysisParams{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// AnalysisHistory is the persisted job record. Created by the producer in
// queued state; status, summary and error are mutated only by the result
// consumer. URL, owner and parameters are immutable after creation.
type AnalysisHistory struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	UserGithubID   *string        `gorm:"size:64;index" json:"user_github_id,omitempty"` // nil for guest callers
	RepositoryURL  string         `gorm:"size:500;not null" json:"repository_url"`
	Parameters     AnalysisParams `gorm:"type:json;not null" json:"parameters_used"`
	SummaryContent *string        `gorm:"type:text" json:"summary_content,omitempty"`
	Status         AnalysisStatus `gorm:"size:20;default:queued;index" json:"status"`
	ErrorMessage   *string        `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (AnalysisHistory) TableName() string {
	return "analysis_history"
}
