package queue

import "github.com/gitinsight/gitinsight/internal/model"

// The three message shapes that travel between pipeline stages. Every
// message carries analysis_id as the correlation key, and the upstream
// stages carry result_queue so workers know where to report outcomes.

// RepoTaskMessage asks the repo-processing worker to clone and extract a
// repository. AccessToken is optional and must never be logged.
type RepoTaskMessage struct {
	AnalysisID    int64                `json:"analysis_id"`
	RepositoryURL string               `json:"repository_url"`
	AccessToken   string               `json:"access_token,omitempty"`
	Parameters    model.AnalysisParams `json:"analysis_parameters"`
	ResultQueue   string               `json:"result_queue_name"`
}

// AITaskMessage hands bounded extracted text to the AI worker.
type AITaskMessage struct {
	AnalysisID    int64                `json:"analysis_id"`
	ExtractedText string               `json:"extracted_text"`
	Parameters    model.AnalysisParams `json:"analysis_parameters"`
	ResultQueue   string               `json:"result_queue_name"`
}

// ResultMessage is the only way job state reaches the record store. Both
// intermediate status updates and terminal outcomes use this shape.
type ResultMessage struct {
	AnalysisID     int64                `json:"analysis_id"`
	Status         model.AnalysisStatus `json:"status"`
	Message        string               `json:"message,omitempty"`
	ErrorMessage   string               `json:"error_message,omitempty"`
	SummaryContent string               `json:"summary_content,omitempty"`
}
