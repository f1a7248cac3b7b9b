package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/gitinsight/gitinsight/internal/model"
	"github.com/gitinsight/gitinsight/internal/pkg/queue"
)

const maxErrorMessageChars = 500

// Worker is the AI-summarization stage: it consumes AITaskMessages,
// reports processing_ai, invokes the model and emits the terminal result.
type Worker struct {
	rdb        *redis.Client
	summarizer *Summarizer
}

func NewWorker(rdb *redis.Client, summarizer *Summarizer) *Worker {
	return &Worker{rdb: rdb, summarizer: summarizer}
}

// Process runs one AI task. Taxonomy errors terminate the job through a
// FAILED result and are considered handled; unexpected errors still
// attempt a FAILED result first, then surface to the worker loop.
func (w *Worker) Process(ctx context.Context, msg *queue.AITaskMessage) (err error) {
	resultQ := queue.NewQueue(w.rdb, msg.ResultQueue)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Analysis %d] panic during ai analysis: %v", msg.AnalysisID, r)
			w.sendFailure(ctx, resultQ, msg.AnalysisID, "unexpected error in ai analysis")
			err = fmt.Errorf("panic during ai analysis: %v", r)
		}
	}()

	if err := resultQ.PushResult(ctx, &queue.ResultMessage{
		AnalysisID: msg.AnalysisID,
		Status:     model.StatusProcessingAI,
		Message:    "starting ai summarization",
	}); err != nil {
		return fmt.Errorf("failed to report processing_ai status: %w", err)
	}

	summary, sumErr := w.summarizer.Summarize(ctx, msg.ExtractedText, msg.Parameters)
	if sumErr != nil {
		log.Printf("[Analysis %d] ai analysis failed: %v", msg.AnalysisID, sumErr)

		if isTaxonomyError(sumErr) {
			return w.sendFailure(ctx, resultQ, msg.AnalysisID, truncateMessage(sumErr.Error(), maxErrorMessageChars))
		}

		// Unexpected error: report a generic failure, then hand the raw
		// error to the supervisor so it is visible operationally.
		if failErr := w.sendFailure(ctx, resultQ, msg.AnalysisID, "failed to generate summary due to a model api error"); failErr != nil {
			return failErr
		}
		return sumErr
	}

	if err := resultQ.PushResult(ctx, &queue.ResultMessage{
		AnalysisID:     msg.AnalysisID,
		Status:         model.StatusCompleted,
		SummaryContent: summary,
	}); err != nil {
		return fmt.Errorf("failed to report completion: %w", err)
	}

	log.Printf("[Analysis %d] summary completed", msg.AnalysisID)
	return nil
}

func (w *Worker) sendFailure(ctx context.Context, resultQ *queue.Queue, analysisID int64, errorMessage string) error {
	if err := resultQ.PushResult(ctx, &queue.ResultMessage{
		AnalysisID:   analysisID,
		Status:       model.StatusFailed,
		ErrorMessage: errorMessage,
	}); err != nil {
		return fmt.Errorf("failed to report failure: %w", err)
	}
	return nil
}

func isTaxonomyError(err error) bool {
	return errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrBlocked) ||
		errors.Is(err, ErrNoContent)
}

func truncateMessage(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
