package consumer

import (
	"context"
	"log"

	"github.com/gitinsight/gitinsight/internal/pkg/queue"
	"github.com/gitinsight/gitinsight/internal/repository"
)

// Consumer is the sole writer of job status. It reconciles every
// ResultMessage from every stage into the record store through the
// store's conditional update, so no application-level locking is needed.
type Consumer struct {
	analysisRepo *repository.AnalysisRepository
}

func NewConsumer(analysisRepo *repository.AnalysisRepository) *Consumer {
	return &Consumer{analysisRepo: analysisRepo}
}

// Consume applies one result message. Malformed payloads and missing
// records are logged and dropped: they cannot become valid through retry.
// Applying the same message twice, or a stale message after the record
// reached a terminal state, is a no-op. A non-nil return means the store
// was unreachable and the message should be retried by the loop.
func (c *Consumer) Consume(ctx context.Context, msg *queue.ResultMessage) error {
	if msg.AnalysisID <= 0 || !msg.Status.Valid() {
		log.Printf("Result consumer: dropping invalid payload (analysis_id=%d, status=%q)", msg.AnalysisID, msg.Status)
		return nil
	}

	var summary, errorMessage *string
	if msg.SummaryContent != "" {
		summary = &msg.SummaryContent
	}
	if msg.ErrorMessage != "" {
		errorMessage = &msg.ErrorMessage
	}

	record, err := c.analysisRepo.UpdateStatus(msg.AnalysisID, msg.Status, summary, errorMessage)
	if err != nil {
		log.Printf("Result consumer: store update failed for analysis %d: %v", msg.AnalysisID, err)
		return err
	}
	if record == nil {
		log.Printf("Result consumer: no record for analysis %d, dropping", msg.AnalysisID)
		return nil
	}

	if record.Status != msg.Status {
		// Record already terminal; the stale message was a no-op.
		log.Printf("Result consumer: analysis %d already %s, ignored %s", msg.AnalysisID, record.Status, msg.Status)
		return nil
	}

	log.Printf("Result consumer: analysis %d -> %s", msg.AnalysisID, record.Status)
	return nil
}
