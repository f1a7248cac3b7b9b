package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gitinsight/gitinsight/config"
	"github.com/gitinsight/gitinsight/internal/model"
	"github.com/gitinsight/gitinsight/internal/pkg/queue"
)

const (
	// MaxPayloadChars bounds the text handed to the AI stage.
	MaxPayloadChars = 500000
	// TruncationMarker is appended whenever the payload was cut.
	TruncationMarker = "\n\n[content truncated]"

	maxErrorMessageChars = 500
)

// Processor is the repo-processing worker: it consumes RepoTaskMessages,
// clones and filters the repository, reports status through the result
// queue and hands bounded extracted text to the AI queue.
type Processor struct {
	rdb          *redis.Client
	aiQueue      *queue.Queue
	cloneBaseDir string
	cloneTimeout time.Duration

	// CloneFn is replaceable in tests so processing can run without a git
	// binary or network.
	CloneFn func(ctx context.Context, analysisID int64, repoURL, token string) (string, error)
}

func NewProcessor(rdb *redis.Client, aiQueue *queue.Queue, cfg *config.Config) *Processor {
	p := &Processor{
		rdb:          rdb,
		aiQueue:      aiQueue,
		cloneBaseDir: cfg.Clone.TempDir,
		cloneTimeout: time.Duration(cfg.Clone.TimeoutSeconds) * time.Second,
	}
	p.CloneFn = func(ctx context.Context, analysisID int64, repoURL, token string) (string, error) {
		return CloneRepo(ctx, analysisID, repoURL, token, p.cloneBaseDir, p.cloneTimeout)
	}
	return p
}

// Process runs one repo task end to end. Domain failures (bad URL, clone
// errors) terminate the job through a FAILED result message and return
// nil: the message is handled. A non-nil return means infrastructure
// trouble (result queue unreachable) and is left to the worker loop.
func (p *Processor) Process(ctx context.Context, msg *queue.RepoTaskMessage) (err error) {
	resultQ := queue.NewQueue(p.rdb, msg.ResultQueue)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Analysis %d] panic during repo processing: %v", msg.AnalysisID, r)
			// Best effort, but the attempt is mandatory.
			p.sendFailure(ctx, resultQ, msg.AnalysisID, "internal error during repository processing")
			err = fmt.Errorf("panic during repo processing: %v", r)
		}
	}()

	if err := resultQ.PushResult(ctx, &queue.ResultMessage{
		AnalysisID: msg.AnalysisID,
		Status:     model.StatusProcessingRepo,
		Message:    "starting repository cloning and parsing",
	}); err != nil {
		return fmt.Errorf("failed to report processing_repo status: %w", err)
	}

	dir, text, procErr := p.fetchAndExtract(ctx, msg)
	if dir != "" {
		defer func() {
			if cleanErr := CleanupRepo(dir); cleanErr != nil {
				log.Printf("[Analysis %d] failed to clean clone dir %s: %v", msg.AnalysisID, dir, cleanErr)
			}
		}()
	}

	if procErr != nil {
		var ce *CloneError
		if errors.As(procErr, &ce) {
			log.Printf("[Analysis %d] clone failed: %v", msg.AnalysisID, ce.RawError)
			return p.sendFailure(ctx, resultQ, msg.AnalysisID,
				truncateMessage("failed to clone repository: "+ce.UserMessage, maxErrorMessageChars))
		}
		// Raw internals stay in the log, not in the stored error message.
		log.Printf("[Analysis %d] repo processing failed: %v", msg.AnalysisID, procErr)
		return p.sendFailure(ctx, resultQ, msg.AnalysisID, "internal error during repository processing")
	}

	if err := p.aiQueue.PushAITask(ctx, &queue.AITaskMessage{
		AnalysisID:    msg.AnalysisID,
		ExtractedText: text,
		Parameters:    msg.Parameters,
		ResultQueue:   msg.ResultQueue,
	}); err != nil {
		return fmt.Errorf("failed to enqueue ai task: %w", err)
	}

	log.Printf("[Analysis %d] repository processed, %d chars handed to AI stage", msg.AnalysisID, len(text))
	return nil
}

// fetchAndExtract is the inner processing step: clone, filter, assemble.
// It returns the clone dir (possibly set even on failure) so the caller
// owns cleanup on every exit path.
func (p *Processor) fetchAndExtract(ctx context.Context, msg *queue.RepoTaskMessage) (dir, text string, err error) {
	dir, err = p.CloneFn(ctx, msg.AnalysisID, msg.RepositoryURL, msg.AccessToken)
	if err != nil {
		return "", "", err
	}

	content, err := FilterRepo(dir)
	if err != nil {
		return dir, "", fmt.Errorf("failed to filter repository: %w", err)
	}

	log.Printf("[Analysis %d] filtered repository: %d important, %d source files",
		msg.AnalysisID, len(content.Important), len(content.Source))

	return dir, BuildPayload(content, MaxPayloadChars), nil
}

func (p *Processor) sendFailure(ctx context.Context, resultQ *queue.Queue, analysisID int64, errorMessage string) error {
	if err := resultQ.PushResult(ctx, &queue.ResultMessage{
		AnalysisID:   analysisID,
		Status:       model.StatusFailed,
		ErrorMessage: errorMessage,
	}); err != nil {
		return fmt.Errorf("failed to report failure: %w", err)
	}
	return nil
}

// BuildPayload concatenates important-file content followed by source-file
// content, each in filter-discovery order, and truncates to maxChars with
// an explicit marker so the AI stage never receives unbounded input.
func BuildPayload(content *ExtractedContent, maxChars int) string {
	var b []byte
	for _, f := range content.Important {
		b = append(b, fmt.Sprintf("--- FILE: %s ---\n%s\n\n", f.Path, f.Content)...)
	}
	for _, f := range content.Source {
		b = append(b, fmt.Sprintf("--- FILE: %s ---\n%s\n\n", f.Path, f.Content)...)
	}

	if maxChars > 0 && len(b) > maxChars {
		return string(b[:maxChars]) + TruncationMarker
	}
	return string(b)
}

func truncateMessage(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
