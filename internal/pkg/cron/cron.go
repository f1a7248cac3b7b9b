package cron

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gitinsight/gitinsight/internal/repository"
)

const staleJobErrorMessage = "analysis timed out"

// Service is the out-of-band reaper. The pipeline itself performs no
// deadlock detection: a job orphaned by a worker crash stays non-terminal
// until this service marks it failed, and a clone directory orphaned the
// same way stays on disk until swept here.
type Service struct {
	analysisRepo *repository.AnalysisRepository
	cloneBaseDir string
	jobTimeout   time.Duration
	dirExpiry    time.Duration
	stopChan     chan struct{}
}

func NewService(analysisRepo *repository.AnalysisRepository, cloneBaseDir string, jobTimeout, dirExpiry time.Duration) *Service {
	return &Service{
		analysisRepo: analysisRepo,
		cloneBaseDir: cloneBaseDir,
		jobTimeout:   jobTimeout,
		dirExpiry:    dirExpiry,
		stopChan:     make(chan struct{}),
	}
}

func (s *Service) Start() {
	go s.run()
	log.Println("Reaper started (stale jobs + clone dirs)")
}

func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Reaper stopped")
}

func (s *Service) run() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	s.Sweep()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one reaper pass.
func (s *Service) Sweep() {
	failed := s.failStaleJobs()
	cleaned := s.cleanupCloneDirs()
	if failed > 0 || cleaned > 0 {
		log.Printf("Reaper summary: stale_jobs_failed=%d, clone_dirs_removed=%d", failed, cleaned)
	}
}

func (s *Service) failStaleJobs() int64 {
	timeout := s.jobTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	count, err := s.analysisRepo.FailStale(timeout, staleJobErrorMessage)
	if err != nil {
		log.Printf("Reaper: failed to mark stale jobs: %v", err)
		return 0
	}
	return count
}

func (s *Service) cleanupCloneDirs() int {
	if s.cloneBaseDir == "" {
		return 0
	}

	expiry := s.dirExpiry
	if expiry <= 0 {
		expiry = time.Hour
	}

	entries, err := os.ReadDir(s.cloneBaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Reaper: failed to read clone dir %s: %v", s.cloneBaseDir, err)
		}
		return 0
	}

	cleaned := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "gitinsight_") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if time.Since(info.ModTime()) > expiry {
			dirPath := filepath.Join(s.cloneBaseDir, entry.Name())
			if err := os.RemoveAll(dirPath); err != nil {
				log.Printf("Reaper: failed to remove %s: %v", dirPath, err)
			} else {
				cleaned++
			}
		}
	}
	return cleaned
}
