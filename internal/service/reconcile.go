package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/templui/fileshare/internal/metrics"
	"github.com/templui/fileshare/internal/repository"
	"github.com/templui/fileshare/internal/storage"
)

// Issue types found by reconciliation
const (
	IssueOrphanedBlob = "orphaned_blob" // blob without a record
	IssueMissingBlob  = "missing_blob"  // record without a blob
	IssueSizeMismatch = "size_mismatch"
)

type ReconcileIssue struct {
	Type        string
	StoragePath string
	FileID      string
	// Removed is set when an orphaned blob was deleted
	Removed bool
}

type ReconcileReport struct {
	StartedAt    time.Time
	Duration     time.Duration
	BlobsChecked int
	FilesChecked int
	Issues       []ReconcileIssue
}

func (r *ReconcileReport) Count(issueType string) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Type == issueType {
			n++
		}
	}
	return n
}

// ErrReconcileRunning is returned when a run is requested while another
// one is still in progress.
var ErrReconcileRunning = errors.New("reconciliation already running")

// ReconcileService compares the blob store with the file records.
// Orphaned blobs older than the grace period are removed. Missing blobs
// and size mismatches are only reported; the record is the source of truth
// and an operator has to decide.
type ReconcileService struct {
	fileRepo repository.FileRepository
	storage  storage.Storage
	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewReconcileService(fileRepo repository.FileRepository, storage storage.Storage, interval, grace time.Duration) *ReconcileService {
	return &ReconcileService{
		fileRepo: fileRepo,
		storage:  storage,
		interval: interval,
		grace:    grace,
		logger:   slog.Default().With("component", "reconcile"),
		now:      time.Now,
	}
}

// Start runs reconciliation every interval until Stop is called or ctx is
// done. A zero interval disables the background loop.
func (s *ReconcileService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("background reconciliation disabled")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(runCtx)

	s.logger.Info("background reconciliation started", "interval", s.interval.String(), "grace", s.grace.String())
}

// Stop cancels the background loop and waits for it to exit.
func (s *ReconcileService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("background reconciliation stopped")
}

func (s *ReconcileService) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := s.RunOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("reconciliation failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single pass. Records are loaded before blobs are
// listed, so an upload in flight can only look like an orphan, which the
// grace period covers, and never like a missing blob.
func (s *ReconcileService) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrReconcileRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	report := &ReconcileReport{StartedAt: s.now().UTC()}

	records, err := s.fileRepo.StoragePaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage paths: %w", err)
	}

	blobs, err := s.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	report.FilesChecked = len(records)
	report.BlobsChecked = len(blobs)

	cutoff := s.now().Add(-s.grace)
	seen := make(map[string]bool, len(blobs))

	for _, blob := range blobs {
		seen[blob.Path] = true

		record, ok := records[blob.Path]
		if ok {
			if record.Size != blob.Size {
				report.Issues = append(report.Issues, ReconcileIssue{
					Type:        IssueSizeMismatch,
					StoragePath: blob.Path,
					FileID:      record.ID,
				})
				s.logger.Warn("blob size does not match record",
					"file_id", record.ID, "storage_path", blob.Path,
					"record_size", record.Size, "blob_size", blob.Size)
			}
			continue
		}

		if blob.ModTime.After(cutoff) {
			continue
		}

		issue := ReconcileIssue{Type: IssueOrphanedBlob, StoragePath: blob.Path}
		err = s.storage.Delete(ctx, blob.Path)
		switch {
		case err == nil:
			issue.Removed = true
			s.logger.Info("removed orphaned blob", "storage_path", blob.Path, "size", blob.Size)
		case errors.Is(err, storage.ErrBlobNotFound):
			issue.Removed = true
		default:
			s.logger.Error("failed to remove orphaned blob", "storage_path", blob.Path, "error", err)
		}
		report.Issues = append(report.Issues, issue)
	}

	for storagePath, record := range records {
		if seen[storagePath] {
			continue
		}
		report.Issues = append(report.Issues, ReconcileIssue{
			Type:        IssueMissingBlob,
			StoragePath: storagePath,
			FileID:      record.ID,
		})
		s.logger.Error("blob missing for file record", "file_id", record.ID, "storage_path", storagePath)
	}

	report.Duration = s.now().Sub(report.StartedAt)

	metrics.ReconcileRunsTotal.Inc()
	for _, issue := range report.Issues {
		metrics.ReconcileIssuesTotal.WithLabelValues(issue.Type).Inc()
	}

	s.logger.Info("reconciliation finished",
		"files_checked", report.FilesChecked,
		"blobs_checked", report.BlobsChecked,
		"orphaned_blobs", report.Count(IssueOrphanedBlob),
		"missing_blobs", report.Count(IssueMissingBlob),
		"size_mismatches", report.Count(IssueSizeMismatch),
		"duration_ms", report.Duration.Milliseconds(),
	)

	return report, nil
}
