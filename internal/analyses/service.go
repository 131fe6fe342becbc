package analyses

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"compliance-backend/internal/extract"
	"compliance-backend/internal/llm"
	"compliance-backend/internal/obligations"
	"compliance-backend/internal/segment"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/storage/object"
	"compliance-backend/internal/shared/telemetry"
	"compliance-backend/internal/shared/util"
)

const unhashedPrefix = "unhashed-"

// ChunkExtractor runs one chunk through obligation extraction.
type ChunkExtractor interface {
	Extract(ctx context.Context, chunk segment.Chunk) obligations.Result
}

// Service drives a document through hashing, deduplication, segmentation,
// per-chunk extraction and persistence.
type Service struct {
	Store     Store
	LLM       llm.Client
	Extractor ChunkExtractor
	Segmenter segment.Segmenter
	// Archive receives a copy of each freshly analyzed source document. Optional.
	Archive object.ObjectStore
	// Concurrency bounds parallel chunk extraction; values below 2 run sequentially.
	Concurrency int
	// StrictHashing fails the analysis when the file cannot be hashed instead
	// of continuing without deduplication.
	StrictHashing bool

	Pages func(ctx context.Context, path string) ([]extract.Page, error)
	Now   func() time.Time
	NewID func() string

	inflight singleflight.Group
}

// AnalyzeDocument analyzes the PDF at path, or returns the existing analysis
// of identical content. Concurrent calls for the same content share one run;
// only the caller that ran it reports DeduplicationHit=false.
func (s *Service) AnalyzeDocument(ctx context.Context, path string) (Result, error) {
	if s.LLM != nil && !llm.HasCredentials(s.LLM) {
		telemetry.Error("llm api key missing, every extraction request will be rejected", map[string]any{
			"path": path,
		})
	}

	hash, err := util.HashFile(path)
	if err != nil {
		if s.StrictHashing {
			metrics.ObserveAnalysis(metrics.OutcomeFailed)
			return Result{}, &AnalysisError{Err: fmt.Errorf("hash document: %w", err)}
		}
		hash = unhashedPrefix + s.newID()
		telemetry.Warn("document hash failed, deduplication disabled for this run", map[string]any{
			"path":  path,
			"token": hash,
			"error": err,
		})
	}

	// Followers share the leader's run, so it outlives the leader's request.
	shared := context.WithoutCancel(ctx)
	ran := false
	v, err, _ := s.inflight.Do(hash, func() (any, error) {
		ran = true
		return s.analyze(shared, path, hash)
	})
	if err != nil {
		return Result{}, err
	}
	res := v.(Result)
	if !ran && !res.DeduplicationHit {
		metrics.ObserveAnalysis(metrics.OutcomeDedupe)
		return Result{UploadID: res.UploadID, DeduplicationHit: true}, nil
	}
	return res, nil
}

func (s *Service) analyze(ctx context.Context, path, hash string) (Result, error) {
	if s.Store == nil {
		return Result{}, &AnalysisError{Err: fmt.Errorf("analysis store not configured")}
	}
	if uploadID, ok, err := s.Store.FindByHash(ctx, hash); err != nil {
		metrics.ObserveAnalysis(metrics.OutcomeFailed)
		return Result{}, &AnalysisError{Err: err}
	} else if ok {
		telemetry.Info("analysis deduplicated", telemetry.WithContext(ctx, map[string]any{"upload_id": uploadID, "file_hash": hash}))
		metrics.ObserveAnalysis(metrics.OutcomeDedupe)
		return Result{UploadID: uploadID, DeduplicationHit: true}, nil
	}

	start := time.Now()
	pages, err := s.pages(ctx, path)
	if err != nil {
		metrics.ObserveAnalysis(metrics.OutcomeFailed)
		return Result{}, &ExtractionError{Err: err}
	}
	chunks := s.Segmenter.Segment(extract.BuildSegments(pages))
	telemetry.Info("analysis started", telemetry.WithContext(ctx, map[string]any{
		"file_hash": hash,
		"pages":     len(pages),
		"chunks":    len(chunks),
	}))

	results, err := s.extractAll(ctx, chunks)
	if err != nil {
		metrics.ObserveAnalysis(metrics.OutcomeFailed)
		return Result{}, &AnalysisError{Err: err}
	}

	tasks := []Task{}
	failed := 0
	for _, r := range results {
		if r.Failed {
			failed++
			continue
		}
		tasks = append(tasks, r.Tasks...)
	}

	rec := Record{
		UploadID:                  s.newID(),
		FileHash:                  hash,
		SourceDocumentChunksCount: len(chunks),
		FailedChunksCount:         failed,
		AnalyzedTasks:             tasks,
		Timestamp:                 s.now(),
	}
	stored, created, err := s.Store.Save(ctx, rec)
	switch {
	case err != nil:
		telemetry.Error("analysis not persisted", telemetry.WithContext(ctx, map[string]any{
			"upload_id": rec.UploadID,
			"file_hash": hash,
			"error":     err,
		}))
	case !created:
		telemetry.Info("analysis lost insert race, adopting stored record", map[string]any{
			"upload_id": stored.UploadID,
			"file_hash": hash,
		})
		metrics.ObserveAnalysis(metrics.OutcomeDedupe)
		return Result{UploadID: stored.UploadID, DeduplicationHit: true}, nil
	default:
		s.archive(ctx, path, hash)
	}

	metrics.ObserveAnalysis(metrics.OutcomeFresh)
	metrics.TasksTotal.Add(float64(len(tasks)))
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	telemetry.Info("analysis completed", telemetry.WithContext(ctx, map[string]any{
		"upload_id":     rec.UploadID,
		"file_hash":     hash,
		"chunks":        len(chunks),
		"failed_chunks": failed,
		"tasks":         len(tasks),
		"duration_ms":   time.Since(start).Milliseconds(),
	}))

	return Result{
		UploadID:     rec.UploadID,
		ChunksCount:  len(chunks),
		FailedChunks: failed,
		TasksCount:   len(tasks),
		Tasks:        tasks,
	}, nil
}

// extractAll keeps results in chunk order regardless of concurrency.
func (s *Service) extractAll(ctx context.Context, chunks []segment.Chunk) ([]obligations.Result, error) {
	if s.Extractor == nil {
		return nil, fmt.Errorf("obligation extractor not configured")
	}
	results := make([]obligations.Result, len(chunks))
	if s.Concurrency < 2 {
		for i, chunk := range chunks {
			telemetry.Info("processing chunk", map[string]any{"index": i + 1, "total": len(chunks), "chunk_id": chunk.ID})
			results[i] = s.Extractor.Extract(ctx, chunk)
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(s.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			results[i] = s.Extractor.Extract(ctx, chunk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) archive(ctx context.Context, path, hash string) {
	if s.Archive == nil || strings.HasPrefix(hash, unhashedPrefix) {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		telemetry.Warn("source archive skipped", map[string]any{"file_hash": hash, "error": err})
		return
	}
	defer f.Close()
	key := object.SourceKey(hash)
	if _, err := s.Archive.SaveWithKey(ctx, key, "application/pdf", f); err != nil {
		telemetry.Warn("source archive failed", map[string]any{"file_hash": hash, "key": key, "error": err})
	}
}

// GetTasks returns the tasks of an analysis, or an empty slice for unknown ids.
func (s *Service) GetTasks(ctx context.Context, uploadID string) ([]Task, error) {
	tasks, err := s.Store.GetTasks(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		return []Task{}, nil
	}
	return tasks, nil
}

// GetRecord returns an analysis record or ErrNotFound.
func (s *Service) GetRecord(ctx context.Context, uploadID string) (Record, error) {
	return s.Store.Get(ctx, uploadID)
}

func (s *Service) pages(ctx context.Context, path string) ([]extract.Page, error) {
	if s.Pages != nil {
		return s.Pages(ctx, path)
	}
	return extract.ExtractFile(ctx, path)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
