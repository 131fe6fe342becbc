// Package obligations turns chunks of regulatory text into audited compliance
// tasks by asking an LLM for schema-constrained obligations.
package obligations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"compliance-backend/internal/llm"
	"compliance-backend/internal/retry"
	"compliance-backend/internal/segment"
	"compliance-backend/internal/shared/metrics"
	"compliance-backend/internal/shared/telemetry"
)

const rawLogLimit = 500

// Extractor runs one chunk through the LLM under a retry policy.
type Extractor struct {
	LLM    llm.Client
	Policy retry.Policy
	Now    func() time.Time
	NewID  func() string
}

// Result is the outcome of one chunk. Failed is set when every attempt was
// spent without a usable answer; Tasks is then empty.
type Result struct {
	Tasks    []Task
	Attempts int
	Failed   bool
	Err      error
}

// NewExtractor builds an Extractor with the default policy, retrying only
// transient LLM failures and schema violations.
func NewExtractor(client llm.Client, policy retry.Policy) *Extractor {
	if policy.Retryable == nil {
		policy.Retryable = llm.IsRetryable
	}
	return &Extractor{LLM: client, Policy: policy}
}

// Extract never returns an error past its boundary; failures are reported in
// the Result.
func (e *Extractor) Extract(ctx context.Context, chunk segment.Chunk) Result {
	if e.LLM == nil {
		return Result{Failed: true, Err: errors.New("llm client not configured")}
	}
	now := e.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := e.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	policy := e.Policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		telemetry.Warn("obligation extraction retry", map[string]any{
			"chunk_id": chunk.ID,
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"error":    err,
		})
	}

	var found []Obligation
	outcome := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		raw, err := e.LLM.GenerateObligations(ctx, llm.ExtractInput{ChunkText: chunk.Content})
		if err != nil {
			observeAttempt(err)
			return err
		}
		parsed, err := ParseObligations(raw)
		if err != nil {
			telemetry.Warn("obligation response not parseable", map[string]any{
				"chunk_id": chunk.ID,
				"attempt":  attempt,
				"error":    err,
				"raw":      truncate(raw, rawLogLimit),
			})
			observeAttempt(err)
			return err
		}
		metrics.ObserveLLMAttempt("success")
		found = parsed
		return nil
	})

	if outcome.Exhausted() {
		telemetry.Error("obligation extraction failed", map[string]any{
			"chunk_id": chunk.ID,
			"attempts": outcome.Attempts,
			"error":    outcome.Err,
		})
		metrics.ObserveChunk(metrics.ChunkFailed)
		return Result{Attempts: outcome.Attempts, Failed: true, Err: outcome.Err}
	}

	ts := now()
	tasks := make([]Task, 0, len(found))
	for _, ob := range found {
		tasks = append(tasks, Task{
			Obligation:        ob,
			ObligationID:      newID(),
			OriginalChunkID:   chunk.ID,
			SourcePage:        chunk.SourcePageStart,
			AnalysisTimestamp: ts,
		})
	}
	if len(tasks) == 0 {
		metrics.ObserveChunk(metrics.ChunkEmpty)
	} else {
		metrics.ObserveChunk(metrics.ChunkOK)
	}
	return Result{Tasks: tasks, Attempts: outcome.Attempts}
}

func observeAttempt(err error) {
	if llm.IsRetryable(err) {
		metrics.ObserveLLMAttempt("retryable")
		return
	}
	metrics.ObserveLLMAttempt("permanent")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && cut < len(s) && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut]
}
