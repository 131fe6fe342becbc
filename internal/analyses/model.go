package analyses

import (
	"time"

	"compliance-backend/internal/obligations"
)

// Task is a decorated obligation stored with an analysis.
type Task = obligations.Task

// Record is the durable result of one document's analysis. It is created
// once per distinct file hash and never mutated.
type Record struct {
	UploadID                  string    `json:"app_id"`
	FileHash                  string    `json:"file_hash"`
	SourceDocumentChunksCount int       `json:"source_document_chunks_count"`
	FailedChunksCount         int       `json:"failed_chunks_count"`
	AnalyzedTasks             []Task    `json:"analyzed_tasks"`
	Timestamp                 time.Time `json:"timestamp"`
}

// Result is what AnalyzeDocument reports. On a deduplication hit only
// UploadID and DeduplicationHit are set; tasks are fetched with GetTasks.
type Result struct {
	UploadID         string `json:"upload_id"`
	DeduplicationHit bool   `json:"deduplication_hit"`
	ChunksCount      int    `json:"chunks_count"`
	FailedChunks     int    `json:"failed_chunks"`
	TasksCount       int    `json:"tasks_count"`
	Tasks            []Task `json:"tasks,omitempty"`
}
