package obligations

import "time"

// Obligation is one compliance requirement as returned by the model.
type Obligation struct {
	Summary          string `json:"summary"`
	Department       string `json:"department"`
	RiskScore        string `json:"risk_score"`
	RemediationSteps string `json:"remediation_steps"`
	XAIRationale     string `json:"xai_rationale"`
}

// Task is an Obligation decorated with provenance for auditing.
type Task struct {
	Obligation
	ObligationID      string    `json:"obligation_id"`
	OriginalChunkID   string    `json:"original_chunk_id"`
	SourcePage        string    `json:"source_page"`
	AnalysisTimestamp time.Time `json:"analysis_timestamp"`
}
