package llm

import (
	_ "embed"
	"strings"
)

//go:embed prompts/system.txt
var systemPrompt string

// SystemPrompt is the analyst role instruction sent with every chunk.
var SystemPrompt = strings.TrimSpace(systemPrompt)

// UserPrompt wraps a chunk of document text in the extraction request.
func UserPrompt(chunk string) string {
	return "Analyze the following section from a regulatory document and extract all obligations:\n\n---\n" + chunk + "\n---"
}

// Obligation field names, in schema order.
const (
	FieldSummary          = "summary"
	FieldDepartment       = "department"
	FieldRiskScore        = "risk_score"
	FieldRemediationSteps = "remediation_steps"
	FieldXAIRationale     = "xai_rationale"
)

// RequiredFields lists every field an obligation must carry.
var RequiredFields = []string{
	FieldSummary,
	FieldDepartment,
	FieldRiskScore,
	FieldRemediationSteps,
	FieldXAIRationale,
}

// Schema is a provider-neutral response schema in the Gemini REST shape.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Schema types as Gemini receives them. Container types are upper-case and
// leaf properties are lower-case; the API matches them case-insensitively.
const (
	TypeArray  = "ARRAY"
	TypeObject = "OBJECT"
	TypeString = "string"
)

var fieldDescriptions = map[string]string{
	FieldSummary:          "A concise, actionable summary of the compliance requirement (e.g., 'Ensure all data is encrypted with 256-bit AES').",
	FieldDepartment:       "The primary department responsible for execution (e.g., 'IT', 'Legal', 'Operations', 'Product').",
	FieldRiskScore:        "The estimated risk level (High, Medium, Low) associated with non-compliance.",
	FieldRemediationSteps: "A brief, suggested action plan to achieve compliance.",
	FieldXAIRationale:     "A brief, direct sentence from the input text that justifies this obligation and its risk score (XAI - Explainable AI).",
}

// ObligationSchema returns the array-of-obligations response schema. Each
// call returns a fresh copy.
func ObligationSchema() *Schema {
	props := make(map[string]*Schema, len(RequiredFields))
	for _, name := range RequiredFields {
		props[name] = &Schema{Type: TypeString, Description: fieldDescriptions[name]}
	}
	return &Schema{
		Type: TypeArray,
		Items: &Schema{
			Type:       TypeObject,
			Properties: props,
			Required:   append([]string(nil), RequiredFields...),
		},
	}
}
