package obligations

import (
	"encoding/json"
	"fmt"
	"strings"

	"compliance-backend/internal/llm"
)

// SchemaParseError marks a model answer that is not valid JSON or whose
// records break the obligation contract. It is retryable.
type SchemaParseError struct {
	Reason string
	Raw    string
}

func (e *SchemaParseError) Error() string {
	return "obligation schema parse: " + e.Reason
}

// Retryable reports true; a fresh sample may conform.
func (e *SchemaParseError) Retryable() bool { return true }

// ParseObligations decodes a model answer. Valid JSON that is not a list, and
// the empty list, both yield no obligations. Every list item must be an
// object with all required fields present as strings.
func ParseObligations(raw string) ([]Obligation, error) {
	trimmed := strings.TrimSpace(raw)
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return nil, &SchemaParseError{Reason: err.Error(), Raw: raw}
	}
	items, ok := decoded.([]any)
	if !ok || len(items) == 0 {
		return nil, nil
	}

	out := make([]Obligation, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, &SchemaParseError{Reason: fmt.Sprintf("item %d is not an object", i), Raw: raw}
		}
		values := make(map[string]string, len(llm.RequiredFields))
		for _, name := range llm.RequiredFields {
			v, present := fields[name]
			if !present {
				return nil, &SchemaParseError{Reason: fmt.Sprintf("item %d missing %q", i, name), Raw: raw}
			}
			s, isString := v.(string)
			if !isString {
				return nil, &SchemaParseError{Reason: fmt.Sprintf("item %d field %q is not a string", i, name), Raw: raw}
			}
			values[name] = s
		}
		out = append(out, Obligation{
			Summary:          values[llm.FieldSummary],
			Department:       values[llm.FieldDepartment],
			RiskScore:        values[llm.FieldRiskScore],
			RemediationSteps: values[llm.FieldRemediationSteps],
			XAIRationale:     values[llm.FieldXAIRationale],
		})
	}
	return out, nil
}
