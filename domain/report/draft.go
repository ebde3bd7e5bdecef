package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Draft is the structured payload a model returns before ownership is assigned.
type Draft struct {
	ExecutiveSummary string    `json:"executiveSummary"`
	Findings         []Finding `json:"findings"`
}

// ParseDraft decodes model output text into a Draft.
// Markdown code fences around the JSON are tolerated.
func ParseDraft(text string) (Draft, error) {
	body := strings.TrimSpace(text)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}

	var d Draft
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return Draft{}, fmt.Errorf("%w: decode model output: %v", ErrInvalidReport, err)
	}
	return d, nil
}

// Finalize stamps a Draft with identity and ownership and normalizes it.
func Finalize(d Draft, id, owner, role string, timestampMillis int64) Report {
	return Normalize(Report{
		ID:               id,
		OwnerLogin:       owner,
		Timestamp:        timestampMillis,
		Role:             role,
		ExecutiveSummary: d.ExecutiveSummary,
		Findings:         d.Findings,
	})
}
