// Package report provides the compliance report value types and their invariants.
// All functions are pure - no side effects.
package report

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidReport wraps every validation failure.
	ErrInvalidReport = errors.New("invalid compliance report")

	// ErrInvalidInput is returned when audit input documents are missing.
	ErrInvalidInput = errors.New("invalid audit input")
)

// Flag is the compliance verdict for one requirement.
type Flag string

const (
	FlagCompliant    Flag = "COMPLIANT"
	FlagPartial      Flag = "PARTIAL"
	FlagNonCompliant Flag = "NON-COMPLIANT"
)

// Category groups requirements for display and filtering.
type Category string

const (
	CategoryTechnical      Category = "TECHNICAL"
	CategoryCommercial     Category = "COMMERCIAL"
	CategoryLegal          Category = "LEGAL"
	CategoryFinancial      Category = "FINANCIAL"
	CategoryTimeline       Category = "TIMELINE"
	CategoryAdministrative Category = "ADMINISTRATIVE"
	CategoryOther          Category = "OTHER"
)

var categories = map[Category]bool{
	CategoryTechnical:      true,
	CategoryCommercial:     true,
	CategoryLegal:          true,
	CategoryFinancial:      true,
	CategoryTimeline:       true,
	CategoryAdministrative: true,
	CategoryOther:          true,
}

// Allowed compliance scores.
const (
	ScoreNonCompliant = 0.0
	ScorePartial      = 0.5
	ScoreCompliant    = 1.0
)

// Finding is one scored requirement (value type).
type Finding struct {
	RequirementText    string   `json:"requirementText"`
	ComplianceScore    float64  `json:"complianceScore"`
	BidResponseSummary string   `json:"bidResponseSummary"`
	Flag               Flag     `json:"flag"`
	Category           Category `json:"category"`
	NegotiationStance  *string  `json:"negotiationStance,omitempty"`
}

// Report is one completed audit owned by a single user (immutable value type).
type Report struct {
	ID               string    `json:"id"`
	OwnerLogin       string    `json:"ownerLogin"`
	Timestamp        int64     `json:"timestamp"` // unix milliseconds
	Role             string    `json:"role"`      // usage counter consumed by this audit
	ExecutiveSummary string    `json:"executiveSummary"`
	Findings         []Finding `json:"findings"`
}

// FlagForScore maps a score to its flag. ok is false for scores outside the allowed set.
func FlagForScore(score float64) (Flag, bool) {
	switch score {
	case ScoreCompliant:
		return FlagCompliant, true
	case ScorePartial:
		return FlagPartial, true
	case ScoreNonCompliant:
		return FlagNonCompliant, true
	}
	return "", false
}

// Normalize fills gaps a model response commonly leaves: missing flags are
// derived from the score, categories are upper-cased and unknown ones become OTHER,
// blank stances are dropped. It never changes scores.
func Normalize(r Report) Report {
	out := r
	out.ExecutiveSummary = strings.TrimSpace(r.ExecutiveSummary)
	out.Findings = make([]Finding, len(r.Findings))
	for i, f := range r.Findings {
		if f.Flag == "" {
			if flag, ok := FlagForScore(f.ComplianceScore); ok {
				f.Flag = flag
			}
		}
		f.Flag = Flag(strings.ToUpper(strings.TrimSpace(string(f.Flag))))

		cat := Category(strings.ToUpper(strings.TrimSpace(string(f.Category))))
		if !categories[cat] {
			cat = CategoryOther
		}
		f.Category = cat

		if f.NegotiationStance != nil && strings.TrimSpace(*f.NegotiationStance) == "" {
			f.NegotiationStance = nil
		}
		out.Findings[i] = f
	}
	return out
}

// Validate checks the invariants every stored report must satisfy.
func Validate(r Report) error {
	if strings.TrimSpace(r.OwnerLogin) == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidReport)
	}
	if r.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidReport)
	}
	for i, f := range r.Findings {
		if err := validateFinding(f); err != nil {
			return fmt.Errorf("%w: finding %d: %v", ErrInvalidReport, i, err)
		}
	}
	return nil
}

func validateFinding(f Finding) error {
	if strings.TrimSpace(f.RequirementText) == "" {
		return errors.New("requirement text is empty")
	}
	want, ok := FlagForScore(f.ComplianceScore)
	if !ok {
		return fmt.Errorf("score %v not in {0, 0.5, 1}", f.ComplianceScore)
	}
	if f.Flag != want {
		return fmt.Errorf("flag %q does not match score %v", f.Flag, f.ComplianceScore)
	}
	if !categories[f.Category] {
		return fmt.Errorf("unknown category %q", f.Category)
	}
	hasStance := f.NegotiationStance != nil
	if f.ComplianceScore < ScoreCompliant && !hasStance {
		return errors.New("negotiation stance required below full compliance")
	}
	if f.ComplianceScore == ScoreCompliant && hasStance {
		return errors.New("negotiation stance must be absent for compliant findings")
	}
	return nil
}

// Score returns the mean compliance score, or 0 for a report without findings.
func (r Report) Score() float64 {
	if len(r.Findings) == 0 {
		return 0
	}
	var total float64
	for _, f := range r.Findings {
		total += f.ComplianceScore
	}
	return total / float64(len(r.Findings))
}

// CountByFlag tallies findings per flag.
func (r Report) CountByFlag() map[Flag]int {
	counts := make(map[Flag]int, 3)
	for _, f := range r.Findings {
		counts[f.Flag]++
	}
	return counts
}
