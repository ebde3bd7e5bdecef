package report

import (
	"fmt"
	"strings"

	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
)

// Input is the document pair an audit compares.
type Input struct {
	RFQ string `json:"rfq"` // request-for-quote text issued by the buyer
	Bid string `json:"bid"` // vendor bid response text
}

// Validate reports whether both documents are present.
func (in Input) Validate() error {
	if strings.TrimSpace(in.RFQ) == "" {
		return fmt.Errorf("%w: rfq text is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Bid) == "" {
		return fmt.Errorf("%w: bid text is required", ErrInvalidInput)
	}
	return nil
}

const promptTemplate = `You are a procurement compliance auditor reviewing a vendor bid against a request for quote (RFQ).
Audience: %s.

Extract every distinct requirement from the RFQ and score how the bid addresses it.
Respond with a single JSON object and nothing else, shaped as:
{
  "executiveSummary": string,
  "findings": [
    {
      "requirementText": string,
      "complianceScore": 1 | 0.5 | 0,
      "bidResponseSummary": string,
      "flag": "COMPLIANT" | "PARTIAL" | "NON-COMPLIANT",
      "category": %s,
      "negotiationStance": string
    }
  ]
}
Rules:
- complianceScore is 1 when fully met, 0.5 when partially met, 0 when unmet or not addressed.
- flag must agree with complianceScore.
- negotiationStance is required when complianceScore is below 1 and must be omitted otherwise.

--- RFQ ---
%s

--- BID RESPONSE ---
%s
`

// Prompt renders the audit instruction for the model.
// This is a PURE function.
func Prompt(role string, in Input) string {
	audience := "the buyer evaluating incoming bids"
	if role == string(usage.CounterBidder) {
		audience = "a vendor checking its own bid before submission"
	}

	cats := make([]string, 0, len(categories))
	for _, c := range []Category{
		CategoryTechnical, CategoryCommercial, CategoryLegal, CategoryFinancial,
		CategoryTimeline, CategoryAdministrative, CategoryOther,
	} {
		cats = append(cats, `"`+string(c)+`"`)
	}

	return fmt.Sprintf(promptTemplate, audience, strings.Join(cats, " | "),
		strings.TrimSpace(in.RFQ), strings.TrimSpace(in.Bid))
}
