// Package engagement models the customer engagement timeline: the fixed
// ordered steps a lead moves through, the status events recorded for them and
// the display-ready timeline derived from those events.
package engagement

import (
	"encoding/json"
	"fmt"
)

// Step identifies one stage of customer engagement.
type Step string

const (
	StepInterestShown     Step = "interest_shown"
	StepFirstContact      Step = "first_contact"
	StepVisitScheduled    Step = "visit_scheduled"
	StepNegotiation       Step = "negotiation"
	StepDocumentAnalysis  Step = "document_analysis"
	StepApproval          Step = "approval"
	StepContractSignature Step = "contract_signature"
)

var orderedSteps = []Step{
	StepInterestShown,
	StepFirstContact,
	StepVisitScheduled,
	StepNegotiation,
	StepDocumentAnalysis,
	StepApproval,
	StepContractSignature,
}

// AllSteps returns the steps in business order. The returned slice is a copy.
func AllSteps() []Step {
	out := make([]Step, len(orderedSteps))
	copy(out, orderedSteps)
	return out
}

// Index returns the position of the step in the enumeration, or -1.
func (s Step) Index() int {
	for i, step := range orderedSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// IsValid returns true if the step belongs to the enumeration.
func (s Step) IsValid() bool {
	return s.Index() >= 0
}

func (s Step) String() string {
	return string(s)
}

// DisplayName returns the built-in label. Unknown steps render as their id.
func (s Step) DisplayName() string {
	switch s {
	case StepInterestShown:
		return "Interest Shown"
	case StepFirstContact:
		return "First Contact"
	case StepVisitScheduled:
		return "Visit Scheduled"
	case StepNegotiation:
		return "Negotiation"
	case StepDocumentAnalysis:
		return "Document Analysis"
	case StepApproval:
		return "Approval"
	case StepContractSignature:
		return "Contract Signature"
	default:
		return string(s)
	}
}

// ParseStep parses a string into a known Step.
func ParseStep(s string) (Step, error) {
	step := Step(s)
	if !step.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownStep, s)
	}
	return step, nil
}

// UnmarshalJSON accepts any string. Step values coming from the status API
// are not validated so that unexpected ids still show up on the timeline.
func (s *Step) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = Step(str)
	return nil
}

// Labels maps step ids to display labels, usually loaded from the
// available-steps catalog.
type Labels map[Step]string

// Label returns the catalog label, falling back to the built-in name.
func (l Labels) Label(s Step) string {
	if l != nil {
		if label, ok := l[s]; ok && label != "" {
			return label
		}
	}
	return s.DisplayName()
}
