package domain

// SectionTotals holds the three totals the remote page computes
// independently for the budget header, the line items and the payee rows.
type SectionTotals struct {
	Budget int64 `json:"budget"`
	Items  int64 `json:"items"`
	Payee  int64 `json:"payee"`
}

// Consistency is the reconciler's verdict over the three section totals.
type Consistency int

const (
	// Inconsistent means the totals disagree and submission must be withheld.
	Inconsistent Consistency = iota
	// ConsistentWithWarning means budget and items agree but the payee total
	// does not; the remote system's payee-total propagation is known to be
	// unreliable, so submission may proceed with a recorded warning.
	ConsistentWithWarning
	// Consistent means all three totals are equal and positive.
	Consistent
)

// ReconciliationResult is recomputed on every attempt and never persisted.
type ReconciliationResult struct {
	Totals      SectionTotals `json:"totals"`
	Verdict     Consistency   `json:"verdict"`
	Discrepancy int64         `json:"discrepancy,omitempty"`
}

// Proceed reports whether the record may be submitted.
func (r ReconciliationResult) Proceed() bool { return r.Verdict != Inconsistent }

// FieldCheck records the re-read value of one required field after a fill
// attempt. The remote system silently drops rows with empty required
// fields, so an empty re-read means the section's data is lost.
type FieldCheck struct {
	Field string `json:"field"`
	Value string `json:"value"`
	OK    bool   `json:"ok"`
}

// OutcomeReport is the sole externally visible result of one orchestration
// run.
type OutcomeReport struct {
	Saved          bool     `json:"saved"`
	RecordID       string   `json:"record_id,omitempty"`
	VerifiedAmount int64    `json:"verified_amount,omitempty"`
	Messages       []string `json:"messages,omitempty"` // captured remote prompts and warnings
	Verification   string   `json:"verification,omitempty"`
	// VerificationMismatch is set when the remote reported success but the
	// independent list re-check disagreed. Higher severity than a plain
	// failure: it implies undetected data loss.
	VerificationMismatch bool     `json:"verification_mismatch,omitempty"`
	Artifacts            []string `json:"artifacts,omitempty"`
}

// AddMessage appends a captured remote message, ignoring empty strings.
func (o *OutcomeReport) AddMessage(msg string) {
	if msg != "" {
		o.Messages = append(o.Messages, msg)
	}
}
