package billing

// PeriodStatus represents the status of a billing period
type PeriodStatus string

const (
	PeriodStatusDraft     PeriodStatus = "DRAFT"
	PeriodStatusPending   PeriodStatus = "PENDING"
	PeriodStatusApproved  PeriodStatus = "APPROVED"
	PeriodStatusInvoiced  PeriodStatus = "INVOICED"
	PeriodStatusCancelled PeriodStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PeriodStatus
func (s PeriodStatus) IsValid() bool {
	switch s {
	case PeriodStatusDraft, PeriodStatusPending, PeriodStatusApproved,
		PeriodStatusInvoiced, PeriodStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PeriodStatus
func (s PeriodStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s PeriodStatus) CanTransitionTo(target PeriodStatus) bool {
	switch s {
	case PeriodStatusDraft:
		return target == PeriodStatusPending || target == PeriodStatusCancelled
	case PeriodStatusPending:
		return target == PeriodStatusApproved || target == PeriodStatusCancelled
	case PeriodStatusApproved:
		return target == PeriodStatusInvoiced || target == PeriodStatusCancelled
	case PeriodStatusInvoiced, PeriodStatusCancelled:
		return false
	}
	return false
}

// IsTerminal returns true for INVOICED and CANCELLED
func (s PeriodStatus) IsTerminal() bool {
	return s == PeriodStatusInvoiced || s == PeriodStatusCancelled
}

// CanEditLines returns true while the period is still a draft
func (s PeriodStatus) CanEditLines() bool {
	return s == PeriodStatusDraft
}

// CanCollect returns true when client payments may be applied
func (s PeriodStatus) CanCollect() bool {
	return s == PeriodStatusApproved || s == PeriodStatusInvoiced
}

// CountsTowardCumulative reports whether lines of a period in this status
// consume budgeted quantity
func (s PeriodStatus) CountsTowardCumulative() bool {
	return s != PeriodStatusCancelled
}
