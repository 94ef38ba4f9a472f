package sales

type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeFailed    Outcome = "failed"
)

// IsValid checks if the outcome is one of the known values
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePending, OutcomeConfirmed, OutcomeFailed:
		return true
	}
	return false
}

func (o Outcome) String() string {
	return string(o)
}

// IsFinal reports whether the outcome can no longer change
func (o Outcome) IsFinal() bool {
	return o != OutcomePending
}
