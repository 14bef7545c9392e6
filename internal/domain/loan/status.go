package loan

import "fmt"

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusOpen      Status = "OPEN"
	StatusOffered   Status = "OFFERED"
	StatusAccepted  Status = "ACCEPTED"
	StatusFunded    Status = "FUNDED"
	StatusCompleted Status = "COMPLETED"
	StatusDefaulted Status = "DEFAULTED"
)

// transitions is the whole state machine. OFFERED -> OPEN covers both an
// explicit reopen and the last pending offer going away.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusOpen},
	StatusOpen:      {StatusOffered},
	StatusOffered:   {StatusAccepted, StatusOpen},
	StatusAccepted:  {StatusFunded},
	StatusFunded:    {StatusCompleted, StatusDefaulted},
	StatusCompleted: nil,
	StatusDefaulted: nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool { return s.Valid() && len(transitions[s]) == 0 }

// AwaitingLender reports whether lenders may still bid on a loan in s.
func (s Status) AwaitingLender() bool { return s == StatusOpen || s == StatusOffered }

func illegal(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
