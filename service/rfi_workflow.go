package services

// RFI workflow states. The set is closed: anything else is rejected at the
// input boundary, never compared deep inside business logic.
const (
	StatusOpen     = "open"
	StatusInReview = "in_review"
	StatusAnswered = "answered"
	StatusClosed   = "closed"
	StatusVoid     = "void"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// rfiTransitions is the full transition table. closed and void both reopen:
// field conditions change after close-out, so there is no terminal state.
var rfiTransitions = map[string][]string{
	StatusOpen:     {StatusInReview, StatusAnswered, StatusVoid},
	StatusInReview: {StatusAnswered, StatusOpen, StatusVoid},
	StatusAnswered: {StatusClosed, StatusOpen, StatusVoid},
	StatusClosed:   {StatusOpen},
	StatusVoid:     {StatusOpen},
}

var rfiPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// IsValidRfiStatus reports whether s names a workflow state.
func IsValidRfiStatus(s string) bool {
	_, ok := rfiTransitions[s]
	return ok
}

func IsValidRfiPriority(p string) bool {
	for _, v := range rfiPriorities {
		if v == p {
			return true
		}
	}
	return false
}

// IsTransitionAllowed reports whether from -> to is a legal edge. The one
// sanctioned bypass, official response forcing answered, does not go through
// this check.
func IsTransitionAllowed(from, to string) bool {
	for _, next := range rfiTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the legal next states for a given state. Unknown
// states return nil.
func AllowedTransitions(from string) []string {
	next, ok := rfiTransitions[from]
	if !ok {
		return nil
	}
	out := make([]string, len(next))
	copy(out, next)
	return out
}
