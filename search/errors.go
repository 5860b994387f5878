package search

import "errors"

// Reason identifies which precondition stopped a search.
type Reason string

const (
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonNoQuota         Reason = "no_quota"
	ReasonNotConfigured   Reason = "not_configured"
	ReasonNoPins          Reason = "no_pins"
	ReasonInvalidPin      Reason = "invalid_pin"
	ReasonNoQuery         Reason = "no_query"
)

var messages = map[Reason]string{
	ReasonUnauthenticated: "Please sign in to perform searches.",
	ReasonNoQuota:         "No searches remaining. Please purchase more searches.",
	ReasonNotConfigured:   "API key not loaded. Please refresh the page and try again.",
	ReasonNoPins:          "Please drop at least one pin on the map first.",
	ReasonInvalidPin:      "One of the pins is outside the map or has an invalid radius.",
	ReasonNoQuery:         "Please enter a search term (e.g., restaurants, plumbers).",
}

const (
	// FailureMessage is shown when a business request fails mid-batch.
	FailureMessage = "Failed to fetch businesses. Please try again."
	// QuotaUnavailableMessage is shown when the quota record cannot be read.
	QuotaUnavailableMessage = "Could not load your remaining searches. Please try again."
)

var (
	// ErrSearchFailed wraps any business API failure during a batch.
	ErrSearchFailed = errors.New("search failed")
	// ErrChargeFailed is returned, with the fetched results, when the quota
	// could not be decremented after a successful batch.
	ErrChargeFailed = errors.New("quota charge failed")
	// ErrQuotaUnavailable wraps a failed quota read during the checks.
	ErrQuotaUnavailable = errors.New("quota unavailable")
)

// PreconditionError reports a check that failed before any request was made.
type PreconditionError struct {
	Reason Reason
}

func (e *PreconditionError) Error() string {
	return "search precondition failed: " + string(e.Reason)
}

// Message is the user-facing text for the failed check.
func (e *PreconditionError) Message() string {
	return messages[e.Reason]
}

func precondition(r Reason) error {
	return &PreconditionError{Reason: r}
}
