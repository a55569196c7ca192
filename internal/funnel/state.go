package funnel

// State is the wizard position of one funnel session.
type State string

const (
	// StateIdentity collects applicant identity and runs the login
	// handshake. Every session starts here.
	StateIdentity State = "IDENTITY"
	// StateAdditionalInfo is reachable only post-authentication, when the
	// live profile is missing or incomplete.
	StateAdditionalInfo State = "ADDITIONAL_INFO_REQUIRED"
	// StatePropertyInfo collects the property acquisition data.
	StatePropertyInfo State = "PROPERTY_INFO"
	// StateQuotes owns the quote aggregation view.
	StateQuotes State = "QUOTES"
	// StatePurchase is the terminal handoff; purchase itself is external.
	StatePurchase State = "PURCHASE"
)
