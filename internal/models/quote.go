package models

import "time"

// QuoteState is the server-side lifecycle of one insurer's offer. A quote
// is created Waiting and transitions once to Active or Failed, never back.
type QuoteState string

const (
	QuoteWaiting QuoteState = "WAITING"
	QuoteActive  QuoteState = "ACTIVE"
	QuoteFailed  QuoteState = "FAILED"
)

// Terminal reports whether the state can no longer change.
func (s QuoteState) Terminal() bool {
	return s == QuoteActive || s == QuoteFailed
}

// PremiumOption is one entry of an offer's premium schedule.
type PremiumOption struct {
	InstallmentCount int     `json:"installmentCount"`
	NetPremium       float64 `json:"netPremium"`
	GrossPremium     float64 `json:"grossPremium"`
}

// Quote is one insurer-product's response to a proposal.
// SelectedInstallments is client-local and mutable any number of times
// before purchase; everything else mirrors the platform.
type Quote struct {
	ID                   string          `json:"id"`
	InsurerID            string          `json:"insurerId"`
	InsurerName          string          `json:"insurerName"`
	InsurerLogo          string          `json:"insurerLogo"`
	ProductID            string          `json:"productId"`
	State                QuoteState      `json:"state"`
	Premiums             []PremiumOption `json:"premiums"`
	SelectedInstallments int             `json:"selectedInstallments"`
}

// SelectedPremium returns the schedule entry matching the selected
// installment count, falling back to the first entry.
func (q Quote) SelectedPremium() (PremiumOption, bool) {
	if len(q.Premiums) == 0 {
		return PremiumOption{}, false
	}
	for _, p := range q.Premiums {
		if p.InstallmentCount == q.SelectedInstallments {
			return p, true
		}
	}
	return q.Premiums[0], true
}

// Insurer is one entry of the insurer directory.
type Insurer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Logo    string `json:"logo"`
	Enabled bool   `json:"enabled"`
}

// Proposal identifies one pricing request submitted to the platform.
// Proposals are immutable; re-running the funnel creates a new one.
type Proposal struct {
	ID                string `json:"id"`
	PropertyID        string `json:"propertyId"`
	InsurerCustomerID string `json:"insurerCustomerId"`
	InsuredCustomerID string `json:"insuredCustomerId"`
	Channel           string `json:"channel"`
}

// PollingSession tracks one quote-comparison view. It is discarded on
// navigation or completion; LastProgress only ever grows.
type PollingSession struct {
	ProposalID   string
	StartedAt    time.Time
	Budget       time.Duration
	LastProgress int
}
