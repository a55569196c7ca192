package clients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/session"
)

// ProposalRequest is the proposal creation body. Type discriminates the
// insurance line on the platform side.
type ProposalRequest struct {
	Type              string `json:"$type"`
	PropertyID        string `json:"propertyId"`
	InsurerCustomerID string `json:"insurerCustomerId"`
	InsuredCustomerID string `json:"insuredCustomerId"`
	Channel           string `json:"channel"`
}

type createProposalResponse struct {
	ProposalID string `json:"proposalId"`
}

type wireQuote struct {
	ID        string `json:"id"`
	InsurerID string `json:"insurerId"`
	ProductID string `json:"productId"`
	State     string `json:"state"`
	Premiums  []struct {
		InstallmentCount int     `json:"installmentCount"`
		NetPremium       float64 `json:"netPremium"`
		GrossPremium     float64 `json:"grossPremium"`
	} `json:"premiums"`
}

type proposalResponse struct {
	Products []wireQuote `json:"products"`
}

// CreateProposal submits a pricing request and returns the proposal id.
// Failures carry the platform's first structured message; there is no
// automatic retry.
func (p *Platform) CreateProposal(ctx context.Context, tok session.TokenReader, req ProposalRequest) (string, error) {
	var resp createProposalResponse
	if err := p.do(ctx, http.MethodPost, "/proposals", tok, req, &resp); err != nil {
		return "", err
	}
	return resp.ProposalID, nil
}

// FetchQuotes reads the proposal's current per-insurer quotes.
func (p *Platform) FetchQuotes(ctx context.Context, tok session.TokenReader, proposalID string) ([]models.Quote, error) {
	var resp proposalResponse
	if err := p.do(ctx, http.MethodGet, "/proposals/"+url.PathEscape(proposalID), tok, nil, &resp); err != nil {
		return nil, err
	}

	quotes := make([]models.Quote, 0, len(resp.Products))
	for _, w := range resp.Products {
		q := models.Quote{
			ID:        w.ID,
			InsurerID: w.InsurerID,
			ProductID: w.ProductID,
			State:     models.QuoteState(w.State),
		}
		for _, premium := range w.Premiums {
			q.Premiums = append(q.Premiums, models.PremiumOption{
				InstallmentCount: premium.InstallmentCount,
				NetPremium:       premium.NetPremium,
				GrossPremium:     premium.GrossPremium,
			})
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}
