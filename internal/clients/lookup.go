package clients

import (
	"context"
	"errors"
	"net/http"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/session"
)

type queryAddressRequest struct {
	PropertyNumber string `json:"propertyNumber"`
}

type queryOldPolicyRequest struct {
	PolicyNumber string `json:"policyNumber"`
}

type wireChain struct {
	City         wireLink `json:"city"`
	District     wireLink `json:"district"`
	Town         wireLink `json:"town"`
	Neighborhood wireLink `json:"neighborhood"`
	Street       wireLink `json:"street"`
	Building     wireLink `json:"building"`
	Apartment    wireLink `json:"apartment"`
}

type oldPolicyResponse struct {
	Address        wireChain      `json:"address"`
	Structural     wireStructural `json:"structural"`
	PropertyNumber string         `json:"propertyNumber"`
}

// OldPolicyResult is a normalized old-policy lookup result: the full
// address chain, the structural attributes and the resolved UAVT code.
type OldPolicyResult struct {
	Address        models.AddressChain
	Structural     models.StructuralAttributes
	PropertyNumber string
}

// toChain normalizes a wire chain, validating the mandatory links. A chain
// missing city or district is a lookup mismatch: transport succeeded but the
// response is semantically incomplete.
func (w wireChain) toChain() (models.AddressChain, error) {
	if w.City.Code == "" {
		return models.AddressChain{}, &LookupMismatchError{Missing: "city"}
	}
	if w.District.Code == "" {
		return models.AddressChain{}, &LookupMismatchError{Missing: "district"}
	}
	return models.AddressChain{
		City:         w.City.toLink(),
		District:     w.District.toLink(),
		Town:         w.Town.toLink(),
		Neighborhood: w.Neighborhood.toLink(),
		Street:       w.Street.toLink(),
		Building:     w.Building.toLink(),
		Apartment:    w.Apartment.toLink(),
	}, nil
}

// QueryAddress resolves a 10-digit UAVT code into a full address chain.
// A recognized "not found" maps to ErrLookupNotFound so callers can fall
// back to manual entry.
func (p *Platform) QueryAddress(ctx context.Context, tok session.TokenReader, propertyNumber string) (models.AddressChain, error) {
	var wire wireChain
	err := p.do(ctx, http.MethodPost, "/lookup/query-address", tok, queryAddressRequest{PropertyNumber: propertyNumber}, &wire)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
			return models.AddressChain{}, ErrLookupNotFound
		}
		return models.AddressChain{}, err
	}
	return wire.toChain()
}

// QueryOldPolicy resolves an 8-digit old policy number into the insured
// property's address chain and structural attributes.
func (p *Platform) QueryOldPolicy(ctx context.Context, tok session.TokenReader, policyNumber string) (*OldPolicyResult, error) {
	var wire oldPolicyResponse
	err := p.do(ctx, http.MethodPost, "/lookup/query-old-policy", tok, queryOldPolicyRequest{PolicyNumber: policyNumber}, &wire)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
			return nil, ErrLookupNotFound
		}
		return nil, err
	}

	chain, err := wire.Address.toChain()
	if err != nil {
		return nil, err
	}
	return &OldPolicyResult{
		Address:        chain,
		Structural:     wire.Structural.toStructural(),
		PropertyNumber: wire.PropertyNumber,
	}, nil
}
