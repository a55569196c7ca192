package clients

import (
	"context"
	"errors"
	"net/http"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/session"
)

// Profile is the customer profile as the platform returns it.
type Profile struct {
	FullName     string `json:"fullName"`
	Title        string `json:"title"`
	CityCode     string `json:"cityCode"`
	DistrictCode string `json:"districtCode"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
}

// IndividualProfileUpdate is the update payload for individual customers.
type IndividualProfileUpdate struct {
	FullName       string `json:"fullName"`
	IdentityNumber string `json:"identityNumber"`
	BirthDate      string `json:"birthDate"`
}

// CompanyProfileUpdate is the update payload for company customers.
type CompanyProfileUpdate struct {
	Title     string `json:"title"`
	TaxNumber string `json:"taxNumber"`
}

// GetProfile fetches the live customer profile. A successful response with
// no body returns (nil, nil): the caller treats that like an incomplete
// profile, not a failure.
func (p *Platform) GetProfile(ctx context.Context, tok session.TokenReader) (*Profile, error) {
	var profile Profile
	err := p.do(ctx, http.MethodGet, "/customers/profile", tok, nil, &profile)
	if errors.Is(err, errEmptyBody) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile writes the missing profile fields. The payload shape
// branches on customer kind; the caller passes exactly one of the two
// update structs.
func (p *Platform) UpdateProfile(ctx context.Context, tok session.TokenReader, kind models.CustomerKind, payload interface{}) error {
	switch kind {
	case models.KindIndividual:
		if _, ok := payload.(IndividualProfileUpdate); !ok {
			return errors.New("individual profile update requires IndividualProfileUpdate payload")
		}
	case models.KindCompany:
		if _, ok := payload.(CompanyProfileUpdate); !ok {
			return errors.New("company profile update requires CompanyProfileUpdate payload")
		}
	default:
		return errors.New("unknown customer kind")
	}

	return p.do(ctx, http.MethodPut, "/customers/profile", tok, payload, nil)
}
