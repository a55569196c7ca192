package clients

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/session"
)

// FloorCountBounds is the backend's serialized floor-count range. The
// client-side bucket tag never crosses the wire.
type FloorCountBounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// StructuralPayload is the backend form of the structural attributes.
type StructuralPayload struct {
	StructureMaterial string           `json:"structureMaterial"`
	ConstructionYear  int              `json:"constructionYear"`
	FloorCount        FloorCountBounds `json:"floorCount"`
	FloorNumber       int              `json:"floorNumber"`
	AreaSqm           int              `json:"areaSqm"`
	UsageType         string           `json:"usageType"`
	DamageStatus      string           `json:"damageStatus"`
	OwnershipType     string           `json:"ownershipType"`
}

// AddressPayload carries the selected chain codes top to bottom.
type AddressPayload struct {
	CityCode         string `json:"cityCode"`
	DistrictCode     string `json:"districtCode"`
	TownCode         string `json:"townCode,omitempty"`
	NeighborhoodCode string `json:"neighborhoodCode,omitempty"`
	StreetCode       string `json:"streetCode,omitempty"`
	BuildingCode     string `json:"buildingCode,omitempty"`
	ApartmentCode    string `json:"apartmentCode,omitempty"`
}

// PropertyPayload is the create/update body for the property registry.
type PropertyPayload struct {
	UAVTCode   string            `json:"uavtCode"`
	Address    AddressPayload    `json:"address"`
	Structural StructuralPayload `json:"structural"`
}

type wireProperty struct {
	ID         string `json:"id"`
	UAVTCode   string `json:"uavtCode"`
	Address    struct {
		City         wireLink `json:"city"`
		District     wireLink `json:"district"`
		Town         wireLink `json:"town"`
		Neighborhood wireLink `json:"neighborhood"`
		Street       wireLink `json:"street"`
		Building     wireLink `json:"building"`
		Apartment    wireLink `json:"apartment"`
	} `json:"address"`
	Structural wireStructural `json:"structural"`
}

type wireStructural struct {
	StructureMaterial string           `json:"structureMaterial"`
	ConstructionYear  int              `json:"constructionYear"`
	FloorCount        FloorCountBounds `json:"floorCount"`
	FloorNumber       int              `json:"floorNumber"`
	AreaSqm           int              `json:"areaSqm"`
	UsageType         string           `json:"usageType"`
	DamageStatus      string           `json:"damageStatus"`
	OwnershipType     string           `json:"ownershipType"`
}

func (w wireProperty) toProperty() models.Property {
	chain := models.AddressChain{
		City:         w.Address.City.toLink(),
		District:     w.Address.District.toLink(),
		Town:         w.Address.Town.toLink(),
		Neighborhood: w.Address.Neighborhood.toLink(),
		Street:       w.Address.Street.toLink(),
		Building:     w.Address.Building.toLink(),
		Apartment:    w.Address.Apartment.toLink(),
	}
	return models.Property{
		ID:         w.ID,
		UAVTCode:   w.UAVTCode,
		Address:    chain,
		Structural: w.Structural.toStructural(),
	}
}

func (w wireStructural) toStructural() models.StructuralAttributes {
	return models.StructuralAttributes{
		StructureMaterial: models.StructureMaterial(w.StructureMaterial),
		ConstructionYear:  w.ConstructionYear,
		FloorCountRange:   models.FloorRangeFromBounds(w.FloorCount.Min, w.FloorCount.Max),
		FloorNumber:       w.FloorNumber,
		AreaSqm:           w.AreaSqm,
		UsageType:         models.UsageType(w.UsageType),
		DamageStatus:      models.DamageStatus(w.DamageStatus),
		OwnershipType:     models.OwnershipType(w.OwnershipType),
	}
}

// ListProperties returns the customer's registered properties, optionally
// filtered by usage type.
func (p *Platform) ListProperties(ctx context.Context, tok session.TokenReader, customerID string, usage models.UsageType) ([]models.Property, error) {
	path := "/properties?customerId=" + url.QueryEscape(customerID)
	if usage != "" {
		path += "&usage=" + url.QueryEscape(string(usage))
	}

	var wire []wireProperty
	if err := p.do(ctx, http.MethodGet, path, tok, nil, &wire); err != nil {
		return nil, err
	}

	properties := make([]models.Property, 0, len(wire))
	for _, w := range wire {
		properties = append(properties, w.toProperty())
	}
	return properties, nil
}

type createPropertyResponse struct {
	ID string `json:"id"`
}

// CreateProperty registers a new property and returns its id.
func (p *Platform) CreateProperty(ctx context.Context, tok session.TokenReader, payload PropertyPayload) (string, error) {
	var resp createPropertyResponse
	if err := p.do(ctx, http.MethodPost, "/properties", tok, payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// UpdateProperty overwrites an existing property in place.
func (p *Platform) UpdateProperty(ctx context.Context, tok session.TokenReader, id string, payload PropertyPayload) error {
	return p.do(ctx, http.MethodPut, "/properties/"+url.PathEscape(id), tok, payload, nil)
}
