package resolver

import (
	"context"
	"errors"
	"sync"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/clients"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/logger"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/models"
)

// Resolver-level errors.
var (
	ErrNoPropertySelected = errors.New("no property selected")
	ErrRenewalNotQueried  = errors.New("old policy lookup required before renewal fields are usable")
	ErrRenewalLocked      = errors.New("renewal fields are locked to the old policy lookup result")
	ErrStrategyMismatch   = errors.New("operation not valid for the current acquisition strategy")
)

// AddressService fetches the selectable children of one address level.
type AddressService interface {
	Children(ctx context.Context, level models.AddressLevel, parentCode string) ([]models.Link, error)
}

// LookupService resolves UAVT codes and old policy numbers.
type LookupService interface {
	QueryAddress(ctx context.Context, propertyNumber string) (models.AddressChain, error)
	QueryOldPolicy(ctx context.Context, policyNumber string) (*clients.OldPolicyResult, error)
}

// Resolver owns one funnel session's property draft and chooses among the
// three acquisition strategies: select an existing property, describe a new
// one, or renew from an old policy.
type Resolver struct {
	mu         sync.Mutex
	draft      models.PropertyDraft
	properties []models.Property
	addresses  AddressService
	lookup     LookupService
	log        *logger.Logger
}

// New creates a Resolver with an empty draft in the New strategy.
func New(addresses AddressService, lookup LookupService, log *logger.Logger) *Resolver {
	return &Resolver{
		draft:     models.PropertyDraft{Strategy: models.StrategyNew},
		addresses: addresses,
		lookup:    lookup,
		log:       log.WithComponent("resolver"),
	}
}

// Draft returns a copy of the current property draft.
func (r *Resolver) Draft() models.PropertyDraft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draft
}

// Properties returns the loaded existing-property list.
func (r *Resolver) Properties() []models.Property {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.properties
}

// SetStrategy switches the acquisition strategy and resets every
// strategy-specific field of the draft.
func (r *Resolver) SetStrategy(strategy models.AcquisitionStrategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draft.Strategy == strategy {
		return
	}
	selected := r.draft.SelectedPropertyID
	r.draft = models.PropertyDraft{Strategy: strategy}
	if strategy == models.StrategyExisting {
		r.draft.SelectedPropertyID = selected
	}
}

// SetProperties stores the customer's property list. A non-empty list
// switches to the Existing strategy with the first property pre-selected,
// unless a selection was already made.
func (r *Resolver) SetProperties(list []models.Property) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties = list
	if len(list) == 0 {
		return
	}
	if r.draft.Strategy != models.StrategyExisting {
		r.draft = models.PropertyDraft{Strategy: models.StrategyExisting}
	}
	if r.draft.SelectedPropertyID == "" {
		r.draft.SelectedPropertyID = list[0].ID
	}
}

// SelectProperty records the chosen existing property.
func (r *Resolver) SelectProperty(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draft.Strategy != models.StrategyExisting {
		return ErrStrategyMismatch
	}
	for _, p := range r.properties {
		if p.ID == id {
			r.draft.SelectedPropertyID = id
			return nil
		}
	}
	return ErrNoPropertySelected
}

// SelectLink records one manual address selection, invalidating every
// deeper link, and returns the children of the selected link for the next
// level. Selecting the apartment level returns no children.
func (r *Resolver) SelectLink(ctx context.Context, level models.AddressLevel, link models.Link) ([]models.Link, error) {
	r.mu.Lock()
	if r.draft.Strategy != models.StrategyNew {
		r.mu.Unlock()
		return nil, ErrStrategyMismatch
	}
	r.draft.Address.Set(level, link)
	r.draft.AddressViaLookup = false
	r.mu.Unlock()

	if level >= models.LevelApartment {
		return nil, nil
	}
	return r.addresses.Children(ctx, level+1, link.Code)
}

// LookupUAVT resolves a 10-digit UAVT code into the full address chain and
// marks the chain read-derived. A recognized "not found" falls back to
// manual entry and reports fellBack=true with no error; the caller shows an
// inline message, never a blocking dialog.
func (r *Resolver) LookupUAVT(ctx context.Context, code string) (fellBack bool, err error) {
	if err := ValidateUAVTCode(code); err != nil {
		return false, err
	}
	r.mu.Lock()
	if r.draft.Strategy != models.StrategyNew {
		r.mu.Unlock()
		return false, ErrStrategyMismatch
	}
	r.mu.Unlock()

	chain, err := r.lookup.QueryAddress(ctx, code)
	if errors.Is(err, clients.ErrLookupNotFound) {
		r.log.Info("UAVT code not found, falling back to manual entry", map[string]interface{}{
			"uavt_code": code,
		})
		return true, nil
	}
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft.Address = chain
	r.draft.UAVTCode = code
	r.draft.AddressViaLookup = true
	return false, nil
}

// LookupOldPolicy resolves an 8-digit old policy number. Success populates
// and locks the address chain and structural attributes and sets the
// filled-via-query flag; afterwards only the policy number itself stays
// editable.
func (r *Resolver) LookupOldPolicy(ctx context.Context, number string) error {
	if err := ValidateOldPolicyNumber(number); err != nil {
		return err
	}
	r.mu.Lock()
	if r.draft.Strategy != models.StrategyRenewal {
		r.mu.Unlock()
		return ErrStrategyMismatch
	}
	r.mu.Unlock()

	result, err := r.lookup.QueryOldPolicy(ctx, number)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft.OldPolicyNumber = number
	r.draft.Address = result.Address
	r.draft.Structural = result.Structural
	r.draft.UAVTCode = result.PropertyNumber
	r.draft.FilledViaQuery = true
	return nil
}

// SetPolicyNumber changes the renewal policy number. Any change clears the
// filled flag and every dependent field; a fresh lookup is required.
func (r *Resolver) SetPolicyNumber(number string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draft.Strategy != models.StrategyRenewal {
		return ErrStrategyMismatch
	}
	if r.draft.OldPolicyNumber == number {
		return nil
	}
	r.draft = models.PropertyDraft{
		Strategy:        models.StrategyRenewal,
		OldPolicyNumber: number,
	}
	return nil
}

// SetStructural replaces the structural attributes after validating them.
// Only the New strategy accepts manual structural input: Renewal fields are
// locked to the lookup result and Existing submits a bare selection.
func (r *Resolver) SetStructural(attrs models.StructuralAttributes) error {
	r.mu.Lock()
	strategy := r.draft.Strategy
	filled := r.draft.FilledViaQuery
	r.mu.Unlock()

	switch strategy {
	case models.StrategyNew:
	case models.StrategyRenewal:
		if filled {
			return ErrRenewalLocked
		}
		return ErrRenewalNotQueried
	default:
		return ErrStrategyMismatch
	}

	if err := ValidateStructural(attrs); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.draft.Structural = attrs
	return nil
}

// Validate checks the draft is submittable for its strategy.
func (r *Resolver) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return validateDraft(r.draft)
}

func validateDraft(draft models.PropertyDraft) error {
	switch draft.Strategy {
	case models.StrategyExisting:
		if draft.SelectedPropertyID == "" {
			return ErrNoPropertySelected
		}
		return nil
	case models.StrategyRenewal:
		if !draft.FilledViaQuery {
			return ErrRenewalNotQueried
		}
	case models.StrategyNew:
	default:
		return ErrStrategyMismatch
	}

	if err := draft.Address.Validate(); err != nil {
		return err
	}
	return ValidateStructural(draft.Structural)
}

// BuildPayload serializes a validated New or Renewal draft into the
// registry's wire form: enums as backend vocabulary strings and the
// floor-count range as its {min,max} bounds, never the bucket tag.
func BuildPayload(draft models.PropertyDraft) (clients.PropertyPayload, error) {
	if err := validateDraft(draft); err != nil {
		return clients.PropertyPayload{}, err
	}
	if draft.Strategy == models.StrategyExisting {
		return clients.PropertyPayload{}, ErrStrategyMismatch
	}

	min, max, ok := draft.Structural.FloorCountRange.Bounds()
	if !ok {
		return clients.PropertyPayload{}, &ValidationError{
			Field:  "floorCountRange",
			Reason: "a known floor-count range is required",
		}
	}

	uavt := draft.UAVTCode
	if uavt == "" {
		uavt = draft.Address.UAVTCode()
	}

	return clients.PropertyPayload{
		UAVTCode: uavt,
		Address: clients.AddressPayload{
			CityCode:         draft.Address.City.Code,
			DistrictCode:     draft.Address.District.Code,
			TownCode:         draft.Address.Town.Code,
			NeighborhoodCode: draft.Address.Neighborhood.Code,
			StreetCode:       draft.Address.Street.Code,
			BuildingCode:     draft.Address.Building.Code,
			ApartmentCode:    draft.Address.Apartment.Code,
		},
		Structural: clients.StructuralPayload{
			StructureMaterial: string(draft.Structural.StructureMaterial),
			ConstructionYear:  draft.Structural.ConstructionYear,
			FloorCount:        clients.FloorCountBounds{Min: min, Max: max},
			FloorNumber:       draft.Structural.FloorNumber,
			AreaSqm:           draft.Structural.AreaSqm,
			UsageType:         string(draft.Structural.UsageType),
			DamageStatus:      string(draft.Structural.DamageStatus),
			OwnershipType:     string(draft.Structural.OwnershipType),
		},
	}, nil
}
