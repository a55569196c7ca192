package models

// AcquisitionStrategy is the method of obtaining a property reference.
type AcquisitionStrategy string

const (
	StrategyExisting AcquisitionStrategy = "EXISTING"
	StrategyNew      AcquisitionStrategy = "NEW"
	StrategyRenewal  AcquisitionStrategy = "RENEWAL"
)

// Backend string vocabularies for structural attributes. These are the
// exact values the proposal platform accepts; they never vary per insurer.
type (
	StructureMaterial string
	UsageType         string
	DamageStatus      string
	OwnershipType     string
)

const (
	MaterialSteelConcrete StructureMaterial = "STEEL_REINFORCED_CONCRETE"
	MaterialMasonry       StructureMaterial = "MASONRY"
	MaterialSteel         StructureMaterial = "STEEL"
	MaterialWood          StructureMaterial = "WOOD"
	MaterialOther         StructureMaterial = "OTHER"
)

const (
	UsageResidence UsageType = "RESIDENCE"
	UsageBusiness  UsageType = "BUSINESS"
	UsageOther     UsageType = "OTHER"
)

const (
	DamageNone     DamageStatus = "NONE"
	DamageSlight   DamageStatus = "SLIGHTLY_DAMAGED"
	DamageModerate DamageStatus = "MODERATELY_DAMAGED"
	DamageSevere   DamageStatus = "SEVERELY_DAMAGED"
)

const (
	OwnershipOwner      OwnershipType = "OWNER"
	OwnershipTenant     OwnershipType = "TENANT"
	OwnershipUsufruct   OwnershipType = "USUFRUCT"
	OwnershipOtherParty OwnershipType = "OTHER"
)

// FloorCountRange is the bucketed total-floor-count of the building.
// The backend speaks {min,max} pairs; the buckets exist only client-side
// and always serialize back to their bounds, never as the tag.
type FloorCountRange string

const (
	FloorRange1To3    FloorCountRange = "RANGE_1_3"
	FloorRange4To7    FloorCountRange = "RANGE_4_7"
	FloorRange8To18   FloorCountRange = "RANGE_8_18"
	FloorRange19Plus  FloorCountRange = "RANGE_19_PLUS"
	FloorRangeUnknown FloorCountRange = "UNKNOWN"
)

// floorRangeBounds maps each defined bucket to its serialized {min,max}.
var floorRangeBounds = map[FloorCountRange][2]int{
	FloorRange1To3:   {1, 3},
	FloorRange4To7:   {4, 7},
	FloorRange8To18:  {8, 18},
	FloorRange19Plus: {19, 150},
}

// FloorRangeFromBounds maps a backend {min,max} pair onto a bucket.
// Anything past 19 floors collapses into the open-ended top bucket;
// pairs matching no bucket map to Unknown.
func FloorRangeFromBounds(min, max int) FloorCountRange {
	switch {
	case min == 1 && max == 3:
		return FloorRange1To3
	case min == 4 && max == 7:
		return FloorRange4To7
	case min == 8 && max == 18:
		return FloorRange8To18
	case min >= 19:
		return FloorRange19Plus
	default:
		return FloorRangeUnknown
	}
}

// Bounds returns the serialized {min,max} pair for a bucket. ok is false
// for Unknown, which has no backend representation.
func (r FloorCountRange) Bounds() (min, max int, ok bool) {
	b, ok := floorRangeBounds[r]
	if !ok {
		return 0, 0, false
	}
	return b[0], b[1], true
}

// MaxFloor is the highest floor number a property in this bucket may
// declare. Unknown gets the most permissive ceiling.
func (r FloorCountRange) MaxFloor() int {
	switch r {
	case FloorRange1To3:
		return 3
	case FloorRange4To7:
		return 7
	case FloorRange8To18:
		return 18
	default:
		return 150
	}
}

// MinFloorNumber is the lowest declarable floor (basements).
const MinFloorNumber = -5

// StructuralAttributes describe the insured building.
type StructuralAttributes struct {
	StructureMaterial StructureMaterial `json:"structureMaterial"`
	ConstructionYear  int               `json:"constructionYear"`
	FloorCountRange   FloorCountRange   `json:"floorCountRange"`
	FloorNumber       int               `json:"floorNumber"`
	AreaSqm           int               `json:"areaSqm"`
	UsageType         UsageType         `json:"usageType"`
	DamageStatus      DamageStatus      `json:"damageStatus"`
	OwnershipType     OwnershipType     `json:"ownershipType"`
}

// PropertyDraft is the in-progress property description for one funnel
// session. FilledViaQuery records that the chain and structural fields came
// from a successful old-policy lookup; Renewal edits are gated on this flag,
// never on field non-emptiness.
type PropertyDraft struct {
	Strategy           AcquisitionStrategy  `json:"strategy"`
	Address            AddressChain         `json:"address"`
	UAVTCode           string               `json:"uavtCode"`
	OldPolicyNumber    string               `json:"oldPolicyNumber,omitempty"`
	Structural         StructuralAttributes `json:"structural"`
	FilledViaQuery     bool                 `json:"filledViaQuery"`
	AddressViaLookup   bool                 `json:"addressViaLookup"`
	SelectedPropertyID string               `json:"selectedPropertyId,omitempty"`
}

// Property is a registered property as the registry returns it.
type Property struct {
	ID         string               `json:"id"`
	UAVTCode   string               `json:"uavtCode"`
	Address    AddressChain         `json:"address"`
	Structural StructuralAttributes `json:"structural"`
}
