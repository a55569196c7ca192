package models

import "errors"

// AddressLevel identifies one link of the hierarchical address chain,
// ordered from city down to apartment.
type AddressLevel int

const (
	LevelCity AddressLevel = iota
	LevelDistrict
	LevelTown
	LevelNeighborhood
	LevelStreet
	LevelBuilding
	LevelApartment
)

// addressLevelNames is indexed by AddressLevel.
var addressLevelNames = [...]string{
	"city", "district", "town", "neighborhood", "street", "building", "apartment",
}

// String returns the lowercase level name used in API paths.
func (l AddressLevel) String() string {
	if l < LevelCity || l > LevelApartment {
		return "unknown"
	}
	return addressLevelNames[l]
}

// ParseAddressLevel maps a level name back to its AddressLevel.
func ParseAddressLevel(name string) (AddressLevel, bool) {
	for i, n := range addressLevelNames {
		if n == name {
			return AddressLevel(i), true
		}
	}
	return 0, false
}

// Link is one normalized element of the address chain. Backends return
// either bare code strings or {value,text} objects; both normalize to this
// shape at the client boundary and nothing deeper ever branches on shape.
type Link struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Empty reports whether the link carries no code.
func (l Link) Empty() bool { return l.Code == "" }

// ErrAddressIncomplete is returned when the mandatory city or district
// link is missing from a chain.
var ErrAddressIncomplete = errors.New("address chain requires city and district")

// AddressChain is the ordered city→apartment selection. City and district
// are mandatory; deeper links are optional.
type AddressChain struct {
	City         Link `json:"city"`
	District     Link `json:"district"`
	Town         Link `json:"town"`
	Neighborhood Link `json:"neighborhood"`
	Street       Link `json:"street"`
	Building     Link `json:"building"`
	Apartment    Link `json:"apartment"`
}

// At returns the link at the given level.
func (c *AddressChain) At(level AddressLevel) Link {
	switch level {
	case LevelCity:
		return c.City
	case LevelDistrict:
		return c.District
	case LevelTown:
		return c.Town
	case LevelNeighborhood:
		return c.Neighborhood
	case LevelStreet:
		return c.Street
	case LevelBuilding:
		return c.Building
	case LevelApartment:
		return c.Apartment
	}
	return Link{}
}

// Set replaces the link at the given level and clears every deeper level.
// Selecting a new city invalidates the district and everything below it,
// and so on down the chain.
func (c *AddressChain) Set(level AddressLevel, link Link) {
	switch level {
	case LevelCity:
		c.City = link
	case LevelDistrict:
		c.District = link
	case LevelTown:
		c.Town = link
	case LevelNeighborhood:
		c.Neighborhood = link
	case LevelStreet:
		c.Street = link
	case LevelBuilding:
		c.Building = link
	case LevelApartment:
		c.Apartment = link
	}
	c.ClearBelow(level)
}

// ClearBelow resets every link strictly deeper than the given level.
func (c *AddressChain) ClearBelow(level AddressLevel) {
	if level < LevelDistrict {
		c.District = Link{}
	}
	if level < LevelTown {
		c.Town = Link{}
	}
	if level < LevelNeighborhood {
		c.Neighborhood = Link{}
	}
	if level < LevelStreet {
		c.Street = Link{}
	}
	if level < LevelBuilding {
		c.Building = Link{}
	}
	if level < LevelApartment {
		c.Apartment = Link{}
	}
}

// Validate checks the mandatory city and district links.
func (c *AddressChain) Validate() error {
	if c.City.Empty() || c.District.Empty() {
		return ErrAddressIncomplete
	}
	return nil
}

// UAVTCode returns the canonical address-registry code for the chain: the
// apartment-level code doubles as the UAVT code when no explicit lookup
// supplied one.
func (c *AddressChain) UAVTCode() string {
	return c.Apartment.Code
}
