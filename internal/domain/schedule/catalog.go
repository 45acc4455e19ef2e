package schedule

import (
	"errors"
	"fmt"
)

// Region groups branches for display and availability purposes.
type Region struct {
	ID       string
	Name     string
	Branches []string // raw catalog order, may contain duplicates
}

// Availability is the read-time overlay hiding inactive regions and branches.
// InactiveRegions maps a region ID to the status message shown to users.
type Availability struct {
	InactiveRegions  map[string]string
	InactiveBranches map[string]bool
}

// Catalog is the immutable in-memory schedule table. It is constructed once at
// startup and shared by reference; none of its methods mutate it.
type Catalog struct {
	slots        []Slot
	regions      []Region
	regionIndex  map[string]int // by ID and by display name
	addresses    map[string]string
	normAddress  map[string]string
	availability Availability
}

var ErrEmptyCatalog = errors.New("catalog has no slots")

// NewCatalog validates and freezes the given data. addresses maps branch names
// to postal addresses; branches without an explicit address fall back to the
// address of their first slot.
func NewCatalog(slots []Slot, regions []Region, addresses map[string]string, availability Availability) (*Catalog, error) {
	if len(slots) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		slots:       make([]Slot, 0, len(slots)),
		regions:     make([]Region, 0, len(regions)),
		regionIndex: make(map[string]int, len(regions)*2),
		addresses:   make(map[string]string),
		normAddress: make(map[string]string),
		availability: Availability{
			InactiveRegions:  make(map[string]string, len(availability.InactiveRegions)),
			InactiveBranches: make(map[string]bool, len(availability.InactiveBranches)),
		},
	}

	for i, s := range slots {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		c.slots = append(c.slots, s.clone())
	}

	for _, r := range regions {
		if r.ID == "" {
			return nil, fmt.Errorf("region %q has no id", r.Name)
		}
		if _, dup := c.regionIndex[r.ID]; dup {
			return nil, fmt.Errorf("duplicate region id %q", r.ID)
		}
		idx := len(c.regions)
		c.regions = append(c.regions, Region{ID: r.ID, Name: r.Name, Branches: append([]string(nil), r.Branches...)})
		c.regionIndex[r.ID] = idx
		if r.Name != "" {
			c.regionIndex[r.Name] = idx
		}
	}

	for branch, addr := range addresses {
		c.addresses[branch] = addr
	}
	for _, s := range c.slots {
		if _, ok := c.addresses[s.Branch]; !ok && s.Address != "" {
			c.addresses[s.Branch] = s.Address
		}
	}
	for branch, addr := range c.addresses {
		c.normAddress[normalizeKey(branch)] = addr
	}

	for region, msg := range availability.InactiveRegions {
		c.availability.InactiveRegions[region] = msg
	}
	for branch, held := range availability.InactiveBranches {
		if held {
			c.availability.InactiveBranches[branch] = true
		}
	}

	return c, nil
}

// Slots returns a copy of every slot in catalog order.
func (c *Catalog) Slots() []Slot {
	out := make([]Slot, len(c.slots))
	for i, s := range c.slots {
		out[i] = s.clone()
	}
	return out
}

// SlotsForBranch returns the slots of an exact branch name in catalog order.
func (c *Catalog) SlotsForBranch(branch string) []Slot {
	var out []Slot
	for _, s := range c.slots {
		if s.Branch == branch {
			out = append(out, s.clone())
		}
	}
	return out
}

// Regions returns the configured regions in catalog order.
func (c *Catalog) Regions() []Region {
	out := make([]Region, len(c.regions))
	for i, r := range c.regions {
		out[i] = Region{ID: r.ID, Name: r.Name, Branches: append([]string(nil), r.Branches...)}
	}
	return out
}

func (c *Catalog) region(name string) (Region, bool) {
	idx, ok := c.regionIndex[name]
	if !ok {
		return Region{}, false
	}
	return c.regions[idx], true
}

// IsRegionActive reports whether region (ID or display name) exists and is not
// disabled by the availability overlay. Unknown regions are not active.
func (c *Catalog) IsRegionActive(region string) bool {
	r, ok := c.region(region)
	if !ok {
		return false
	}
	_, inactive := c.availability.InactiveRegions[r.ID]
	return !inactive
}

// RegionStatus returns the status message of a disabled region, or "" when
// the region is active or unknown.
func (c *Catalog) RegionStatus(region string) string {
	r, ok := c.region(region)
	if !ok {
		return ""
	}
	return c.availability.InactiveRegions[r.ID]
}

// BranchesFor returns the visible branches of a region: empty for an inactive
// or unknown region, otherwise the raw list minus held-back branches,
// de-duplicated in first-seen order.
func (c *Catalog) BranchesFor(region string) []string {
	if !c.IsRegionActive(region) {
		return []string{}
	}
	r, _ := c.region(region)
	seen := make(map[string]bool, len(r.Branches))
	out := make([]string, 0, len(r.Branches))
	for _, b := range r.Branches {
		if seen[b] || c.availability.InactiveBranches[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

// AddressFor returns the known address of a branch.
func (c *Catalog) AddressFor(branch string) (string, bool) {
	addr, ok := c.addresses[branch]
	return addr, ok
}
