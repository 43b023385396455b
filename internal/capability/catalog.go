// Package capability holds the customization capability catalog, the per-product
// configuration records a merchant edits in the wizard, and the pricing resolver
// that turns a configuration plus a customer selection into a price delta.
//
// Every mutation in this package is a pure function: it takes a Configuration by
// value and returns a new one without touching the slices of its input.
package capability

import "fmt"

// ID identifies a capability kind.
type ID string

const (
	Size      ID = "size"
	Material  ID = "material"
	Color     ID = "color"
	Text      ID = "text"
	Print     ID = "print"
	Engrave   ID = "engrave"
	Emboss    ID = "emboss"
	SwapParts ID = "swap_parts"
	AddOns    ID = "add_ons"
)

// Category groups capabilities in the wizard's picker.
type Category string

const (
	CategoryDimensions      Category = "dimensions"
	CategoryAppearance      Category = "appearance"
	CategoryPersonalization Category = "personalization"
	CategoryStructure       Category = "structure"
)

// Valid reports whether c is one of the picker categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryDimensions, CategoryAppearance, CategoryPersonalization, CategoryStructure:
		return true
	}
	return false
}

// Definition is static catalog data describing which configuration shapes are
// legal for a capability kind.
type Definition struct {
	ID                 ID       `json:"id"`
	Label              string   `json:"label"`
	Category           Category `json:"category"`
	RequiresUV         bool     `json:"requires_uv"`
	RequiresZones      bool     `json:"requires_zones"`
	RequiresPorts      bool     `json:"requires_ports"`
	SupportsOptions    bool     `json:"supports_options"`
	SupportsZones      bool     `json:"supports_zones"`
	SupportsTextConfig bool     `json:"supports_text_config"`
}

// catalog order is the display order of the picker.
var catalog = []Definition{
	{ID: Size, Label: "Size", Category: CategoryDimensions, SupportsOptions: true},
	{ID: Material, Label: "Material", Category: CategoryAppearance, SupportsOptions: true},
	{ID: Color, Label: "Color", Category: CategoryAppearance, SupportsOptions: true},
	{ID: Text, Label: "Custom text", Category: CategoryPersonalization,
		RequiresZones: true, SupportsZones: true, SupportsTextConfig: true},
	{ID: Print, Label: "Print / image", Category: CategoryPersonalization,
		RequiresUV: true, RequiresZones: true, SupportsZones: true},
	{ID: Engrave, Label: "Engraving", Category: CategoryPersonalization,
		RequiresZones: true, SupportsZones: true, SupportsTextConfig: true},
	{ID: Emboss, Label: "Embossing", Category: CategoryPersonalization,
		RequiresZones: true, SupportsZones: true, SupportsTextConfig: true},
	{ID: SwapParts, Label: "Swappable parts", Category: CategoryStructure,
		RequiresPorts: true, SupportsOptions: true},
	{ID: AddOns, Label: "Add-ons", Category: CategoryStructure,
		RequiresPorts: true, SupportsOptions: true},
}

var byID = func() map[ID]Definition {
	m := make(map[ID]Definition, len(catalog))
	for _, d := range catalog {
		m[d.ID] = d
	}
	return m
}()

// All returns the whole catalog in display order.
func All() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// DefinitionsByCategory returns the definitions of one category in catalog order.
func DefinitionsByCategory(category Category) []Definition {
	var out []Definition
	for _, d := range catalog {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Known reports whether id is in the catalog. Use it at trust boundaries before
// calling Lookup.
func Known(id ID) bool {
	_, ok := byID[id]
	return ok
}

// Lookup returns the definition for id. An unknown id is a programming error.
func Lookup(id ID) Definition {
	d, ok := byID[id]
	if !ok {
		panic(fmt.Sprintf("capability: unknown id %q", id))
	}
	return d
}
