package capability

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// WholeProductSentinel is the wire form of AppliesTo when a capability covers the
// whole product rather than an explicit set of parts.
const WholeProductSentinel = "whole_product"

// AppliesTo is either the whole product or an explicit set of part ids, never both.
// The zero value is an empty explicit set.
type AppliesTo struct {
	whole bool
	parts []string
}

// WholeProduct scopes a capability to the entire product.
func WholeProduct() AppliesTo { return AppliesTo{whole: true} }

// Parts scopes a capability to the given part ids. Duplicates are dropped, order kept.
func Parts(ids ...string) AppliesTo {
	seen := make(map[string]bool, len(ids))
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		parts = append(parts, id)
	}
	return AppliesTo{parts: parts}
}

func (a AppliesTo) IsWholeProduct() bool { return a.whole }

// PartIDs returns a copy of the explicit part set (nil for the whole product).
func (a AppliesTo) PartIDs() []string {
	if a.whole {
		return nil
	}
	out := make([]string, len(a.parts))
	copy(out, a.parts)
	return out
}

// Includes reports whether partID is covered by this scope.
func (a AppliesTo) Includes(partID string) bool {
	if a.whole {
		return true
	}
	for _, id := range a.parts {
		if id == partID {
			return true
		}
	}
	return false
}

// Equal reports whether both scopes cover the same parts in the same order.
func (a AppliesTo) Equal(b AppliesTo) bool {
	if a.whole != b.whole || len(a.parts) != len(b.parts) {
		return false
	}
	for i := range a.parts {
		if a.parts[i] != b.parts[i] {
			return false
		}
	}
	return true
}

func (a AppliesTo) MarshalJSON() ([]byte, error) {
	if a.whole {
		return json.Marshal(WholeProductSentinel)
	}
	return json.Marshal(a.PartIDs())
}

// UnmarshalJSON accepts the sentinel string, an id array, or a legacy id array that
// carries the sentinel among explicit ids. The sentinel always wins.
func (a *AppliesTo) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != WholeProductSentinel {
			return fmt.Errorf("applies_to: unknown scope %q", s)
		}
		*a = WholeProduct()
		return nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("applies_to: %w", err)
	}
	for _, id := range ids {
		if id == WholeProductSentinel {
			*a = WholeProduct()
			return nil
		}
	}
	*a = Parts(ids...)
	return nil
}

// Option is one selectable value of a capability (a material, a color, a part).
type Option struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	PriceModifier        decimal.Decimal `json:"price_modifier"`
	IsDefault            bool            `json:"is_default"`
	SwatchURL            *string         `json:"swatch_url,omitempty"`
	SameAttachmentPoints *bool           `json:"same_attachment_points,omitempty"`
}

// PricingType tags the active variant of Pricing.
type PricingType string

const (
	PricingPerOption PricingType = "per_option"
	PricingFixed     PricingType = "fixed"
	PricingPerUnit   PricingType = "per_unit"
	PricingNoCharge  PricingType = "no_charge"
)

// Pricing is a tagged union. Amount is only meaningful for fixed and per_unit.
type Pricing struct {
	Type   PricingType
	Amount decimal.Decimal
}

func PerOptionPricing() Pricing { return Pricing{Type: PricingPerOption} }

func FixedPricing(amount decimal.Decimal) Pricing {
	return Pricing{Type: PricingFixed, Amount: amount}
}

func PerUnitPricing(amount decimal.Decimal) Pricing {
	return Pricing{Type: PricingPerUnit, Amount: amount}
}

func NoChargePricing() Pricing { return Pricing{Type: PricingNoCharge} }

var ErrUnknownPricingType = errors.New("unknown pricing type")

type pricingWire struct {
	Type   PricingType      `json:"type"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

func (p Pricing) MarshalJSON() ([]byte, error) {
	w := pricingWire{Type: p.Type}
	if p.Type == PricingFixed || p.Type == PricingPerUnit {
		amount := p.Amount
		w.Amount = &amount
	}
	return json.Marshal(w)
}

func (p *Pricing) UnmarshalJSON(data []byte) error {
	var w pricingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case PricingPerOption:
		*p = PerOptionPricing()
	case PricingNoCharge:
		*p = NoChargePricing()
	case PricingFixed, PricingPerUnit:
		amount := decimal.Zero
		if w.Amount != nil {
			amount = *w.Amount
		}
		*p = Pricing{Type: w.Type, Amount: amount}
	default:
		return fmt.Errorf("pricing: %w %q", ErrUnknownPricingType, w.Type)
	}
	return nil
}

// Zone is a named placement region on a part's surface.
type Zone struct {
	ID                  string           `json:"id"`
	Name                string           `json:"name"`
	PartID              string           `json:"part_id"`
	MaxWidthCM          *decimal.Decimal `json:"max_width_cm,omitempty"`
	MaxHeightCM         *decimal.Decimal `json:"max_height_cm,omitempty"`
	PositionDescription *string          `json:"position_description,omitempty"`

	// AllowedCapabilities restricts which editors surface the zone; empty means all.
	AllowedCapabilities []ID `json:"allowed_capabilities,omitempty"`
}

// ZonesFor returns the zones that capability id may place content on.
func ZonesFor(zones []Zone, id ID) []Zone {
	var out []Zone
	for _, z := range zones {
		if len(z.AllowedCapabilities) == 0 {
			out = append(out, z)
			continue
		}
		for _, allowed := range z.AllowedCapabilities {
			if allowed == id {
				out = append(out, z)
				break
			}
		}
	}
	return out
}

// TextOptions constrains customer-entered text.
type TextOptions struct {
	MinCharacters  int      `json:"min_characters"`
	MaxCharacters  int      `json:"max_characters"`
	Fonts          []string `json:"fonts"`
	AllowMultiline bool     `json:"allow_multiline"`
}

// Rule is a merchant-authored constraint passed through to the storefront.
type Rule struct {
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// ExportFormat is a 3D file format produced for the fulfilment side.
type ExportFormat string

const (
	ExportGLB ExportFormat = "glb"
	ExportSTL ExportFormat = "stl"
	ExportOBJ ExportFormat = "obj"
	Export3MF ExportFormat = "3mf"
)

// Configuration is the per-product record of one enabled capability.
type Configuration struct {
	CapabilityID  ID             `json:"capability_id"`
	IsConfigured  bool           `json:"is_configured"`
	AppliesTo     AppliesTo      `json:"applies_to_parts"`
	Options       []Option       `json:"options"`
	Zones         []Zone         `json:"zones"`
	TextOptions   *TextOptions   `json:"text_options,omitempty"`
	SizeOptions   *SizeOptions   `json:"size_options,omitempty"`
	Rules         []Rule         `json:"rules"`
	ExportFormats []ExportFormat `json:"export_formats"`
	Pricing       Pricing        `json:"pricing"`
}

// DefaultOption returns the option flagged as default, if any.
func (c Configuration) DefaultOption() (Option, bool) {
	for _, o := range c.Options {
		if o.IsDefault {
			return o, true
		}
	}
	return Option{}, false
}

// OptionByID returns the option with the given id, if any.
func (c Configuration) OptionByID(id string) (Option, bool) {
	for _, o := range c.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// clone deep-copies every slice and pointer so callers can mutate the result freely.
func (c Configuration) clone() Configuration {
	out := c
	out.AppliesTo = AppliesTo{whole: c.AppliesTo.whole, parts: c.AppliesTo.PartIDs()}
	if c.Options != nil {
		out.Options = make([]Option, len(c.Options))
		copy(out.Options, c.Options)
	}
	if c.Zones != nil {
		out.Zones = make([]Zone, len(c.Zones))
		for i, z := range c.Zones {
			z.AllowedCapabilities = append([]ID(nil), z.AllowedCapabilities...)
			out.Zones[i] = z
		}
	}
	if c.TextOptions != nil {
		t := *c.TextOptions
		t.Fonts = append([]string(nil), c.TextOptions.Fonts...)
		out.TextOptions = &t
	}
	if c.SizeOptions != nil {
		s := c.SizeOptions.clone()
		out.SizeOptions = &s
	}
	if c.Rules != nil {
		out.Rules = make([]Rule, len(c.Rules))
		for i, r := range c.Rules {
			if r.Params != nil {
				params := make(map[string]string, len(r.Params))
				for k, v := range r.Params {
					params[k] = v
				}
				r.Params = params
			}
			out.Rules[i] = r
		}
	}
	if c.ExportFormats != nil {
		out.ExportFormats = append([]ExportFormat(nil), c.ExportFormats...)
	}
	return out
}
