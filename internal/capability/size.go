package capability

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SizeMode selects how customers pick a size.
type SizeMode string

const (
	SizeDiscrete SizeMode = "discrete" // fixed presets
	SizeCustom   SizeMode = "custom"   // free dimensions within bounds

	// SizeParametric scales the mesh itself. Gated in the UI; priced like custom.
	SizeParametric SizeMode = "parametric"
)

// SizePricingMode is the formula family used for custom dimensions.
type SizePricingMode string

const (
	SizePricePerUnit SizePricingMode = "per_unit" // linear: sum of excess
	SizePriceArea    SizePricingMode = "area"     // first two enabled dimensions
	SizePriceFormula SizePricingMode = "formula"  // volume: first three enabled dimensions
	SizePriceTiered  SizePricingMode = "tiered"   // presets only
)

// Standard dimension names, in resolution order.
const (
	DimWidth  = "width"
	DimLength = "length"
	DimHeight = "height"
	DimDepth  = "depth"
)

var standardDimensionOrder = []string{DimWidth, DimLength, DimHeight, DimDepth}

// Dimension bounds one measurement in centimetres. A zero Max means unbounded.
type Dimension struct {
	Enabled bool            `json:"enabled"`
	Min     decimal.Decimal `json:"min"`
	Max     decimal.Decimal `json:"max"`
	Step    decimal.Decimal `json:"step"`
}

type StandardDimensions struct {
	Width  Dimension `json:"width"`
	Length Dimension `json:"length"`
	Height Dimension `json:"height"`
	Depth  Dimension `json:"depth"`
}

func (s StandardDimensions) get(name string) (Dimension, bool) {
	switch name {
	case DimWidth:
		return s.Width, true
	case DimLength:
		return s.Length, true
	case DimHeight:
		return s.Height, true
	case DimDepth:
		return s.Depth, true
	}
	return Dimension{}, false
}

func (s *StandardDimensions) ptr(name string) *Dimension {
	switch name {
	case DimWidth:
		return &s.Width
	case DimLength:
		return &s.Length
	case DimHeight:
		return &s.Height
	case DimDepth:
		return &s.Depth
	}
	return nil
}

// CustomDimension is a merchant-named measurement beyond the standard four.
type CustomDimension struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Dimension
}

// NamedDimension is a dimension tagged with the key a customer selection uses for it:
// the standard name, or the custom dimension id.
type NamedDimension struct {
	Key string
	Dimension
}

// SizePreset is a fixed size offered in discrete mode.
type SizePreset struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Width         decimal.Decimal `json:"width"`
	Length        decimal.Decimal `json:"length"`
	Height        decimal.Decimal `json:"height"`
	PriceModifier decimal.Decimal `json:"price_modifier"`
	IsDefault     bool            `json:"is_default"`
	ModelURL      *string         `json:"model_url,omitempty"`
	ModelName     *string         `json:"model_name,omitempty"`
}

// SizeOptions specializes a size configuration.
type SizeOptions struct {
	Mode             SizeMode           `json:"mode"`
	Dimensions       StandardDimensions `json:"dimensions"`
	CustomDimensions []CustomDimension  `json:"custom_dimensions"`
	Presets          []SizePreset       `json:"presets"`

	// PricingMode is the merchant's choice; EffectivePricingMode is what applies.
	PricingMode  SizePricingMode `json:"pricing_mode"`
	BasePrice    decimal.Decimal `json:"base_price"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	PricePerCM2  decimal.Decimal `json:"price_per_cm2"`
	PricePerCM3  decimal.Decimal `json:"price_per_cm3"`
}

// DefaultSizeOptions returns a fresh discrete size setup with no dimensions enabled.
func DefaultSizeOptions() SizeOptions {
	step := decimal.NewFromInt(1)
	dim := Dimension{Min: decimal.Zero, Max: decimal.Zero, Step: step}
	return SizeOptions{
		Mode:             SizeDiscrete,
		Dimensions:       StandardDimensions{Width: dim, Length: dim, Height: dim, Depth: dim},
		CustomDimensions: []CustomDimension{},
		Presets:          []SizePreset{},
		PricingMode:      SizePricePerUnit,
	}
}

func (s SizeOptions) clone() SizeOptions {
	out := s
	if s.CustomDimensions != nil {
		out.CustomDimensions = append([]CustomDimension(nil), s.CustomDimensions...)
	}
	if s.Presets != nil {
		out.Presets = append([]SizePreset(nil), s.Presets...)
	}
	return out
}

// EnabledDimensions lists enabled dimensions: standard ones first in
// width, length, height, depth order, then custom ones in slice order.
// The editor and the resolver both rely on this ordering.
func (s SizeOptions) EnabledDimensions() []NamedDimension {
	var out []NamedDimension
	for _, name := range standardDimensionOrder {
		d, _ := s.Dimensions.get(name)
		if d.Enabled {
			out = append(out, NamedDimension{Key: name, Dimension: d})
		}
	}
	for _, c := range s.CustomDimensions {
		if c.Enabled {
			out = append(out, NamedDimension{Key: c.ID, Dimension: c.Dimension})
		}
	}
	return out
}

// LegalPricingModes returns the custom-mode pricing modes allowed for the given
// number of enabled dimensions. Tiered never appears: it belongs to presets.
func LegalPricingModes(enabledCount int) []SizePricingMode {
	switch {
	case enabledCount <= 1:
		return []SizePricingMode{SizePricePerUnit}
	case enabledCount == 2:
		return []SizePricingMode{SizePricePerUnit, SizePriceArea}
	default:
		return []SizePricingMode{SizePricePerUnit, SizePriceArea, SizePriceFormula}
	}
}

// ClampPricingMode downgrades mode to the nearest legal one for enabledCount.
func ClampPricingMode(mode SizePricingMode, enabledCount int) SizePricingMode {
	switch {
	case enabledCount <= 1:
		return SizePricePerUnit
	case enabledCount == 2:
		switch mode {
		case SizePriceFormula:
			return SizePriceArea
		case SizePricePerUnit, SizePriceArea:
			return mode
		}
		return SizePricePerUnit
	default:
		switch mode {
		case SizePricePerUnit, SizePriceArea, SizePriceFormula:
			return mode
		}
		return SizePricePerUnit
	}
}

// EffectivePricingMode is the pricing mode that applies right now. Discrete sizes
// are always tiered; otherwise the stored mode is clamped on every read.
func (s SizeOptions) EffectivePricingMode() SizePricingMode {
	if s.Mode == SizeDiscrete {
		return SizePriceTiered
	}
	return ClampPricingMode(s.PricingMode, len(s.EnabledDimensions()))
}

func (s *SizeOptions) reclamp() {
	if s.Mode == SizeDiscrete {
		return
	}
	s.PricingMode = ClampPricingMode(s.PricingMode, len(s.EnabledDimensions()))
}

// withSize applies fn to a copy of cfg's size options. Non-size configurations
// come back unchanged.
func withSize(cfg Configuration, fn func(*SizeOptions) bool) Configuration {
	if cfg.CapabilityID != Size || cfg.SizeOptions == nil {
		return cfg
	}
	out := cfg.clone()
	if !fn(out.SizeOptions) {
		return cfg
	}
	out.SizeOptions.reclamp()
	return out
}

// SetSizeMode switches between discrete, custom and parametric sizing.
func SetSizeMode(cfg Configuration, mode SizeMode) Configuration {
	switch mode {
	case SizeDiscrete, SizeCustom, SizeParametric:
	default:
		return cfg
	}
	return withSize(cfg, func(s *SizeOptions) bool {
		s.Mode = mode
		return true
	})
}

// SetSizePricingMode stores mode, silently downgraded to what the enabled
// dimensions allow.
func SetSizePricingMode(cfg Configuration, mode SizePricingMode) Configuration {
	return withSize(cfg, func(s *SizeOptions) bool {
		s.PricingMode = mode
		return true
	})
}

// SetSizeRates replaces the base price and the per-unit rates.
func SetSizeRates(cfg Configuration, base, perUnit, perCM2, perCM3 decimal.Decimal) Configuration {
	return withSize(cfg, func(s *SizeOptions) bool {
		s.BasePrice, s.PricePerUnit, s.PricePerCM2, s.PricePerCM3 = base, perUnit, perCM2, perCM3
		return true
	})
}

// SetDimension replaces a standard or custom dimension by key and re-derives the
// pricing mode.
func SetDimension(cfg Configuration, key string, d Dimension) Configuration {
	return withSize(cfg, func(s *SizeOptions) bool {
		if p := s.Dimensions.ptr(key); p != nil {
			*p = d
			return true
		}
		for i := range s.CustomDimensions {
			if s.CustomDimensions[i].ID == key {
				s.CustomDimensions[i].Dimension = d
				return true
			}
		}
		return false
	})
}

// SetDimensionEnabled toggles one dimension and re-derives the pricing mode.
func SetDimensionEnabled(cfg Configuration, key string, enabled bool) Configuration {
	return withSize(cfg, func(s *SizeOptions) bool {
		if p := s.Dimensions.ptr(key); p != nil {
			p.Enabled = enabled
			return true
		}
		for i := range s.CustomDimensions {
			if s.CustomDimensions[i].ID == key {
				s.CustomDimensions[i].Enabled = enabled
				return true
			}
		}
		return false
	})
}

// AddCustomDimension appends an enabled custom dimension and returns its id.
func AddCustomDimension(cfg Configuration, name string, d Dimension) (Configuration, string) {
	id := uuid.NewString()
	out := withSize(cfg, func(s *SizeOptions) bool {
		d.Enabled = true
		s.CustomDimensions = append(s.CustomDimensions, CustomDimension{ID: id, Name: name, Dimension: d})
		return true
	})
	if out.SizeOptions == cfg.SizeOptions {
		return cfg, ""
	}
	return out, id
}

// RemoveCustomDimension drops a custom dimension by id.
func RemoveCustomDimension(cfg Configuration, id string) Configuration {
	return withSize(cfg, func(s *SizeOptions) bool {
		for i, c := range s.CustomDimensions {
			if c.ID == id {
				s.CustomDimensions = append(s.CustomDimensions[:i], s.CustomDimensions[i+1:]...)
				return true
			}
		}
		return false
	})
}

// AddPreset appends a preset; the first preset becomes the default.
func AddPreset(cfg Configuration, p SizePreset) (Configuration, string) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	out := withSize(cfg, func(s *SizeOptions) bool {
		p.IsDefault = len(s.Presets) == 0
		s.Presets = append(s.Presets, p)
		return true
	})
	if out.SizeOptions == cfg.SizeOptions {
		return cfg, ""
	}
	return out, p.ID
}

// RemovePreset drops a preset; if it was the default the first remaining preset
// takes over.
func RemovePreset(cfg Configuration, id string) Configuration {
	return withSize(cfg, func(s *SizeOptions) bool {
		for i, p := range s.Presets {
			if p.ID != id {
				continue
			}
			s.Presets = append(s.Presets[:i], s.Presets[i+1:]...)
			if p.IsDefault && len(s.Presets) > 0 {
				s.Presets[0].IsDefault = true
			}
			return true
		}
		return false
	})
}

// SetDefaultPreset marks one preset as default and clears every other one in a
// single replacement of the preset slice.
func SetDefaultPreset(cfg Configuration, id string) Configuration {
	return withSize(cfg, func(s *SizeOptions) bool {
		found := false
		next := make([]SizePreset, len(s.Presets))
		for i, p := range s.Presets {
			p.IsDefault = p.ID == id
			found = found || p.IsDefault
			next[i] = p
		}
		if !found {
			return false
		}
		s.Presets = next
		return true
	})
}

// DefaultPreset returns the preset flagged as default, if any.
func (s SizeOptions) DefaultPreset() (SizePreset, bool) {
	for _, p := range s.Presets {
		if p.IsDefault {
			return p, true
		}
	}
	return SizePreset{}, false
}

func (s SizeOptions) presetByID(id string) (SizePreset, bool) {
	for _, p := range s.Presets {
		if p.ID == id {
			return p, true
		}
	}
	return SizePreset{}, false
}
